package uri

import (
	"strings"

	"http-toolkit/lib/ds/ordered"
)

// QueryParams decodes the query as application/x-www-form-urlencoded.
// Keys keep the order of their first appearance.
// Pairs that fail to decode are kept in their raw form.
//
// Reference: https://url.spec.whatwg.org/#urlencoded-parsing
func (u URI) QueryParams() *ordered.Map[string, []string] {
	params := ordered.New[string, []string]()
	if u.query == "" {
		return params
	}

	for _, pair := range strings.Split(u.query, "&") {
		if pair == "" {
			continue
		}

		key, value, _ := strings.Cut(pair, "=")
		key, value = decodeFormValue(key), decodeFormValue(value)

		values, _ := params.Lookup(key)
		params.Set(key, append(values, value))
	}

	return params
}

func decodeFormValue(s string) string {
	s = strings.ReplaceAll(s, "+", " ")
	if decoded, err := unescape(s); err == nil {
		return decoded
	}
	return s
}
