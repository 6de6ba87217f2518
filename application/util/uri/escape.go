package uri

import (
	"strings"

	"github.com/pkg/errors"
)

type encodeMode uint

const (
	encodePath encodeMode = 1 + iota
	encodeHost
	encodeUser
	encodeUserInfo
	encodeQuery
	encodeFragment
)

func hex(c byte) (h [2]byte) {
	const hexSet = "0123456789ABCDEF"
	h[0] = hexSet[c>>4]
	h[1] = hexSet[c&0xF]
	return
}

func unhex(h [2]byte) (c byte) {
	return (_hex_to_num(h[0]) << 4) | _hex_to_num(h[1])
}

func _hex_to_num(h byte) byte {
	switch {
	case '0' <= h && h <= '9':
		return h - '0'
	case 'a' <= h && h <= 'f':
		return h - 'a' + 10
	case 'A' <= h && h <= 'F':
		return h - 'A' + 10
	}
	return 0
}

// normalizeEscape escapes bytes not allowed in the component,
// upper-cases hex digits of existing percent-encodings
// and decodes percent-encoded unreserved characters.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-6.2.2.2
func normalizeEscape(s string, mode encodeMode) string {
	b := new(strings.Builder)
	b.Grow(len(s))

	for idx := 0; idx < len(s); idx++ {
		c := s[idx]
		if c == '%' && idx+2 < len(s) && isPercentEncoded(s[idx:idx+3]) {
			c = unhex([2]byte{s[idx+1], s[idx+2]})
			idx += 2
			if isUnreserved(c) {
				b.WriteByte(c)
				continue
			}
			hex := hex(c)
			b.Write([]byte{'%', hex[0], hex[1]})
			continue
		}

		if shouldEscape(c, mode) {
			hex := hex(c)
			b.Write([]byte{'%', hex[0], hex[1]})
		} else {
			b.WriteByte(c)
		}
	}

	return b.String()
}

// normalizeHost lower-cases host and normalizes its percent-encodings.
// Bytes not allowed in host are kept as-is, to be rejected by validation.
func normalizeHost(host string) string {
	b := new(strings.Builder)
	b.Grow(len(host))

	for idx := 0; idx < len(host); idx++ {
		c := host[idx]
		if c == '%' && idx+2 < len(host) && isPercentEncoded(host[idx:idx+3]) {
			c = unhex([2]byte{host[idx+1], host[idx+2]})
			idx += 2
			if isUnreserved(c) {
				b.WriteByte(toLower(c))
				continue
			}
			hex := hex(c)
			b.Write([]byte{'%', hex[0], hex[1]})
			continue
		}
		b.WriteByte(toLower(c))
	}

	return b.String()
}

func toLower(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func unescape(s string) (string, error) {
	b := new(strings.Builder)
	b.Grow(len(s))

	for idx := 0; idx < len(s); idx++ {
		c := s[idx]
		if c == '%' {
			if idx+2 >= len(s) || !isPercentEncoded(s[idx:idx+3]) {
				bad := s[idx:min(len(s), idx+3)]
				return "", errors.Errorf("percent encoding not properly applied: %q", bad)
			}
			b.WriteByte(unhex([2]byte{s[idx+1], s[idx+2]}))
			idx += 2
			continue
		}
		b.WriteByte(c)
	}

	return b.String(), nil
}

func shouldEscape(c byte, mode encodeMode) bool {
	if isUnreserved(c) {
		return false
	}

	if isReserved(c) {
		switch mode {
		case encodeUser:
			// ':' delimits user from password.
			return !isSubDelim(c)
		case encodeUserInfo:
			// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-3.2.1
			return !(isSubDelim(c) || c == ':')
		case encodeHost:
			// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-3.2.2
			return !(isSubDelim(c) || c == '[' || c == ']' || c == ':') // For IP Literal and reg-name.
		case encodePath:
			// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-3.3
			return !(isSubDelim(c) || c == ':' || c == '@' || c == '/')
		case encodeFragment, encodeQuery:
			// Reference:
			// https://datatracker.ietf.org/doc/html/rfc3986#section-3.4
			// https://datatracker.ietf.org/doc/html/rfc3986#section-3.5
			return !(isSubDelim(c) || c == ':' || c == '@' || c == '/' || c == '?')
		}
	}

	return true
}
