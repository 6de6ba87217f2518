package semantic

import (
	"bytes"
	"strings"

	"http-toolkit/application/http"
	"http-toolkit/application/util/rule"

	"github.com/pkg/errors"
)

// Field is a header name with its values.
type Field struct {
	Name   string
	Values []string
}

type headerEntry struct {
	name   string
	values []string
}

// Headers is an immutable header bag.
// Lookups are case-insensitive, while names keep the casing they were first set with.
// Names and values keep their insertion order.
// The zero value is an empty bag.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5
type Headers struct {
	entries []headerEntry
	// lower-cased name to position in entries.
	index map[string]int
}

// NewHeaders builds headers from fields.
// Values of fields sharing a name are merged in order.
func NewHeaders(fields ...Field) (Headers, error) {
	var h Headers
	for _, f := range fields {
		var err error
		if h, err = h.WithAdded(f.Name, f.Values...); err != nil {
			return Headers{}, err
		}
	}
	return h, nil
}

// HeadersFrom creates headers from raw fields.
// Multiple lines with the same name are merged.
// Lines that aren't valid fields are skipped.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.3-1
func HeadersFrom(fields []http.Field) Headers {
	var h Headers
	for _, field := range fields {
		if added, err := h.WithAdded(string(field.Name), string(field.Value)); err == nil {
			h = added
		}
	}
	return h
}

func (h Headers) Len() int { return len(h.entries) }

func (h Headers) lookup(name string) (int, bool) {
	idx, ok := h.index[strings.ToLower(name)]
	return idx, ok
}

func (h Headers) Has(name string) bool {
	_, ok := h.lookup(name)
	return ok
}

// Values returns a copy of the values of the name.
func (h Headers) Values(name string) []string {
	idx, ok := h.lookup(name)
	if !ok {
		return nil
	}

	values := h.entries[idx].values
	out := make([]string, len(values))
	copy(out, values)
	return out
}

// Get assumes the field is a singleton field.
// Even if name has multiple values, it will only return the first of them.
func (h Headers) Get(name string) (string, bool) {
	idx, ok := h.lookup(name)
	if !ok || len(h.entries[idx].values) == 0 {
		return "", false
	}
	return h.entries[idx].values[0], true
}

// Line returns the values of name joined with ", ".
func (h Headers) Line(name string) string {
	idx, ok := h.lookup(name)
	if !ok {
		return ""
	}
	return strings.Join(h.entries[idx].values, ", ")
}

// Tokens splits a list-based field into its members.
// Commas within quoted strings don't split, and the quotes are removed.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.1
func (h Headers) Tokens(name string) []string {
	idx, ok := h.lookup(name)
	if !ok {
		return nil
	}

	tokens := make([]string, 0)
	for _, v := range h.entries[idx].values {
		tokens = append(tokens, tokenizeFieldValues([]byte(v))...)
	}
	return tokens
}

// Fields returns every header in emission order: Host comes first,
// then the rest in insertion order.
func (h Headers) Fields() []Field {
	fields := make([]Field, 0, len(h.entries))

	hostIdx, hasHost := h.lookup("Host")
	if hasHost {
		fields = append(fields, h.entries[hostIdx].field())
	}
	for idx, e := range h.entries {
		if hasHost && idx == hostIdx {
			continue
		}
		fields = append(fields, e.field())
	}

	return fields
}

func (e headerEntry) field() Field {
	values := make([]string, len(e.values))
	copy(values, e.values)
	return Field{Name: e.name, Values: values}
}

// ToRawFields converts headers into wire fields.
// Values of a field are joined by ", " into a single line,
// except Set-Cookie, which is sent one line per value.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.3
func (h Headers) ToRawFields() []http.Field {
	raw := make([]http.Field, 0, len(h.entries))
	for _, f := range h.Fields() {
		if !strings.EqualFold(f.Name, "Set-Cookie") {
			raw = append(raw, http.Field{Name: []byte(f.Name), Value: []byte(strings.Join(f.Values, ", "))})
			continue
		}
		for _, v := range f.Values {
			raw = append(raw, http.Field{Name: []byte(f.Name), Value: []byte(v)})
		}
	}
	return raw
}

// With replaces the values of name.
// Casing of name replaces the stored one.
func (h Headers) With(name string, values ...string) (Headers, error) {
	values, err := validateField(name, values)
	if err != nil {
		return Headers{}, err
	}

	out := h.clone()
	if idx, ok := out.lookup(name); ok {
		out.entries[idx] = headerEntry{name: name, values: values}
		return out, nil
	}

	out.index[strings.ToLower(name)] = len(out.entries)
	out.entries = append(out.entries, headerEntry{name: name, values: values})
	return out, nil
}

// WithAdded appends values to name.
// When name already exists, its stored casing is kept.
func (h Headers) WithAdded(name string, values ...string) (Headers, error) {
	values, err := validateField(name, values)
	if err != nil {
		return Headers{}, err
	}

	idx, ok := h.lookup(name)
	if !ok {
		return h.With(name, values...)
	}

	out := h.clone()
	prev := out.entries[idx]
	merged := make([]string, 0, len(prev.values)+len(values))
	merged = append(merged, prev.values...)
	merged = append(merged, values...)
	out.entries[idx] = headerEntry{name: prev.name, values: merged}

	return out, nil
}

// Without removes name. Headers without name are returned as-is.
func (h Headers) Without(name string) Headers {
	idx, ok := h.lookup(name)
	if !ok {
		return h
	}

	out := Headers{
		entries: make([]headerEntry, 0, len(h.entries)-1),
		index:   make(map[string]int, len(h.entries)-1),
	}
	for i, e := range h.entries {
		if i == idx {
			continue
		}
		out.index[strings.ToLower(e.name)] = len(out.entries)
		out.entries = append(out.entries, e)
	}

	return out
}

// clone copies the entry list and the index.
// Value slices are shared as they're never modified in place.
func (h Headers) clone() Headers {
	out := Headers{
		entries: make([]headerEntry, len(h.entries), len(h.entries)+1),
		index:   make(map[string]int, len(h.entries)+1),
	}
	copy(out.entries, h.entries)
	for k, v := range h.index {
		out.index[k] = v
	}
	return out
}

func validateField(name string, values []string) ([]string, error) {
	if !rule.IsValidToken(name) {
		return nil, errors.Errorf("invalid field name: %q", name)
	}

	out := make([]string, len(values))
	for idx, v := range values {
		// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.5-11
		v = strings.Trim(v, string(rule.OWS))
		if !rule.IsValidFieldValue(v) {
			return nil, errors.Errorf("invalid value for field %q: %q", name, v)
		}
		out[idx] = v
	}

	return out, nil
}

func tokenizeFieldValues(fieldValue []byte) []string {
	tokens := make([]string, 0)
	buf := bytes.NewBuffer(nil)

	parts := bytes.Split(fieldValue, []byte{','})

	// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.4-1
	quoted := false

	for _, part := range parts {
		if quoted {
			// Comma inside quote, let's write it again.
			buf.WriteByte(',')
		}

		for idx := 0; idx < len(part); idx++ {
			c := part[idx]
			if c == '"' {
				quoted = !quoted
			}

			buf.WriteByte(c)
		}

		if !quoted {
			tokens = addToken(tokens, buf.Bytes())
			buf.Reset()
		}
	}

	if buf.Len() > 0 {
		// Quote didn't end properly.
		// At least write the raw token.
		tokens = addToken(tokens, buf.Bytes())
	}

	return tokens
}

func addToken(tokens []string, token []byte) []string {
	token = bytes.TrimFunc(token, rule.IsWhitespace)
	token = rule.Unquote(token)
	if len(token) == 0 {
		// Don't append if it's empty.
		return tokens
	}
	return append(tokens, string(token))
}
