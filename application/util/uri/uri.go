package uri

import (
	"strconv"
	"strings"

	"http-toolkit/application/util/rule"
	"http-toolkit/lib/types/pointer"

	"github.com/pkg/errors"
)

// URI is an immutable URI reference.
// Components are stored in their normalized percent-encoded form,
// scheme and host lower-cased.
// Every With* method returns a new value and leaves the receiver untouched.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc3986
type URI struct {
	scheme   string
	user     string
	password string
	host     string
	port     *uint16
	path     string
	query    string
	fragment string

	composed string
}

var defaultPorts = map[string]uint16{
	"http":   80,
	"https":  443,
	"ws":     80,
	"wss":    443,
	"ftp":    21,
	"gopher": 70,
	"nntp":   119,
	"news":   119,
	"telnet": 23,
	"tn3270": 23,
	"imap":   143,
	"pop":    110,
	"ldap":   389,
}

// DefaultPort reports the well-known port of given scheme.
func DefaultPort(scheme string) (uint16, bool) {
	port, ok := defaultPorts[strings.ToLower(scheme)]
	return port, ok
}

// Parse parses raw into URI.
// It accepts absolute URIs and every form of relative reference.
// Characters not allowed within path, query or fragment are percent-encoded.
func Parse(raw string) (URI, error) {
	u, err := parse(raw)
	if err != nil {
		return URI{}, &ParseError{Input: raw, Err: err}
	}
	return u, nil
}

func parse(raw string) (URI, error) {
	if rule.ContainsCTL(raw) {
		return URI{}, errors.New("contains control character")
	}

	var u URI

	scheme, rest, err := cutScheme(raw)
	if err != nil {
		return URI{}, errors.Wrap(err, "invalid scheme")
	}
	u.scheme = strings.ToLower(scheme)

	if after, ok := strings.CutPrefix(rest, "//"); ok {
		end := strings.IndexAny(after, "/?#")
		if end < 0 {
			end = len(after)
		}

		if err := u.parseAuthority(after[:end]); err != nil {
			return URI{}, err
		}
		rest = after[end:]
	}

	path, query, fragment := splitPathQueryFrag(rest)
	u.path = normalizeEscape(path, encodePath)
	u.query = normalizeEscape(strings.TrimPrefix(query, "?"), encodeQuery)
	u.fragment = normalizeEscape(strings.TrimPrefix(fragment, "#"), encodeFragment)

	u.compose()
	return u, nil
}

// cutScheme cuts the scheme from given string.
// No scheme is found when the first ':' comes after '/', '?' or '#'.
func cutScheme(s string) (scheme, rest string, err error) {
	idx := strings.IndexAny(s, ":/?#")
	if idx < 0 || s[idx] != ':' {
		return "", s, nil
	}

	scheme = s[:idx]
	if err := assertValidScheme(scheme); err != nil {
		return "", "", err
	}

	return scheme, s[idx+1:], nil
}

// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-3.2
func (u *URI) parseAuthority(s string) error {
	if idx := strings.LastIndexByte(s, '@'); idx >= 0 {
		user, password, _ := strings.Cut(s[:idx], ":")
		u.user = normalizeEscape(user, encodeUser)
		u.password = normalizeEscape(password, encodeUserInfo)
		s = s[idx+1:]
	}

	host, portPart, err := getHostPort(s)
	if err != nil {
		return errors.Wrap(err, "invalid authority")
	}

	port, hasPort, err := ParsePort(portPart)
	if err != nil {
		return errors.Wrap(err, "invalid port")
	}
	if hasPort {
		u.port = pointer.To(port)
	}

	host = normalizeHost(host)
	if err := assertValidHost(host); err != nil {
		return errors.Wrap(err, "invalid host")
	}
	u.host = host

	return nil
}

func getHostPort(s string) (host, portPart string, err error) {
	if strings.HasPrefix(s, "[") {
		idx := strings.IndexByte(s, ']')
		if idx < 0 {
			return "", "", errors.New("ip literal is not closed")
		}
		return s[:idx+1], s[idx+1:], nil
	}

	if idx := strings.LastIndexByte(s, ':'); idx >= 0 {
		return s[:idx], s[idx:], nil
	}

	return s, "", nil
}

// ParsePort parses port part of authority, including leading ':'.
// An empty port after ':' is considered as absent.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-3.2.3
func ParsePort(s string) (port uint16, hasPort bool, err error) {
	if s == "" {
		return 0, false, nil
	}

	digits, ok := strings.CutPrefix(s, ":")
	if !ok {
		return 0, false, errors.Errorf("expected ':' before port, got %q", s)
	}
	if digits == "" {
		return 0, false, nil
	}

	for idx := 0; idx < len(digits); idx++ {
		if !rule.IsDigit(rune(digits[idx])) {
			return 0, false, errors.Errorf("port contains non-digit %q", digits)
		}
	}
	if len(digits) > 1 && digits[0] == '0' {
		return 0, false, errors.Errorf("port has leading zero %q", digits)
	}

	n, err := strconv.ParseUint(digits, 10, 16)
	if err != nil {
		return 0, false, errors.Errorf("port out of range %q", digits)
	}

	return uint16(n), true, nil
}

// splitPathQueryFrag splits s into path, query and fragment.
// Query and fragment keep their leading delimiter so that
// an empty component can be told apart from an absent one.
func splitPathQueryFrag(s string) (path, query, fragment string) {
	if idx := strings.IndexByte(s, '#'); idx >= 0 {
		s, fragment = s[:idx], s[idx:]
	}
	if idx := strings.IndexByte(s, '?'); idx >= 0 {
		s, query = s[:idx], s[idx:]
	}
	return s, query, fragment
}

func (u URI) Scheme() string   { return u.scheme }
func (u URI) User() string     { return u.user }
func (u URI) Password() string { return u.password }
func (u URI) Host() string     { return u.host }
func (u URI) Path() string     { return u.path }
func (u URI) Query() string    { return u.query }
func (u URI) Fragment() string { return u.fragment }

// UserInfo returns "user[:password]".
// The user may be empty while a password is present, as in ":pw".
func (u URI) UserInfo() string {
	if u.password != "" {
		return u.user + ":" + u.password
	}
	return u.user
}

// Port returns the port, unless it is absent or it equals
// the default port of the scheme.
func (u URI) Port() (uint16, bool) {
	if u.port == nil {
		return 0, false
	}
	if def, ok := defaultPorts[u.scheme]; ok && def == *u.port {
		return 0, false
	}
	return *u.port, true
}

// RawPort returns the stored port, whether or not it is the default one.
func (u URI) RawPort() (uint16, bool) {
	return pointer.ValueOr(u.port, 0), u.port != nil
}

// Authority returns "[userinfo@]host[:port]".
// Empty string is returned when there is no host.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-3.2
func (u URI) Authority() string {
	if u.host == "" {
		return ""
	}

	var b strings.Builder
	if userInfo := u.UserInfo(); userInfo != "" {
		b.WriteString(userInfo)
		b.WriteByte('@')
	}
	b.WriteString(u.host)
	if port, ok := u.Port(); ok {
		b.WriteByte(':')
		b.WriteString(strconv.FormatUint(uint64(port), 10))
	}

	return b.String()
}

func (u URI) String() string { return u.composed }

// IsRelativeRef reports whether u has no scheme.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-4.2
func (u URI) IsRelativeRef() bool { return u.scheme == "" }

// IsAbsoluteURI reports whether u has scheme but no fragment.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-4.3
func (u URI) IsAbsoluteURI() bool { return u.scheme != "" && u.fragment == "" }

func (u URI) Equal(other URI) bool { return u.composed == other.composed }

// Normalize applies syntax-based normalization.
// Percent-encodings and case are already normalized on construction,
// so this removes dot segments and fills empty path of URI with authority.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-6.2.2
func (u URI) Normalize() URI {
	out := u
	if out.scheme != "" || out.host != "" {
		out.path = removeDotSegments(out.path)
	}
	if out.host != "" && out.path == "" {
		out.path = "/"
	}
	if out.port != nil {
		if _, ok := out.Port(); !ok {
			out.port = nil
		}
	}

	out.compose()
	return out
}

// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-5.3
func (u *URI) compose() {
	var b strings.Builder

	if u.scheme != "" {
		b.WriteString(u.scheme)
		b.WriteByte(':')
	}

	authority := u.Authority()
	if authority != "" || u.scheme == "file" {
		b.WriteString("//")
		b.WriteString(authority)
	}

	path := u.path
	switch {
	case authority != "" && path != "" && path[0] != '/':
		path = "/" + path
	case authority == "" && strings.HasPrefix(path, "//"):
		path = "/" + strings.TrimLeft(path, "/")
	case u.scheme == "" && authority == "":
		// A colon in the first segment would be taken as scheme delimiter.
		first, _, _ := strings.Cut(path, "/")
		if strings.ContainsRune(first, ':') {
			path = "./" + path
		}
	}
	b.WriteString(path)

	if u.query != "" {
		b.WriteByte('?')
		b.WriteString(u.query)
	}
	if u.fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.fragment)
	}

	u.composed = b.String()
}

func (u URI) WithScheme(scheme string) (URI, error) {
	scheme = strings.ToLower(scheme)
	if scheme == u.scheme {
		return u, nil
	}
	if scheme != "" {
		if err := assertValidScheme(scheme); err != nil {
			return URI{}, &ParseError{Input: scheme, Err: err}
		}
	}

	u.scheme = scheme
	u.compose()
	return u, nil
}

func (u URI) WithUserInfo(user, password string) (URI, error) {
	user = normalizeEscape(user, encodeUser)
	password = normalizeEscape(password, encodeUserInfo)
	if user == u.user && password == u.password {
		return u, nil
	}

	u.user, u.password = user, password
	u.compose()
	return u, nil
}

func (u URI) WithHost(host string) (URI, error) {
	host = normalizeHost(host)
	if host == u.host {
		return u, nil
	}
	if err := assertValidHost(host); err != nil {
		return URI{}, &ParseError{Input: host, Err: err}
	}

	u.host = host
	u.compose()
	return u, nil
}

func (u URI) WithPort(port uint16) (URI, error) {
	if u.port != nil && *u.port == port {
		return u, nil
	}

	u.port = pointer.To(port)
	u.compose()
	return u, nil
}

func (u URI) WithoutPort() URI {
	if u.port == nil {
		return u
	}

	u.port = nil
	u.compose()
	return u
}

func (u URI) WithPath(path string) (URI, error) {
	if rule.ContainsCTL(path) {
		return URI{}, &ParseError{Input: path, Err: errors.New("path contains control character")}
	}

	path = normalizeEscape(path, encodePath)
	if path == u.path {
		return u, nil
	}

	u.path = path
	u.compose()
	return u, nil
}

func (u URI) WithQuery(query string) (URI, error) {
	if rule.ContainsCTL(query) {
		return URI{}, &ParseError{Input: query, Err: errors.New("query contains control character")}
	}

	query = normalizeEscape(strings.TrimPrefix(query, "?"), encodeQuery)
	if query == u.query {
		return u, nil
	}

	u.query = query
	u.compose()
	return u, nil
}

func (u URI) WithFragment(fragment string) (URI, error) {
	if rule.ContainsCTL(fragment) {
		return URI{}, &ParseError{Input: fragment, Err: errors.New("fragment contains control character")}
	}

	fragment = normalizeEscape(strings.TrimPrefix(fragment, "#"), encodeFragment)
	if fragment == u.fragment {
		return u, nil
	}

	u.fragment = fragment
	u.compose()
	return u, nil
}
