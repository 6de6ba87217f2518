package semantic

import (
	"strconv"
	"strings"

	"http-toolkit/application/http"
	"http-toolkit/application/http/stream"
	"http-toolkit/application/util/rule"
	"http-toolkit/application/util/uri"
	"http-toolkit/lib/ds/ordered"

	"github.com/pkg/errors"
)

// Request is an immutable request message.
type Request struct {
	Message

	method Method
	uri    uri.URI
	// Overrides the target derived from uri when not empty.
	target string

	payload any

	// Server-side parameters.
	query  *ordered.Map[string, []string]
	post   *ordered.Map[string, []string]
	server *ordered.Map[string, string]
}

// NewRequest creates a request to u.
// Host header is set from u.
func NewRequest(method string, u uri.URI) (Request, error) {
	m, err := ParseMethod(method)
	if err != nil {
		return Request{}, err
	}

	req := Request{method: m}
	return req.WithURI(u, false), nil
}

// ParseRequest parses rawURI and creates a request to it.
func ParseRequest(method, rawURI string) (Request, error) {
	u, err := uri.Parse(rawURI)
	if err != nil {
		return Request{}, err
	}
	return NewRequest(method, u)
}

func (r Request) Method() Method { return r.method }

func (r Request) WithMethod(method string) (Request, error) {
	m, err := ParseMethod(method)
	if err != nil {
		return Request{}, err
	}

	r.method = m
	return r, nil
}

func (r Request) URI() uri.URI { return r.uri }

// WithURI replaces the target URI.
// Host header is updated from u, unless preserveHost is set and the request already has one.
// An URI without host never changes Host header.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-7.2
func (r Request) WithURI(u uri.URI, preserveHost bool) Request {
	r.uri = u
	r.target = ""

	if u.Host() == "" {
		return r
	}
	if preserveHost && r.headers.Line("Host") != "" {
		return r
	}

	h, err := r.headers.With("Host", hostHeaderValue(u))
	if err == nil {
		r.headers = h
	}
	return r
}

func hostHeaderValue(u uri.URI) string {
	host := u.Host()
	if port, ok := u.Port(); ok {
		host += ":" + strconv.FormatUint(uint64(port), 10)
	}
	return host
}

// RequestTarget returns the target sent within the request line.
// Unless overridden, it is the origin-form of the URI.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2
func (r Request) RequestTarget() string {
	if r.target != "" {
		return r.target
	}

	target := r.uri.Path()
	if target == "" {
		target = "/"
	}
	if q := r.uri.Query(); q != "" {
		target += "?" + q
	}
	return target
}

func (r Request) WithRequestTarget(target string) (Request, error) {
	if target == "" || strings.ContainsFunc(target, func(c rune) bool {
		return c == rune(rule.SP) || c == rune(rule.HTAB) || c < ' ' || c == 0x7f
	}) {
		return Request{}, errors.Errorf("invalid request target: %q", target)
	}

	r.target = target
	return r, nil
}

// Payload returns the structured body to be encoded on send.
func (r Request) Payload() any { return r.payload }

// WithPayload sets the structured body.
// [*Upload] is sent as multipart/form-data, other values as JSON.
func (r Request) WithPayload(payload any) Request {
	r.payload = payload
	return r
}

// Query returns the query parameters.
// Unless given by a snapshot, they're decoded from the URI.
func (r Request) Query() *ordered.Map[string, []string] {
	if r.query != nil {
		return r.query.Clone()
	}
	return r.uri.QueryParams()
}

func (r Request) QueryParam(key, def string) string {
	values, ok := r.Query().Lookup(key)
	if !ok || len(values) == 0 {
		return def
	}
	return values[0]
}

// Post returns the posted fields of a server-side request.
func (r Request) Post() *ordered.Map[string, []string] {
	if r.post == nil {
		return ordered.New[string, []string]()
	}
	return r.post.Clone()
}

func (r Request) PostParam(key, def string) string {
	values, ok := r.Post().Lookup(key)
	if !ok || len(values) == 0 {
		return def
	}
	return values[0]
}

// ServerParam returns the server parameter of key, or def when it wasn't given.
func (r Request) ServerParam(key, def string) string {
	return r.server.Get(key, def)
}

// Range returns the value of Range header.
func (r Request) Range() (string, bool) {
	return r.headers.Get("Range")
}

// PreferredType picks the media type to respond with from Accept header.
func (r Request) PreferredType() string {
	accepted := make(map[string]bool)
	for _, token := range r.headers.Tokens("Accept") {
		mediaType, _, _ := strings.Cut(token, ";")
		accepted[strings.TrimSpace(mediaType)] = true
	}

	switch {
	case accepted["application/json"] || accepted["*/*"]:
		return "application/json"
	case accepted["application/xml"]:
		return "application/xml"
	}
	return "text/html"
}

// Respond creates a response with the body, typed with [Request.PreferredType].
func (r Request) Respond(code uint, body string) Response {
	res := NewResponse(code).WithBody(stream.NewString(body))
	if h, err := res.headers.With("Content-Type", r.PreferredType()); err == nil {
		res.headers = h
	}
	return res
}

func (r Request) WithProtocolVersion(version string) (Request, error) {
	msg, err := r.Message.WithProtocolVersion(version)
	if err != nil {
		return Request{}, err
	}
	r.Message = msg
	return r, nil
}

func (r Request) WithHeader(name string, values ...string) (Request, error) {
	msg, err := r.Message.WithHeader(name, values...)
	if err != nil {
		return Request{}, err
	}
	r.Message = msg
	return r, nil
}

func (r Request) WithAddedHeader(name string, values ...string) (Request, error) {
	msg, err := r.Message.WithAddedHeader(name, values...)
	if err != nil {
		return Request{}, err
	}
	r.Message = msg
	return r, nil
}

func (r Request) WithoutHeader(name string) Request {
	r.Message = r.Message.WithoutHeader(name)
	return r
}

func (r Request) WithHeaders(h Headers) Request {
	r.Message = r.Message.WithHeaders(h)
	return r
}

func (r Request) WithBody(body *stream.Stream) Request {
	r.Message = r.Message.WithBody(body)
	return r
}

// RawRequest converts the request into its wire form.
func (r Request) RawRequest() http.Request {
	raw := http.Request{
		RequestLine: http.RequestLine{
			Method:  string(r.method),
			Target:  r.RequestTarget(),
			Version: r.version(),
		},
		Headers: r.headers.ToRawFields(),
	}
	if r.body != nil {
		raw.Body = r.body
	}

	return raw
}

// String returns the request line.
func (r Request) String() string {
	return string(r.method) + " " + r.RequestTarget() + " HTTP/" + r.ProtocolVersion()
}
