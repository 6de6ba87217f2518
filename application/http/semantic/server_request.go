package semantic

import (
	"strings"

	"http-toolkit/application/http"
	"http-toolkit/application/util/uri"
	"http-toolkit/lib/ds/ordered"

	"github.com/pkg/errors"
)

// Snapshot is the inbound request state captured by whoever accepted the request.
// Query, Post and Server may be nil.
type Snapshot struct {
	Method   string
	Target   string
	Protocol string
	Headers  []Field

	Query  *ordered.Map[string, []string]
	Post   *ordered.Map[string, []string]
	Server *ordered.Map[string, string]
}

// NewServerRequest creates a request from the snapshot.
// An origin-form target is resolved against Host header,
// with https scheme when the server parameter "HTTPS" is "on".
func NewServerRequest(s Snapshot) (Request, error) {
	method := MethodGet
	if s.Method != "" {
		m, err := ParseMethod(s.Method)
		if err != nil {
			return Request{}, err
		}
		method = m
	}

	headers, err := NewHeaders(s.Headers...)
	if err != nil {
		return Request{}, errors.Wrap(err, "invalid headers")
	}

	msg := Message{headers: headers}
	if s.Protocol != "" {
		if msg, err = msg.WithProtocolVersion(s.Protocol); err != nil {
			return Request{}, err
		}
	}

	target := s.Target
	if target == "" {
		target = "/"
	}
	u, err := uri.Parse(target)
	if err != nil {
		return Request{}, errors.Wrap(err, "invalid target")
	}

	if host, ok := headers.Get("Host"); ok && u.Host() == "" {
		scheme := "http"
		if strings.EqualFold(s.Server.Get("HTTPS", ""), "on") {
			scheme = "https"
		}
		if u, err = resolveOrigin(u, scheme, host); err != nil {
			return Request{}, err
		}
	}

	return Request{
		Message: msg,
		method:  method,
		uri:     u,
		target:  s.Target,
		query:   s.Query,
		post:    s.Post,
		server:  s.Server,
	}, nil
}

func resolveOrigin(u uri.URI, scheme, host string) (uri.URI, error) {
	base, err := uri.Parse(scheme + "://" + host)
	if err != nil {
		return uri.URI{}, errors.Wrap(err, "host value is not valid")
	}
	if base.Path() != "" || base.Query() != "" || base.Fragment() != "" || base.UserInfo() != "" {
		return uri.URI{}, errors.Errorf("host value is not valid: %q", host)
	}

	resolver, err := uri.NewRefResolver(base)
	if err != nil {
		return uri.URI{}, err
	}
	return resolver.Resolve(u), nil
}

type ParseRequestOptions struct {
	ParseMessageOptions

	IsForwardProxy bool
	MaxURILen      uint
}

// RequestFromWire creates a request from a decoded request.
// Target is validated against the form the method requires.
func RequestFromWire(raw http.Request, opts ParseRequestOptions) (Request, error) {
	method, err := ParseMethod(raw.Method)
	if err != nil {
		return Request{}, err
	}

	msg, err := messageFromWire(raw.Version, raw.Headers, raw.Body, opts.ParseMessageOptions)
	if err != nil {
		return Request{}, err
	}

	u, err := parseAndValidateURI(raw.Target, method, opts.IsForwardProxy, opts.MaxURILen)
	if err != nil {
		return Request{}, errors.Wrap(err, "failed to parse URI")
	}

	if !(method == MethodOptions || method == MethodConnect) {
		u = u.Normalize()
	}

	request := Request{Message: msg, method: method, target: raw.Target}

	if u.IsAbsoluteURI() {
		// Reference:
		// - https://datatracker.ietf.org/doc/html/rfc9112#section-3.2.2-7
		// - https://datatracker.ietf.org/doc/html/rfc9112#section-3.2.2-8
		request = request.WithURI(u, false)
		request.target = raw.Target
		return request, nil
	}

	request.uri = u
	if host, ok := msg.headers.Get("Host"); ok && method != MethodConnect && method != MethodOptions {
		if request.uri, err = resolveOrigin(u, "http", host); err != nil {
			return Request{}, errors.Wrap(err, "extracting host")
		}
	}

	return request, nil
}

var ErrURITooLong = errors.New("uri too long")

// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2
func parseAndValidateURI(
	raw string, method Method, isForwardProxy bool, maxLen uint,
) (uri.URI, error) {
	if maxLen > 0 && uint(len(raw)) > maxLen {
		return uri.URI{}, ErrURITooLong
	}

	switch method {
	case MethodConnect:
		// authority-form.
		// It doesn't follow uri rule, so it won't be parsed properly.
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2.3
		u, err := parseAuthorityForm(raw)
		if err != nil {
			return uri.URI{}, errors.Wrap(err, "failed to parse authority-form")
		}
		return u, nil
	case MethodOptions:
		// asterisk-form
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2.4
		if raw == "*" {
			return uri.Parse(raw)
		}
	}

	u, err := uri.Parse(raw)
	if err != nil {
		return uri.URI{}, err
	}

	if !u.IsRelativeRef() {
		// absolute-form
		// These assertions below aren't explicitly described in the RFC.
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2.2
		if !(u.Scheme() == "http" || u.Scheme() == "https") {
			return uri.URI{}, errors.New("scheme is invalid. allowed schemes are: http, https")
		}
		if u.Host() == "" {
			return uri.URI{}, errors.New("absolute-form needs authority")
		}
		return u, nil
	}

	if isForwardProxy {
		return uri.URI{}, errors.New("forward-proxy only allows absolute-uri")
	}
	// origin-form
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2.1
	if !strings.HasPrefix(u.Path(), "/") || strings.HasPrefix(raw, "//") {
		return uri.URI{}, errors.New("origin-form uri's path should start with /")
	}

	return u, nil
}

func parseAuthorityForm(raw string) (uri.URI, error) {
	idx := strings.LastIndex(raw, ":")
	if idx < 0 {
		return uri.URI{}, errors.New("authority-form doesn't contain ':'")
	}

	port, hasPort, err := uri.ParsePort(raw[idx:])
	if err != nil {
		return uri.URI{}, errors.Wrap(err, "failed to parse port")
	}
	if !hasPort {
		return uri.URI{}, errors.New("port in authority form is required")
	}

	u, err := uri.URI{}.WithHost(raw[:idx])
	if err != nil {
		return uri.URI{}, errors.Wrap(err, "host isn't valid")
	}

	return u.WithPort(port)
}
