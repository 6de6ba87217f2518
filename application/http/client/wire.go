package client

import (
	"context"
	"crypto/tls"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"http-toolkit/application/http"
	"http-toolkit/application/http/semantic"
	"http-toolkit/application/http/stream"
	"http-toolkit/application/http/transfer"
	"http-toolkit/application/util/uri"
	iolib "http-toolkit/lib/io"

	"github.com/pkg/errors"
)

type WireOptions struct {
	Encode http.EncodeOptions
	Decode http.DecodeOptions

	// Timeout bounds a whole exchange, redirects included. 0 means no timeout.
	Timeout time.Duration
	// MaxRedirects is the number of redirects followed before failing.
	// 0 disables following redirects.
	MaxRedirects int
	VerifyTLS    bool
	UserAgent    string

	ExtraTransferCoders []transfer.Coder
}

func DefaultWireOptions() WireOptions {
	return WireOptions{
		Encode:       http.EncodeOptions{},
		Decode:       http.DefaultDecodeOptions,
		Timeout:      30 * time.Second,
		MaxRedirects: 3,
		VerifyTLS:    true,
		UserAgent:    "http-toolkit/1.0",
	}
}

// WireTransport exchanges requests over a fresh TCP or TLS connection each,
// using the package's own wire encoder and decoder.
type WireTransport struct {
	logger *slog.Logger
	opts   WireOptions

	dialer    *net.Dialer
	transfer  *transfer.CodingPipeliner
	listeners listeners
}

func NewWireTransport(logger *slog.Logger, opts WireOptions) *WireTransport {
	return &WireTransport{
		logger:   logger,
		opts:     opts,
		dialer:   &net.Dialer{},
		transfer: transfer.NewCodingPipeliner(opts.ExtraTransferCoders),
	}
}

// RegisterProgressListener adds l to be notified on download progress.
func (t *WireTransport) RegisterProgressListener(l ProgressListener) {
	t.listeners.add(l)
}

func (t *WireTransport) Execute(ctx context.Context, req semantic.Request) (semantic.Response, error) {
	if t.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.Timeout)
		defer cancel()
	}

	req, err := EncodeBody(req)
	if err != nil {
		return semantic.Response{}, &TransportError{Op: "encode", URI: req.URI().String(), Err: err}
	}

	for redirects := 0; ; redirects++ {
		res, err := t.roundTrip(ctx, req)
		if err != nil {
			return semantic.Response{}, &TransportError{Op: string(req.Method()), URI: req.URI().String(), Err: err}
		}

		location, ok := res.Headers().Get("Location")
		if !ok || !isRedirect(res.StatusCode()) || t.opts.MaxRedirects <= 0 {
			return res, nil
		}
		if redirects >= t.opts.MaxRedirects {
			return semantic.Response{}, &TransportError{
				Op:  string(req.Method()),
				URI: req.URI().String(),
				Err: errors.Errorf("stopped after %d redirects", t.opts.MaxRedirects),
			}
		}

		next, err := redirectRequest(req, res.StatusCode(), location)
		if err != nil {
			return semantic.Response{}, &TransportError{Op: "redirect", URI: req.URI().String(), Err: err}
		}

		t.logger.Debug("following redirect", "from", req.URI().String(), "to", next.URI().String())
		req = next
	}
}

// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15.4
func isRedirect(code uint) bool {
	switch code {
	case 301, 302, 303, 307, 308:
		return true
	}
	return false
}

func redirectRequest(req semantic.Request, code uint, location string) (semantic.Request, error) {
	ref, err := uri.Parse(location)
	if err != nil {
		return semantic.Request{}, errors.Wrap(err, "parsing location")
	}

	resolver, err := uri.NewRefResolver(req.URI())
	if err != nil {
		return semantic.Request{}, errors.Wrap(err, "resolving location")
	}
	next := req.WithURI(resolver.Resolve(ref), false)

	// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15.4.4
	if code == 303 || ((code == 301 || code == 302) && req.Method() == semantic.MethodPost) {
		if next.Method() != semantic.MethodHead {
			if next, err = next.WithMethod(string(semantic.MethodGet)); err != nil {
				return semantic.Request{}, err
			}
		}
		next = next.
			WithoutHeader("Content-Type").
			WithoutHeader("Content-Length").
			WithBody(nil)
	}

	return next, nil
}

func (t *WireTransport) roundTrip(ctx context.Context, req semantic.Request) (semantic.Response, error) {
	con, err := t.dial(ctx, req.URI())
	if err != nil {
		return semantic.Response{}, err
	}
	defer con.Close()

	// Unblocks reads and writes once ctx is done.
	stop := context.AfterFunc(ctx, func() { con.Close() })
	defer stop()

	if err := t.writeRequest(con, req); err != nil {
		return semantic.Response{}, t.ctxErr(ctx, err)
	}

	res, err := t.readResponse(con, req)
	if err != nil {
		return semantic.Response{}, t.ctxErr(ctx, err)
	}
	return res, nil
}

func (t *WireTransport) ctxErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Wrap(ctxErr, err.Error())
	}
	return err
}

func (t *WireTransport) dial(ctx context.Context, u uri.URI) (net.Conn, error) {
	scheme := u.Scheme()
	if scheme != "http" && scheme != "https" {
		return nil, errors.Errorf("unsupported scheme %q", scheme)
	}
	if u.Host() == "" {
		return nil, errors.New("missing host")
	}

	port, ok := u.RawPort()
	if !ok {
		port, _ = uri.DefaultPort(scheme)
	}
	host := strings.TrimSuffix(strings.TrimPrefix(u.Host(), "["), "]")
	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))

	con, err := t.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "dialing")
	}

	if scheme == "http" {
		return con, nil
	}

	tlsCon := tls.Client(con, &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: !t.opts.VerifyTLS,
	})
	if err := tlsCon.HandshakeContext(ctx); err != nil {
		con.Close()
		return nil, errors.Wrap(err, "tls handshake")
	}

	return tlsCon, nil
}

func (t *WireTransport) writeRequest(w io.Writer, req semantic.Request) error {
	var err error
	if !req.HasHeader("User-Agent") && t.opts.UserAgent != "" {
		if req, err = req.WithHeader("User-Agent", t.opts.UserAgent); err != nil {
			return err
		}
	}
	// Connections are never reused.
	if req, err = req.WithHeader("Connection", "close"); err != nil {
		return err
	}

	raw := req.RawRequest()
	if req.HasBody() {
		// Read from a copy, so that the request can be sent again on redirects.
		contents, err := req.Body().Contents()
		if err != nil {
			return errors.Wrap(err, "reading request body")
		}
		raw.Body = io.NopCloser(strings.NewReader(contents))
	}

	if err := http.NewRequestEncoder(w, t.opts.Encode).Encode(raw); err != nil {
		return errors.Wrap(err, "writing request")
	}
	return nil
}

func (t *WireTransport) readResponse(r io.Reader, req semantic.Request) (semantic.Response, error) {
	counter := &iolib.CountingReader{R: r}
	dec := http.NewResponseDecoder(counter, t.opts.Decode)

	var raw http.Response
	if err := dec.Decode(&raw); err != nil {
		return semantic.Response{}, errors.Wrap(err, "reading response head")
	}

	headers := semantic.HeadersFrom(raw.Headers)

	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3-2.1
	if req.Method() == semantic.MethodHead ||
		raw.StatusCode < 200 || raw.StatusCode == 204 || raw.StatusCode == 304 {
		return t.toResponse(raw, nil)
	}

	// Bytes read past the head belong to the body.
	headerLen := uint64(dec.HeaderLength())
	total := int64(-1)
	if l, ok, err := contentLength(headers); err != nil {
		return semantic.Response{}, err
	} else if ok {
		total = int64(l)
	}
	report := func(n uint64) {
		if n > headerLen {
			t.listeners.notify(total, int64(n-headerLen))
		}
	}
	report(counter.N)
	counter.OnRead = report

	body, contentDecoded, err := t.decodeBody(raw.Body, headers)
	if err != nil {
		return semantic.Response{}, err
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return semantic.Response{}, errors.Wrap(err, "reading response body")
	}

	// Framing fields describe the body as it was on the wire.
	drop := []string{"Transfer-Encoding", "Content-Length"}
	if contentDecoded {
		drop = append(drop, "Content-Encoding")
	}
	raw.Headers = append(withoutFields(raw.Headers, drop...), http.Field{
		Name:  []byte("Content-Length"),
		Value: []byte(strconv.Itoa(len(data))),
	})

	return t.toResponse(raw, data)
}

// toResponse creates response of raw head with data as its seekable body.
// Responses without body, like the ones of HEAD, keep no body.
func (t *WireTransport) toResponse(raw http.Response, data []byte) (semantic.Response, error) {
	res, err := semantic.ResponseFromWire(raw, nil, semantic.ParseResponseOptions{})
	if err != nil {
		return semantic.Response{}, errors.Wrap(err, "creating response")
	}
	if data == nil {
		return res, nil
	}
	return res.WithBody(stream.NewBytes(data)), nil
}

// decodeBody removes transfer codings, then content codings, from body.
// Unsupported content codings are left for the caller.
func (t *WireTransport) decodeBody(body io.Reader, headers semantic.Headers) (io.Reader, bool, error) {
	if codings := transfer.ParseCodings(headers.Values("Transfer-Encoding")); len(codings) > 0 {
		decoded, err := t.transfer.Decode(body, codings, nil)
		if err != nil {
			return nil, false, errors.Wrap(err, "applying transfer coding to body")
		}
		body = decoded
	} else if l, ok, _ := contentLength(headers); ok {
		// Body is delimited by Content-Length.
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3-2.6
		body = iolib.LimitReader(body, l)
	}

	codings := transfer.ParseCodings(headers.Values("Content-Encoding"))
	if len(codings) == 0 {
		return body, false, nil
	}

	decoded, err := t.transfer.Decode(body, codings, nil)
	if errors.Is(err, transfer.ErrUnsupportedCoding) {
		return body, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "applying content coding to body")
	}
	return decoded, true, nil
}

func withoutFields(fields []http.Field, names ...string) []http.Field {
	out := make([]http.Field, 0, len(fields))
	for _, f := range fields {
		drop := false
		for _, name := range names {
			if strings.EqualFold(string(f.Name), name) {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, f)
		}
	}
	return out
}

func contentLength(headers semantic.Headers) (uint64, bool, error) {
	v, ok := headers.Get("Content-Length")
	if !ok {
		return 0, false, nil
	}
	l, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, false, errors.Wrap(err, "invalid content length")
	}
	return l, true, nil
}
