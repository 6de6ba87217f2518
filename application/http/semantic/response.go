package semantic

import (
	"io"
	"strconv"
	"time"

	"http-toolkit/application/http"
	"http-toolkit/application/http/semantic/status"
	"http-toolkit/application/http/stream"
	"http-toolkit/application/util/rule"

	"github.com/pkg/errors"
)

// Response is an immutable response message.
// It is either backed by its body stream, or bound to a local resource to be downloaded.
type Response struct {
	Message

	status status.Status

	resource *Resource
	window   RangeWindow
	rateKbps uint
}

// NewResponse creates a response with the status of code.
// Unknown codes fall back to 200 OK.
func NewResponse(code uint) Response {
	return Response{status: status.FromCode(code)}
}

func (r Response) Status() status.Status {
	if r.status.Code == 0 {
		return status.OK
	}
	return r.status
}

func (r Response) StatusCode() uint     { return r.Status().Code }
func (r Response) ReasonPhrase() string { return r.Status().ReasonPhrase }

// WithStatus sets the status of code.
// Unknown codes fall back to 200 OK.
func (r Response) WithStatus(code uint) Response {
	r.status = status.FromCode(code)
	return r
}

// WithReasonPhrase overrides the reason phrase of current status.
func (r Response) WithReasonPhrase(phrase string) (Response, error) {
	if rule.ContainsCTL(phrase) {
		return Response{}, errors.Errorf("invalid reason phrase: %q", phrase)
	}

	r.status = status.Status{Code: r.StatusCode(), ReasonPhrase: phrase}
	return r, nil
}

// Resource returns the resource to be downloaded.
func (r Response) Resource() (Resource, bool) {
	if r.resource == nil {
		return Resource{}, false
	}
	return *r.resource, true
}

// IsDownload reports whether the response is bound to a resource.
func (r Response) IsDownload() bool { return r.resource != nil }

// IsForceDownload reports whether the resource is sent as an attachment.
func (r Response) IsForceDownload() bool {
	return r.headers.Line("Content-Description") == "File Transfer"
}

// Window returns the span of the resource to be downloaded.
func (r Response) Window() RangeWindow { return r.window }

// RateKbps returns the throttle rate of download. 0 means unlimited.
func (r Response) RateKbps() uint { return r.rateKbps }

func (r Response) IsThrottled() bool { return r.rateKbps > 0 }

func (r Response) WithRate(kbps uint) Response {
	r.rateKbps = kbps
	return r
}

// WithDate sets Date header.
func (r Response) WithDate(t time.Time) Response {
	if h, err := r.headers.With("Date", FormatDate(t)); err == nil {
		r.headers = h
	}
	return r
}

// Date returns the value of Date header.
func (r Response) Date() (time.Time, bool) {
	v, ok := r.headers.Get("Date")
	if !ok {
		return time.Time{}, false
	}
	t, err := ParseDate(v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

type FileOptions struct {
	// Force sends the file as an attachment instead of displaying it.
	Force bool
	// RateKbps throttles the download. 0 means unlimited.
	RateKbps uint
}

// WithFile binds the file at path to be downloaded.
// Range header of req selects a part of the file with 206 Partial Content.
// A path that isn't a regular file results in 404 Not Found,
// and an unsatisfiable range in 416 Range Not Satisfiable.
func (r Response) WithFile(path string, req Request, opts FileOptions) Response {
	res, err := StatResource(path)
	if err != nil {
		r.resource = nil
		r.status = status.NotFound
		r.body = stream.NewString("file invalid:" + path)
		return r
	}

	r.resource = &res
	r.body = nil
	r.status = status.OK
	r.window = FullWindow(res.Size)
	r.rateKbps = opts.RateKbps

	headers := []Field{
		{Name: "Accept-Ranges", Values: []string{rangeUnit}},
		{Name: "Content-Type", Values: []string{res.MediaType}},
		{Name: "Pragma", Values: []string{"no-cache"}},
		{Name: "Cache-Control", Values: []string{"public, must-revalidate, max-age=0"}},
	}

	if header, ok := req.Range(); ok {
		window, err := ResolveRange(header, res.Size)
		if err != nil {
			r.resource = nil
			r.status = status.RangeNotSatisfiable
			r.body = stream.NewString("")
			return r.withFields(
				Field{Name: "Content-Range", Values: []string{"bytes */" + strconv.FormatUint(res.Size, 10)}},
				Field{Name: "Content-Length", Values: []string{"0"}},
			)
		}

		r.window = window
		r.status = status.PartialContent
		headers = append(headers, Field{Name: "Content-Range", Values: []string{window.ContentRange()}})
	}

	headers = append(headers, Field{
		Name: "Content-Length", Values: []string{strconv.FormatUint(r.window.Length(), 10)},
	})

	if opts.Force {
		headers = append(headers,
			Field{Name: "Content-Description", Values: []string{"File Transfer"}},
			Field{Name: "Content-Disposition", Values: []string{`attachment; filename="` + res.Name + `"`}},
			Field{Name: "Content-Transfer-Encoding", Values: []string{"binary"}},
		)
	}

	return r.withFields(headers...)
}

func (r Response) withFields(fields ...Field) Response {
	for _, f := range fields {
		if h, err := r.headers.With(f.Name, f.Values...); err == nil {
			r.headers = h
		}
	}
	return r
}

func (r Response) WithProtocolVersion(version string) (Response, error) {
	msg, err := r.Message.WithProtocolVersion(version)
	if err != nil {
		return Response{}, err
	}
	r.Message = msg
	return r, nil
}

func (r Response) WithHeader(name string, values ...string) (Response, error) {
	msg, err := r.Message.WithHeader(name, values...)
	if err != nil {
		return Response{}, err
	}
	r.Message = msg
	return r, nil
}

func (r Response) WithAddedHeader(name string, values ...string) (Response, error) {
	msg, err := r.Message.WithAddedHeader(name, values...)
	if err != nil {
		return Response{}, err
	}
	r.Message = msg
	return r, nil
}

func (r Response) WithoutHeader(name string) Response {
	r.Message = r.Message.WithoutHeader(name)
	return r
}

func (r Response) WithHeaders(h Headers) Response {
	r.Message = r.Message.WithHeaders(h)
	return r
}

// WithBody replaces the body.
// The response is no longer bound to a resource.
func (r Response) WithBody(body *stream.Stream) Response {
	if r.resource == nil && r.body == body {
		return r
	}

	r.Message = r.Message.WithBody(body)
	r.resource = nil
	r.window = RangeWindow{}
	return r
}

// String returns the contents of the body.
func (r Response) String() string { return r.Body().String() }

type ParseResponseOptions struct {
	ParseMessageOptions
}

// ResponseFromWire creates a response from a decoded response.
// Body is given separately, as transfer codings may have to be decoded first.
func ResponseFromWire(raw http.Response, body io.Reader, opts ParseResponseOptions) (Response, error) {
	msg, err := messageFromWire(raw.Version, raw.Headers, body, opts.ParseMessageOptions)
	if err != nil {
		return Response{}, err
	}

	// Unknown codes fall back to 200 OK, as with [NewResponse].
	res := Response{Message: msg, status: status.FromCode(raw.StatusCode)}
	if _, err := status.Lookup(raw.StatusCode); err == nil && raw.ReasonPhrase != "" {
		res.status.ReasonPhrase = raw.ReasonPhrase
	}

	return res, nil
}

// RawResponse converts the head of response into its wire form.
// Body of download responses is sent separately.
func (r Response) RawResponse() http.Response {
	raw := http.Response{
		StatusLine: http.StatusLine{
			Version:      r.version(),
			StatusCode:   r.StatusCode(),
			ReasonPhrase: r.ReasonPhrase(),
		},
		Headers: r.headers.ToRawFields(),
	}
	if r.body != nil && r.resource == nil {
		raw.Body = r.body
	}

	return raw
}
