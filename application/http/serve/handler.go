package serve

import (
	"context"
	"net"
	"net/url"
	"path"
	"path/filepath"

	"http-toolkit/application/http"
	"http-toolkit/application/http/semantic"
	"http-toolkit/application/http/semantic/status"

	"github.com/pkg/errors"
)

type HandleFunc func(c *HandleContext, request semantic.Request) semantic.Response

type HandleContext struct {
	ctx context.Context

	remoteAddr net.Addr
	request    semantic.Request

	observers []Observer
	trailers  func() []http.Field
}

func (c *HandleContext) doHandle(handle HandleFunc) (res semantic.Response, err error) {
	defer func() {
		if e := recover(); e != nil {
			err = errors.Errorf("handler panicked: %s", e)
		}
	}()

	return handle(c, c.request), nil
}

func (c *HandleContext) Context() context.Context { return c.ctx }
func (c *HandleContext) RemoteAddr() net.Addr     { return c.remoteAddr }

// Observe attaches o to the transfer of the response, if it has one.
func (c *HandleContext) Observe(o Observer) {
	c.observers = append(c.observers, o)
}

// SetTrailers sets fn providing trailer fields sent after a chunked body.
// fn is called once the whole body has been written.
func (c *HandleContext) SetTrailers(fn func() []http.Field) {
	c.trailers = fn
}

// Error converts err into a response.
// [status.Error] keeps its status, anything else results in 500 Internal Server Error.
func (c *HandleContext) Error(err error) semantic.Response {
	if err == nil {
		err = errors.New("handler reported nil error")
	}

	if statusErr := new(status.Error); errors.As(err, statusErr) {
		return statusErrToResponse(*statusErr, false)
	}

	return statusErrToResponse(
		status.NewError(err, status.InternalServerError),
		false,
	)
}

// FileHandler serves regular files under root.
// Request path is resolved against root and never escapes it.
func FileHandler(root string, opts semantic.FileOptions) HandleFunc {
	return func(c *HandleContext, request semantic.Request) semantic.Response {
		switch request.Method() {
		case semantic.MethodGet, semantic.MethodHead:
		default:
			res, _ := c.Error(status.NewError(nil, status.MethodNotAllowed)).
				WithHeader("Allow", string(semantic.MethodGet), string(semantic.MethodHead))
			return res
		}

		p, err := url.PathUnescape(request.URI().Path())
		if err != nil {
			return c.Error(status.NewError(err, status.BadRequest))
		}

		name := filepath.Join(root, filepath.FromSlash(path.Clean("/"+p)))
		return semantic.NewResponse(200).WithFile(name, request, opts)
	}
}
