package serve

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"

	"http-toolkit/application/http"
	"http-toolkit/application/http/semantic"
	"http-toolkit/application/http/semantic/status"
	"http-toolkit/application/http/stream"
	"http-toolkit/application/http/transfer"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

type conn struct {
	con net.Conn

	handle   HandleFunc
	sender   *Sender
	transfer *transfer.CodingPipeliner
	clock    clock.Clock

	logger *slog.Logger

	opts Options
}

func (c *conn) start(ctx context.Context) {
	defer func() {
		c.logger.Debug("closing connection")
		if err := c.con.Close(); err != nil {
			c.logger.Error("error when closing connection", "error", err.Error())
		}
	}()

	err := c.serve(ctx)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		// no-op.
	case errors.Is(err, io.EOF):
		c.logger.Debug("connection closed before request")
	default:
		c.logger.Error("unknown error occured", "error", err.Error())
	}
}

// serve answers a single request. Connections are never reused.
func (c *conn) serve(ctx context.Context) error {
	var (
		response semantic.Response
		d        delivery
	)

	request, err := c.readRequest()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return err
		}
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-9
		response = statusErrToResponse(toStatusError(err), true)
		c.logger.Info("rejecting malformed request", "error", err.Error())
	} else {
		hctx := &HandleContext{
			ctx:        ctx,
			remoteAddr: c.con.RemoteAddr(),
			request:    request,
		}

		response, err = hctx.doHandle(c.handle)
		if err != nil {
			c.logger.Error("unexpected error while handling request", "error", err.Error())
			response = statusErrToResponse(status.NewError(nil, status.InternalServerError), true)
		}

		d.observers = hctx.observers
		d.trailers = hctx.trailers
		// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-9.3.2
		d.skipBody = request.Method() == semantic.MethodHead
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.1-15
		d.chunked = request.ProtocolVersion() != "1.0"
	}

	if err := c.writeResponse(ctx, response, d); err != nil {
		return errors.Wrap(err, "unexpected error while writing response")
	}

	c.logger.Debug("response sent", "status", response.StatusCode())
	return nil
}

func (c *conn) readRequest() (semantic.Request, error) {
	if timeout := c.opts.Serve.Timeout.ReadTimeout; timeout > 0 {
		if err := c.con.SetReadDeadline(c.clock.Now().Add(timeout)); err != nil {
			return semantic.Request{}, errors.Wrap(err, "setting read deadline")
		}
	}

	var raw http.Request
	if err := http.NewRequestDecoder(c.con, c.opts.Serve.Decode).Decode(&raw); err != nil {
		return semantic.Request{}, err
	}

	request, err := semantic.RequestFromWire(raw, c.opts.Serve.Parse)
	if err != nil {
		return semantic.Request{}, errors.Wrap(err, "failed to create a semantic request")
	}

	codings := request.TransferCodings()
	switch {
	case len(codings) > 0:
		if !request.IsChunked() {
			// The message body length cannot be determined reliably.
			// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3-2.4.3
			return semantic.Request{}, errors.New("transfer encoding without chunked. cannot determine body length")
		}

		// Body is delimited by last chunk.
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3-2.4.1
		body, err := c.transfer.Decode(request.Body(), codings, nil)
		if err != nil {
			// Could be [transfer.ErrUnsupportedCoding]
			return semantic.Request{}, errors.Wrap(err, "applying transfer coding to body")
		}
		request = request.WithBody(stream.NewReader(body))
	case !request.HasHeader("Content-Length"):
		// Neither transfer-encoding nor content-length exists.
		// So it has no body.
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3-2.7
		request = request.WithBody(nil)
	}

	return request, nil
}

// delivery describes how a response is written.
type delivery struct {
	skipBody bool
	// chunked is set when the client accepts chunked transfer coding.
	chunked   bool
	trailers  func() []http.Field
	observers []Observer
}

func (c *conn) writeResponse(ctx context.Context, response semantic.Response, d delivery) error {
	if timeout := c.opts.Serve.Timeout.WriteTimeout; timeout > 0 {
		if err := c.con.SetWriteDeadline(c.clock.Now().Add(timeout)); err != nil {
			return errors.Wrap(err, "setting write deadline")
		}
	}

	// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-6.6.1-6
	response = response.WithDate(c.clock.Now())

	response, err := response.WithHeader("Connection", "close")
	if err != nil {
		return err
	}

	if !response.IsDownload() {
		if response, err = withFraming(response, d.chunked); err != nil {
			return err
		}
	}

	bw := bufio.NewWriter(c.con)
	if d.skipBody {
		err = c.sender.SendHead(bw, response)
	} else {
		err = c.sender.SendWithTrailers(ctx, bw, response, d.trailers, d.observers...)
	}
	if err != nil {
		return err
	}

	return errors.Wrap(bw.Flush(), "flushing response")
}

// withFraming makes the body length of a body-backed response explicit.
// A response with transfer codings is sent chunked without Content-Length.
// A body of unknown size is sent chunked when allowed, buffered otherwise.
// Transfer codings are dropped when chunked is not allowed.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3
func withFraming(response semantic.Response, chunked bool) (semantic.Response, error) {
	if !chunked {
		response = response.WithoutHeader("Transfer-Encoding")
	}

	if codings := response.TransferCodings(); len(codings) > 0 {
		response = response.WithoutHeader("Content-Length")
		if response.IsChunked() {
			return response, nil
		}
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.1-14
		return response.WithAddedHeader("Transfer-Encoding", string(transfer.CodingChunked))
	}

	if response.HasHeader("Content-Length") {
		return response, nil
	}

	body := response.Body()
	size, ok := body.Size()
	if !ok {
		if chunked {
			return response.WithHeader("Transfer-Encoding", string(transfer.CodingChunked))
		}

		contents, err := body.Contents()
		if err != nil {
			return semantic.Response{}, errors.Wrap(err, "buffering response body")
		}
		body = stream.NewString(contents)
		size = int64(len(contents))
		response = response.WithBody(body)
	}

	return response.WithHeader("Content-Length", strconv.FormatInt(size, 10))
}

// toStatusError converts error into [status.Error].
// It assumes that error is returned when reading request,
// so if it isn't any specific error, it will return error with [status.BadRequest].
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-9
func toStatusError(err error) status.Error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return status.NewError(nil, status.RequestTimeout)
	}

	if errors.Is(err, semantic.ErrURITooLong) {
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3-4
		return status.NewError(err, status.RequestURITooLong)
	}

	if errors.Is(err, transfer.ErrUnsupportedCoding) {
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.1-11
		return status.NewError(err, status.NotImplemented)
	}

	return status.NewError(err, status.BadRequest)
}

func statusErrToResponse(se status.Error, skipBody bool) semantic.Response {
	res := semantic.NewResponse(se.Status.Code)

	if skipBody || se.Cause() == nil {
		return res
	}

	return res.WithBody(stream.NewString(se.Cause().Error()))
}
