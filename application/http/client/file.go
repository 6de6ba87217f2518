package client

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"strconv"

	"http-toolkit/application/http/semantic"
	"http-toolkit/application/http/semantic/status"
	"http-toolkit/application/http/stream"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

// FileTransport answers requests of file URIs from the local file system.
type FileTransport struct {
	logger *slog.Logger
}

func NewFileTransport(logger *slog.Logger) *FileTransport {
	return &FileTransport{logger: logger}
}

func (t *FileTransport) Execute(ctx context.Context, req semantic.Request) (semantic.Response, error) {
	u := req.URI()
	if u.Scheme() != "file" {
		return semantic.Response{}, &TransportError{Op: "open", URI: u.String(), Err: errors.New("not a file uri")}
	}

	path, err := url.PathUnescape(u.Path())
	if err != nil {
		return semantic.Response{}, &TransportError{Op: "open", URI: u.String(), Err: err}
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		t.logger.Debug("file not found", "path", path)
		return semantic.NewResponse(status.NotFound.Code).
			WithBody(stream.NewString("file not found: " + path)), nil
	}
	if err != nil {
		return semantic.Response{}, &TransportError{Op: "open", URI: u.String(), Err: err}
	}

	res, err := semantic.NewResponse(status.OK.Code).WithHeader("Content-Type", mimetype.Detect(data).String())
	if err != nil {
		return semantic.Response{}, err
	}
	if res, err = res.WithHeader("Content-Length", strconv.Itoa(len(data))); err != nil {
		return semantic.Response{}, err
	}

	if req.Method() == semantic.MethodHead {
		return res, nil
	}
	return res.WithBody(stream.NewBytes(data)), nil
}
