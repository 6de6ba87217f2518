package client

import (
	"context"
	"log/slog"

	"http-toolkit/application/http/semantic"
	"http-toolkit/application/http/semantic/status"
	"http-toolkit/application/http/stream"

	"golang.org/x/time/rate"
)

// Transport performs the exchange of a request.
// Non-2xx statuses are responses, only transport failures are errors.
type Transport interface {
	Execute(ctx context.Context, req semantic.Request) (semantic.Response, error)
}

type Options struct {
	// RateLimit is the number of requests per second. 0 means unlimited.
	RateLimit float64
	// Burst is the number of requests sent at once under rate limit.
	Burst int
}

func DefaultOptions() Options {
	return Options{Burst: 1}
}

// Client routes requests to transports.
// file URIs are read locally, everything else goes through the network transport.
type Client struct {
	logger *slog.Logger

	transport Transport
	files     Transport
	limiter   *rate.Limiter
}

func New(logger *slog.Logger, transport Transport, opts Options) *Client {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Client{
		logger:    logger,
		transport: transport,
		files:     NewFileTransport(logger),
		limiter:   limiter,
	}
}

// Do executes req, waiting for the rate limiter first.
func (c *Client) Do(ctx context.Context, req semantic.Request) (semantic.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return semantic.Response{}, &TransportError{Op: "wait", URI: req.URI().String(), Err: err}
	}

	if req.URI().Scheme() == "file" {
		return c.files.Execute(ctx, req)
	}
	return c.transport.Execute(ctx, req)
}

// SendRequest executes req and never fails.
// Transport failures are logged and turned into 520 Unknown Error responses
// carrying the failure in their body.
func (c *Client) SendRequest(ctx context.Context, req semantic.Request) semantic.Response {
	res, err := c.Do(ctx, req)
	if err != nil {
		c.logger.Error("request failed", "request", req.String(), "error", err.Error())
		return semantic.NewResponse(status.UnknownError.Code).
			WithBody(stream.NewString("Error: " + err.Error()))
	}

	return res
}
