package serve

import (
	"context"
	"io"
	"log/slog"
	"os"

	"http-toolkit/application/http"
	"http-toolkit/application/http/semantic"
	"http-toolkit/application/http/stream"
	"http-toolkit/application/http/transfer"
	iolib "http-toolkit/lib/io"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

type SenderOptions struct {
	Encode http.EncodeOptions
	Engine EngineOptions

	// Debug is suspended while a resource is being sent. Optional.
	Debug DebugSwitch
	// Metrics tracks every resource sent. Optional.
	Metrics *Metrics

	ExtraTransferCoders []transfer.Coder
}

func DefaultSenderOptions() SenderOptions {
	return SenderOptions{Engine: DefaultEngineOptions()}
}

// Sender writes responses into sinks.
type Sender struct {
	logger   *slog.Logger
	clock    clock.Clock
	opts     SenderOptions
	transfer *transfer.CodingPipeliner
}

func NewSender(logger *slog.Logger, clock clock.Clock, opts SenderOptions) *Sender {
	return &Sender{
		logger:   logger,
		clock:    clock,
		opts:     opts,
		transfer: transfer.NewCodingPipeliner(opts.ExtraTransferCoders),
	}
}

// SendHead writes status line and headers of res.
func (s *Sender) SendHead(w io.Writer, res semantic.Response) error {
	enc := http.NewResponseEncoder(w, s.opts.Encode)
	if err := enc.EncodeHead(res.RawResponse()); err != nil {
		return errors.Wrap(err, "writing response head")
	}
	return nil
}

// Send writes res into w.
// A response bound to a resource streams the resource window,
// through the engine when it is throttled or ranged.
// Observers are attached to the engine.
func (s *Sender) Send(ctx context.Context, w io.Writer, res semantic.Response, observers ...Observer) error {
	return s.SendWithTrailers(ctx, w, res, nil, observers...)
}

// SendWithTrailers is [Sender.Send] for responses whose body is transfer-coded.
// Fields returned by trailers are sent after the last chunk.
func (s *Sender) SendWithTrailers(
	ctx context.Context,
	w io.Writer,
	res semantic.Response,
	trailers func() []http.Field,
	observers ...Observer,
) error {
	if err := s.SendHead(w, res); err != nil {
		return err
	}

	if res.IsDownload() {
		return s.sendResource(ctx, w, res, observers)
	}

	codings := res.TransferCodings()
	if len(codings) == 0 {
		return s.sendBody(w, res.Body())
	}

	enc, err := s.transfer.Encode(iolib.NopWriteCloser(w), codings, trailers)
	if err != nil {
		return errors.Wrap(err, "applying transfer coding to body")
	}
	if err := s.sendBody(enc, res.Body()); err != nil {
		return err
	}
	return errors.Wrap(enc.Close(), "finishing transfer coded body")
}

func (s *Sender) sendBody(w io.Writer, body *stream.Stream) error {
	if body.IsSeekable() {
		if err := body.Rewind(); err != nil {
			return errors.Wrap(err, "rewinding body")
		}
	}

	if _, err := io.Copy(w, body); err != nil {
		return errors.Wrap(err, "writing response body")
	}
	return nil
}

func (s *Sender) sendResource(ctx context.Context, w io.Writer, res semantic.Response, observers []Observer) (err error) {
	resource, _ := res.Resource()
	logger := s.logger.With("resource", resource.Path)

	src, err := stream.Open(resource.Path, os.O_RDONLY, stream.WithLogger(logger))
	if err != nil {
		return errors.Wrap(err, "opening resource")
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			logger.Error("failed to close resource", "error", cerr.Error())
		}
	}()

	restore := suspend(s.opts.Debug)
	defer restore()

	window := res.Window()
	ranged := window.Length() != window.Total

	if !res.IsThrottled() && !ranged {
		n, err := io.CopyN(w, src, int64(window.Length()))
		if s.opts.Metrics != nil {
			s.opts.Metrics.Sent(uint64(n), err == nil)
		}
		return errors.Wrap(err, "writing resource")
	}

	engine := NewEngine(logger, s.clock, s.opts.Engine)
	for _, o := range observers {
		engine.Attach(o)
	}
	if s.opts.Metrics != nil {
		engine.Attach(s.opts.Metrics.Track())
		defer func() {
			if err != nil {
				s.opts.Metrics.Aborted()
			}
		}()
	}

	return engine.Run(ctx, src, w, window, res.RateKbps())
}
