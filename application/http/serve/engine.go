package serve

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"http-toolkit/application/http/semantic"
	"http-toolkit/application/http/stream"
	iolib "http-toolkit/lib/io"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

type State uint8

const (
	StateIdle State = iota
	StateSending
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

// Sink receives transferred bytes.
// Sinks implementing [Flusher] are flushed after every chunk.
type Sink = io.Writer

type Flusher interface {
	Flush() error
}

// DefaultCalibrationDivisor scales the nominal rate down to the effective one.
// Rate of 1 kbps is served as 1024/DefaultCalibrationDivisor bytes per second.
const DefaultCalibrationDivisor = 4

const DefaultChunkSize = 16 * 1024

type EngineOptions struct {
	// ChunkSize is the maximum number of bytes read and written per step.
	ChunkSize int
	// CalibrationDivisor tunes the throttle. See [SleepInterval].
	CalibrationDivisor float64
}

func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		ChunkSize:          DefaultChunkSize,
		CalibrationDivisor: DefaultCalibrationDivisor,
	}
}

var ErrEngineUsed = errors.New("engine has already run")

// Engine streams a window of a resource into a sink,
// optionally throttled, while reporting progress to attached observers.
// An engine runs once.
type Engine struct {
	Subject

	logger *slog.Logger
	clock  clock.Clock
	opts   EngineOptions

	mu       sync.RWMutex
	state    State
	window   semantic.RangeWindow
	progress Progress
}

func NewEngine(logger *slog.Logger, clock clock.Clock, opts EngineOptions) *Engine {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.CalibrationDivisor <= 0 {
		opts.CalibrationDivisor = DefaultCalibrationDivisor
	}

	return &Engine{
		logger: logger,
		clock:  clock,
		opts:   opts,
	}
}

func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *Engine) Progress() Progress {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.progress
}

func (e *Engine) Window() semantic.RangeWindow {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.window
}

// Notify calls attached observers in attachment order.
func (e *Engine) Notify() { e.Subject.notify(e) }

// SleepInterval returns how long to pause after sending n bytes at kbps.
// Zero rate means unlimited.
func SleepInterval(n int, kbps uint, divisor float64) time.Duration {
	if kbps == 0 || n <= 0 {
		return 0
	}
	if divisor <= 0 {
		divisor = DefaultCalibrationDivisor
	}

	bytesPerSec := float64(kbps) * 1024 / divisor
	micros := float64(n) / bytesPerSec * 1e6
	return time.Duration(micros) * time.Microsecond
}

// Run sends the bytes of window from src into sink.
// Context is checked between chunks. Errors abort the transfer and are never retried.
func (e *Engine) Run(ctx context.Context, src *stream.Stream, sink Sink, window semantic.RangeWindow, rateKbps uint) error {
	total := window.End + 1
	if window.Total == 0 {
		total = 0
	}

	e.mu.Lock()
	if e.state != StateIdle {
		e.mu.Unlock()
		return ErrEngineUsed
	}
	e.state = StateSending
	e.window = window
	e.progress = Progress{BytesSent: window.Start, TotalBytes: total}
	if e.progress.BytesSent > total {
		e.progress.BytesSent = total
	}
	e.progress.LastReportedPercent = e.progress.Percent()
	e.mu.Unlock()

	logger := e.logger.With("window", window.ContentRange(), "rate_kbps", rateKbps)
	logger.Debug("starting transfer")

	if window.Start > 0 {
		if _, err := src.Seek(int64(window.Start), io.SeekStart); err != nil {
			return e.abort(logger, errors.Wrap(err, "seeking to range start"))
		}
	}

	r := iolib.LimitReader(src, window.Length())
	buf := make([]byte, e.opts.ChunkSize)
	flusher, _ := sink.(Flusher)

	for {
		if err := ctx.Err(); err != nil {
			return e.abort(logger, errors.Wrap(err, "transfer cancelled"))
		}

		n, rerr := r.Read(buf)
		if n > 0 {
			if _, err := iolib.WriteFull(sink, buf[:n]); err != nil {
				return e.abort(logger, errors.Wrap(err, "writing chunk"))
			}
			if flusher != nil {
				if err := flusher.Flush(); err != nil {
					return e.abort(logger, errors.Wrap(err, "flushing chunk"))
				}
			}

			if d := SleepInterval(n, rateKbps, e.opts.CalibrationDivisor); d > 0 {
				e.clock.Sleep(d)
			}

			if e.advance(uint64(n)) {
				e.Notify()
			}
		}

		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return e.abort(logger, errors.Wrap(rerr, "reading chunk"))
		}
	}

	e.mu.Lock()
	e.progress.BytesSent = e.progress.TotalBytes
	e.progress.LastReportedPercent = 100
	e.state = StateCompleted
	e.mu.Unlock()

	e.Notify()
	logger.Debug("transfer completed")

	return nil
}

// advance adds n to the bytes sent and reports whether the floor percent has changed.
func (e *Engine) advance(n uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := &e.progress
	p.BytesSent += n
	if p.BytesSent > p.TotalBytes {
		p.BytesSent = p.TotalBytes
	}

	percent := p.Percent()
	if percent == p.LastReportedPercent {
		return false
	}
	p.LastReportedPercent = percent
	return true
}

func (e *Engine) abort(logger *slog.Logger, err error) error {
	e.mu.Lock()
	e.state = StateAborted
	e.mu.Unlock()

	logger.Error("transfer aborted", "error", err.Error())
	return err
}
