package serve

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"http-toolkit/application/http/transfer"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// Server answers every connection accepted from its listener with a single response.
type Server struct {
	l net.Listener

	cancel  context.CancelFunc
	closing atomic.Bool
	wg      sync.WaitGroup

	logger *slog.Logger
	opts   Options

	handle   HandleFunc
	sender   *Sender
	transfer *transfer.CodingPipeliner
	clock    clock.Clock
}

func New(
	l net.Listener,
	logger *slog.Logger,
	clock clock.Clock,
	handle HandleFunc,
	sender *Sender,
	opts Options,
) *Server {
	return &Server{
		l:        l,
		logger:   logger,
		opts:     opts,
		handle:   handle,
		sender:   sender,
		clock:    clock,
		transfer: transfer.NewCodingPipeliner(opts.ExtraTransferCoders),
	}
}

func (s *Server) Addr() net.Addr { return s.l.Addr() }

func (s *Server) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.acceptConn()
			if err != nil {
				if !s.closing.Load() {
					s.logger.Error(
						"unexpected error when accepting connection",
						"error", err.Error(),
					)
				}
				return
			}

			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				conn.start(ctx)
			}()
		}
	}()
}

func (s *Server) acceptConn() (*conn, error) {
	con, err := s.l.Accept()
	if err != nil {
		return nil, errors.Wrap(err, "listening for connection")
	}

	conn := &conn{
		con:      con,
		handle:   s.handle,
		sender:   s.sender,
		opts:     s.opts,
		logger:   s.logger.With("conn", con.RemoteAddr().String()),
		transfer: s.transfer,
		clock:    s.clock,
	}

	return conn, nil
}

// Close stops accepting connections, cancels in-flight transfers and waits for them.
func (s *Server) Close() error {
	s.closing.Store(true)
	err := s.l.Close()
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	if err != nil {
		return errors.Wrap(err, "closing listener")
	}
	return nil
}
