package stream

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Stream adapts an underlying resource into a body stream.
// Its capabilities are derived once on construction.
type Stream struct {
	r io.Reader
	w io.Writer
	s io.Seeker
	c io.Closer

	underlying any
	size       func() (int64, bool)

	readable, writable, seekable bool

	pos    int64
	eof    bool
	logger *slog.Logger
}

var (
	_ io.ReadWriteSeeker = (*Stream)(nil)
	_ io.Closer          = (*Stream)(nil)
)

type Option func(s *Stream)

// WithLogger sets the logger used on failures that are not returned to the caller.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Stream) { s.logger = logger }
}

func newStream(opts []Option) *Stream {
	s := &Stream{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewString returns readable, writable and seekable in-memory stream holding s.
func NewString(s string, opts ...Option) *Stream {
	return NewBytes([]byte(s), opts...)
}

// NewBytes returns readable, writable and seekable in-memory stream holding a copy of b.
func NewBytes(b []byte, opts ...Option) *Stream {
	mem := &memory{data: append([]byte(nil), b...)}

	st := newStream(opts)
	st.r, st.w, st.s = mem, mem, mem
	st.underlying = mem
	st.size = func() (int64, bool) { return mem.Size(), true }
	st.readable, st.writable, st.seekable = true, true, true

	return st
}

// Open opens file at path with flag and wraps it.
func Open(path string, flag int, opts ...Option) (*Stream, error) {
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "opening file")
	}

	return NewFile(f, flag, opts...), nil
}

// NewFile wraps f which was opened with flag.
// Readability and writability are derived from flag.
func NewFile(f *os.File, flag int, opts ...Option) *Stream {
	st := newStream(opts)
	st.underlying = f
	st.c = f

	switch flag & (os.O_RDONLY | os.O_WRONLY | os.O_RDWR) {
	case os.O_RDONLY:
		st.readable = true
	case os.O_WRONLY:
		st.writable = true
	case os.O_RDWR:
		st.readable, st.writable = true, true
	}
	if st.readable {
		st.r = f
	}
	if st.writable {
		st.w = f
	}

	if pos, err := f.Seek(0, io.SeekCurrent); err == nil {
		st.s = f
		st.seekable = true
		st.pos = pos
	}

	st.size = func() (int64, bool) {
		info, err := f.Stat()
		if err != nil {
			return 0, false
		}
		return info.Size(), true
	}

	return st
}

type sizer interface{ Size() int64 }

type lener interface{ Len() int }

// NewReader wraps r into read-only stream.
// It is seekable if r implements [io.Seeker], and closes r on Close if r implements [io.Closer].
func NewReader(r io.Reader, opts ...Option) *Stream {
	st := newStream(opts)
	st.underlying = r
	st.r = r
	st.readable = true

	if seeker, ok := r.(io.Seeker); ok {
		st.s = seeker
		st.seekable = true
	}
	if closer, ok := r.(io.Closer); ok {
		st.c = closer
	}

	st.size = func() (int64, bool) {
		switch v := r.(type) {
		case sizer:
			return v.Size(), true
		case lener:
			return int64(v.Len()) + st.pos, true
		}
		return 0, false
	}

	return st
}

func (s *Stream) IsReadable() bool { return s.underlying != nil && s.readable }
func (s *Stream) IsWritable() bool { return s.underlying != nil && s.writable }
func (s *Stream) IsSeekable() bool { return s.underlying != nil && s.seekable }

func (s *Stream) check(op string, allowed bool, err error) error {
	if s.underlying == nil {
		return &StateError{Op: op, Err: ErrDetached}
	}
	if !allowed {
		return &StateError{Op: op, Err: err}
	}
	return nil
}

func (s *Stream) Read(p []byte) (int, error) {
	if err := s.check("read", s.readable, ErrNotReadable); err != nil {
		return 0, err
	}

	n, err := s.r.Read(p)
	s.pos += int64(n)
	if err == io.EOF {
		s.eof = true
	}

	return n, err
}

// ReadN reads up to n bytes.
// Fewer bytes are returned only when the stream ends,
// [io.EOF] only when nothing was left to read.
func (s *Stream) ReadN(n int) ([]byte, error) {
	if n < 0 {
		return nil, &StateError{Op: "read", Err: ErrNegativeLength}
	}
	if err := s.check("read", s.readable, ErrNotReadable); err != nil {
		return nil, err
	}

	buf := make([]byte, n)
	read, err := io.ReadFull(s, buf)
	switch {
	case err == io.ErrUnexpectedEOF:
		s.eof = true
		return buf[:read], nil
	case err == io.EOF:
		s.eof = true
		return buf[:0], io.EOF
	case err != nil:
		return buf[:read], err
	}

	return buf, nil
}

func (s *Stream) Write(p []byte) (int, error) {
	if err := s.check("write", s.writable, ErrNotWritable); err != nil {
		return 0, err
	}

	n, err := s.w.Write(p)
	s.pos += int64(n)
	return n, err
}

func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	if err := s.check("seek", s.seekable, ErrNotSeekable); err != nil {
		return 0, err
	}

	pos, err := s.s.Seek(offset, whence)
	if err != nil {
		return 0, errors.Wrap(err, "seeking stream")
	}

	s.pos = pos
	s.eof = false
	return pos, nil
}

func (s *Stream) Rewind() error {
	_, err := s.Seek(0, io.SeekStart)
	return err
}

// Tell returns the current position.
func (s *Stream) Tell() (int64, error) {
	if s.underlying == nil {
		return 0, &StateError{Op: "tell", Err: ErrDetached}
	}
	return s.pos, nil
}

// EOF reports whether a read has hit the end of the stream.
func (s *Stream) EOF() bool {
	return s.underlying == nil || s.eof
}

// Size returns the size of the stream when it is known.
func (s *Stream) Size() (int64, bool) {
	if s.underlying == nil || s.size == nil {
		return 0, false
	}
	return s.size()
}

// Detach separates the underlying resource from the stream and returns it.
// Every operation on a detached stream fails with [ErrDetached].
func (s *Stream) Detach() any {
	underlying := s.underlying

	s.r, s.w, s.s, s.c = nil, nil, nil, nil
	s.underlying = nil
	s.size = nil
	s.readable, s.writable, s.seekable = false, false, false

	return underlying
}

// Close closes the underlying resource if it's closable, then detaches the stream.
// Closing detached stream is a no-op.
func (s *Stream) Close() error {
	if s.underlying == nil {
		return nil
	}

	c := s.c
	s.Detach()

	if c != nil {
		if err := c.Close(); err != nil {
			return errors.Wrap(err, "closing stream")
		}
	}

	return nil
}

// Contents rewinds the stream if it is seekable, then reads it to the end.
func (s *Stream) Contents() (string, error) {
	if err := s.check("read", s.readable, ErrNotReadable); err != nil {
		return "", err
	}

	if s.seekable {
		if err := s.Rewind(); err != nil {
			return "", err
		}
	}

	var b strings.Builder
	if _, err := io.Copy(&b, s); err != nil {
		return "", errors.Wrap(err, "reading contents")
	}
	s.eof = true

	return b.String(), nil
}

// String returns the contents of the stream.
// Failures are logged and result in empty string.
func (s *Stream) String() string {
	contents, err := s.Contents()
	if err != nil {
		s.logger.Error("failed to convert stream into string", "error", err.Error())
		return ""
	}
	return contents
}
