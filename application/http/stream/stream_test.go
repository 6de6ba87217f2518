package stream

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type MemoryStreamTestSuite struct {
	suite.Suite
	st *Stream
}

func TestMemoryStreamTestSuite(t *testing.T) {
	suite.Run(t, new(MemoryStreamTestSuite))
}

func (s *MemoryStreamTestSuite) SetupTest() {
	s.st = NewString("Hello, World!")
}

func (s *MemoryStreamTestSuite) TestCapabilities() {
	s.True(s.st.IsReadable())
	s.True(s.st.IsWritable())
	s.True(s.st.IsSeekable())

	size, ok := s.st.Size()
	s.True(ok)
	s.Equal(int64(13), size)
}

func (s *MemoryStreamTestSuite) TestReadN() {
	b, err := s.st.ReadN(5)
	s.Require().NoError(err)
	s.Equal("Hello", string(b))

	pos, err := s.st.Tell()
	s.Require().NoError(err)
	s.Equal(int64(5), pos)
	s.False(s.st.EOF())

	b, err = s.st.ReadN(100)
	s.Require().NoError(err)
	s.Equal(", World!", string(b))
	s.True(s.st.EOF())

	b, err = s.st.ReadN(1)
	s.ErrorIs(err, io.EOF)
	s.Empty(b)
}

func (s *MemoryStreamTestSuite) TestReadNegative() {
	_, err := s.st.ReadN(-1)

	var stateErr *StateError
	s.Require().True(errors.As(err, &stateErr))
	s.ErrorIs(err, ErrNegativeLength)
}

func (s *MemoryStreamTestSuite) TestWriteAndContents() {
	_, err := s.st.Seek(0, io.SeekEnd)
	s.Require().NoError(err)

	n, err := s.st.Write([]byte(" Bye."))
	s.Require().NoError(err)
	s.Equal(5, n)

	contents, err := s.st.Contents()
	s.Require().NoError(err)
	s.Equal("Hello, World! Bye.", contents)

	size, _ := s.st.Size()
	s.Equal(int64(18), size)
}

func (s *MemoryStreamTestSuite) TestOverwrite() {
	_, err := s.st.Seek(7, io.SeekStart)
	s.Require().NoError(err)

	_, err = s.st.Write([]byte("Gophers!"))
	s.Require().NoError(err)

	s.Equal("Hello, Gophers!", s.st.String())
}

func (s *MemoryStreamTestSuite) TestSeekClearsEOF() {
	_, err := io.ReadAll(s.st)
	s.Require().NoError(err)
	s.True(s.st.EOF())

	s.Require().NoError(s.st.Rewind())
	s.False(s.st.EOF())

	pos, err := s.st.Tell()
	s.Require().NoError(err)
	s.Zero(pos)
}

func (s *MemoryStreamTestSuite) TestSeekNegative() {
	_, err := s.st.Seek(-1, io.SeekStart)
	s.Error(err)
}

func (s *MemoryStreamTestSuite) TestContentsRewinds() {
	_, err := s.st.ReadN(5)
	s.Require().NoError(err)

	contents, err := s.st.Contents()
	s.Require().NoError(err)
	s.Equal("Hello, World!", contents)
}

func (s *MemoryStreamTestSuite) TestDetach() {
	underlying := s.st.Detach()
	s.NotNil(underlying)

	s.False(s.st.IsReadable())
	s.True(s.st.EOF())

	_, ok := s.st.Size()
	s.False(ok)

	_, err := s.st.Read(make([]byte, 1))
	s.ErrorIs(err, ErrDetached)

	_, err = s.st.Write([]byte("a"))
	s.ErrorIs(err, ErrDetached)

	_, err = s.st.Seek(0, io.SeekStart)
	s.ErrorIs(err, ErrDetached)

	_, err = s.st.Tell()
	s.ErrorIs(err, ErrDetached)

	s.Nil(s.st.Detach())
	s.NoError(s.st.Close())
}

func TestStreamStringLogsFailure(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	logger := slog.New(slog.NewTextHandler(buf, nil))

	st := NewString("data", WithLogger(logger))
	st.Detach()

	assert.Equal(t, "", st.String())
	assert.Contains(t, buf.String(), "failed to convert stream into string")
}

func TestNewReader(t *testing.T) {
	t.Run("seekable reader", func(t *testing.T) {
		st := NewReader(strings.NewReader("abc"))
		assert.True(t, st.IsReadable())
		assert.False(t, st.IsWritable())
		assert.True(t, st.IsSeekable())

		size, ok := st.Size()
		assert.True(t, ok)
		assert.Equal(t, int64(3), size)

		_, err := st.Write([]byte("x"))
		assert.ErrorIs(t, err, ErrNotWritable)
	})

	t.Run("plain reader", func(t *testing.T) {
		st := NewReader(io.LimitReader(strings.NewReader("abc"), 2))
		assert.False(t, st.IsSeekable())

		_, ok := st.Size()
		assert.False(t, ok)

		_, err := st.Seek(0, io.SeekStart)
		assert.ErrorIs(t, err, ErrNotSeekable)

		contents, err := st.Contents()
		require.NoError(t, err)
		assert.Equal(t, "ab", contents)
	})

	t.Run("closes closer", func(t *testing.T) {
		rc := &closeRecorder{Reader: strings.NewReader("abc")}
		st := NewReader(rc)

		require.NoError(t, st.Close())
		assert.True(t, rc.closed)
	})
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestFileStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))

	t.Run("read only", func(t *testing.T) {
		st, err := Open(path, os.O_RDONLY)
		require.NoError(t, err)
		defer st.Close()

		assert.True(t, st.IsReadable())
		assert.False(t, st.IsWritable())
		assert.True(t, st.IsSeekable())

		size, ok := st.Size()
		assert.True(t, ok)
		assert.Equal(t, int64(10), size)

		_, err = st.Seek(4, io.SeekStart)
		require.NoError(t, err)

		b, err := st.ReadN(3)
		require.NoError(t, err)
		assert.Equal(t, "456", string(b))

		_, err = st.Write([]byte("x"))
		assert.ErrorIs(t, err, ErrNotWritable)
	})

	t.Run("write only", func(t *testing.T) {
		st, err := Open(path, os.O_WRONLY|os.O_APPEND)
		require.NoError(t, err)

		assert.False(t, st.IsReadable())
		assert.True(t, st.IsWritable())

		_, err = st.Write([]byte("ab"))
		require.NoError(t, err)

		_, err = st.Contents()
		assert.ErrorIs(t, err, ErrNotReadable)

		require.NoError(t, st.Close())

		b, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "0123456789ab", string(b))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "missing"), os.O_RDONLY)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
