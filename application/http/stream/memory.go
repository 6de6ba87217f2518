package stream

import (
	"io"

	"github.com/pkg/errors"
)

// memory is a growable in-memory file.
type memory struct {
	data []byte
	off  int64
}

var _ io.ReadWriteSeeker = (*memory)(nil)

func (m *memory) Read(p []byte) (int, error) {
	if m.off >= int64(len(m.data)) {
		return 0, io.EOF
	}

	n := copy(p, m.data[m.off:])
	m.off += int64(n)
	return n, nil
}

func (m *memory) Write(p []byte) (int, error) {
	end := m.off + int64(len(p))
	if end > int64(len(m.data)) {
		if end > int64(cap(m.data)) {
			grown := make([]byte, end, max(end, 2*int64(cap(m.data))))
			copy(grown, m.data)
			m.data = grown
		} else {
			m.data = m.data[:end]
		}
	}

	n := copy(m.data[m.off:], p)
	m.off += int64(n)
	return n, nil
}

func (m *memory) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = m.off + offset
	case io.SeekEnd:
		abs = int64(len(m.data)) + offset
	default:
		return 0, errors.Errorf("invalid whence: %d", whence)
	}

	if abs < 0 {
		return 0, errors.New("negative position")
	}

	m.off = abs
	return abs, nil
}

func (m *memory) Size() int64 { return int64(len(m.data)) }
