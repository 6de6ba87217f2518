package bytesutil

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

var ErrLimitExceeded = errors.New("delimiter not found within limit")

// ReadUntil reads from r until delim. The output will include delim.
// [io.EOF] is returned only when nothing was read,
// [io.ErrUnexpectedEOF] when r ends before delim.
// If limit is greater than zero, reading stops with [ErrLimitExceeded]
// once more than limit bytes were consumed without finding delim.
func ReadUntil(r *bufio.Reader, delim []byte, limit uint) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	last := delim[len(delim)-1]
	for {
		b, err := r.ReadSlice(last)
		buf.Write(b)

		if limit > 0 && uint(buf.Len()) > limit {
			return nil, ErrLimitExceeded
		}

		switch {
		case err == nil:
			if bytes.HasSuffix(buf.Bytes(), delim) {
				return buf.Bytes(), nil
			}
		case errors.Is(err, bufio.ErrBufferFull):
			// Keep reading, the line is longer than the reader's buffer.
		case err == io.EOF:
			if buf.Len() == 0 {
				return nil, io.EOF
			}
			return nil, io.ErrUnexpectedEOF
		default:
			return nil, err
		}
	}
}
