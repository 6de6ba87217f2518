package iolib

import (
	"io"

	"github.com/pkg/errors"
)

type nopWriteCloser struct{ w io.Writer }

func NopWriteCloser(w io.Writer) io.WriteCloser {
	return &nopWriteCloser{w: w}
}

func (nc *nopWriteCloser) Close() error {
	return nil
}

func (nc *nopWriteCloser) Write(p []byte) (n int, err error) {
	return nc.w.Write(p)
}

// WriteFull writes whole buf into w, retrying short writes.
func WriteFull(w io.Writer, buf []byte) (uint, error) {
	total := uint(0)
	for total < uint(len(buf)) {
		n, err := w.Write(buf[total:])
		total += uint(n)
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrShortWrite
		}
	}
	return total, nil
}

// CountingReader reports the running total of bytes read through it.
type CountingReader struct {
	R      io.Reader
	N      uint64
	OnRead func(total uint64)
}

func (cr *CountingReader) Read(p []byte) (int, error) {
	n, err := cr.R.Read(p)
	if n > 0 {
		cr.N += uint64(n)
		if cr.OnRead != nil {
			cr.OnRead(cr.N)
		}
	}
	if err != nil && err != io.EOF {
		return n, errors.Wrap(err, "reading from source")
	}
	return n, err
}
