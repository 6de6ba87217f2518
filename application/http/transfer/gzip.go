package transfer

import (
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// GzipCoder implements gzip coding, used both as transfer coding and content coding.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-8.4.1.3
type GzipCoder struct{ coding Coding }

var _ Coder = GzipCoder{}

func NewGzipCoder(coding Coding) GzipCoder { return GzipCoder{coding: coding} }

func (gc GzipCoder) Coding() Coding { return gc.coding }

// NewReader defers reading gzip header until the first Read.
func (GzipCoder) NewReader(r io.Reader) io.Reader { return &gzipReader{src: r} }

func (GzipCoder) NewWriter(w io.WriteCloser) io.WriteCloser {
	return &gzipWriter{Writer: gzip.NewWriter(w), dst: w}
}

type gzipReader struct {
	src io.Reader
	zr  *gzip.Reader
}

func (gr *gzipReader) Read(p []byte) (int, error) {
	if gr.zr == nil {
		zr, err := gzip.NewReader(gr.src)
		if err != nil {
			return 0, errors.Wrap(err, "reading gzip header")
		}
		gr.zr = zr
	}

	return gr.zr.Read(p)
}

type gzipWriter struct {
	*gzip.Writer
	dst io.WriteCloser
}

func (gw *gzipWriter) Close() error {
	if err := gw.Writer.Close(); err != nil {
		return errors.Wrap(err, "closing gzip writer")
	}
	return gw.dst.Close()
}
