package transfer

import (
	"io"
	"strings"

	"http-toolkit/application/http"

	"github.com/pkg/errors"
)

type Coding string

const (
	CodingChunked Coding = "chunked"
	CodingGzip    Coding = "gzip"
	CodingXGzip   Coding = "x-gzip"
)

type Coder interface {
	Coding() Coding
	NewReader(r io.Reader) io.Reader
	NewWriter(w io.WriteCloser) io.WriteCloser
}

// ParseCodings converts list-based field values of
// Transfer-Encoding or Content-Encoding into codings, in applied order.
func ParseCodings(values []string) []Coding {
	codings := make([]Coding, 0, len(values))
	for _, value := range values {
		for _, token := range strings.Split(value, ",") {
			token = strings.ToLower(strings.TrimSpace(token))
			if token == "" || token == "identity" {
				continue
			}
			codings = append(codings, Coding(token))
		}
	}
	return codings
}

type CodingPipeliner struct{ coders map[Coding]Coder }

func NewCodingPipeliner(customs []Coder) *CodingPipeliner {
	cp := &CodingPipeliner{}
	cp.coders = map[Coding]Coder{
		CodingChunked: NewChunkedCoder(),
		CodingGzip:    NewGzipCoder(CodingGzip),
		CodingXGzip:   NewGzipCoder(CodingXGzip),
	}

	for _, coder := range customs {
		cp.coders[coder.Coding()] = coder
	}

	return cp
}

var ErrUnsupportedCoding = errors.New("coding is unsupported")

// Decode wraps r so that codings are removed in reverse order of application.
func (cp *CodingPipeliner) Decode(r io.Reader, codings []Coding, onTrailer func(f []http.Field)) (io.Reader, error) {
	for idx := len(codings) - 1; idx >= 0; idx-- {
		coding := codings[idx]
		coder, ok := cp.coders[coding]
		if !ok {
			return nil, errors.Wrapf(ErrUnsupportedCoding, "decoding %q", coding)
		}

		r = coder.NewReader(r)
		if chunkedReader, ok := r.(*ChunkedReader); ok && onTrailer != nil {
			chunkedReader.SetOnTrailerReceived(func(f []http.Field) {
				if len(f) == 0 {
					return
				}
				onTrailer(f)
			})
		}
	}

	return r, nil
}

// Encode wraps w so that codings are applied in given order.
// Closing the returned writer closes every writer in the pipeline.
func (cp *CodingPipeliner) Encode(w io.WriteCloser, codings []Coding, sendTrailers func() []http.Field) (io.WriteCloser, error) {
	for idx := len(codings) - 1; idx >= 0; idx-- {
		coding := codings[idx]
		coder, ok := cp.coders[coding]
		if !ok {
			return nil, errors.Wrapf(ErrUnsupportedCoding, "encoding %q", coding)
		}

		w = coder.NewWriter(w)
		if chunkedWriter, ok := w.(*ChunkedWriter); ok && sendTrailers != nil {
			chunkedWriter.SetSendTrailers(sendTrailers)
		}
	}

	return w, nil
}
