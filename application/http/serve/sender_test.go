package serve

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"http-toolkit/application/http"
	"http-toolkit/application/http/semantic"
	"http-toolkit/application/http/stream"
	"http-toolkit/application/http/transfer"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
)

type SenderTestSuite struct {
	suite.Suite

	content []byte
	path    string
	level   *slog.LevelVar
	sender  *Sender
}

func TestSenderTestSuite(t *testing.T) {
	suite.Run(t, new(SenderTestSuite))
}

func (s *SenderTestSuite) SetupTest() {
	s.content = testContent()
	s.path = writeTestFile(s.T(), s.content)

	s.level = new(slog.LevelVar)
	s.level.Set(slog.LevelDebug)

	opts := DefaultSenderOptions()
	opts.Debug = LevelSwitch{Level: s.level, Fallback: slog.LevelInfo}
	s.sender = NewSender(discardLogger(), clock.NewMock(), opts)
}

func (s *SenderTestSuite) download(rangeHeader string, opts semantic.FileOptions) semantic.Response {
	req, err := semantic.ParseRequest("GET", "http://example.com/data.txt")
	s.Require().NoError(err)

	if rangeHeader != "" {
		req, err = req.WithHeader("Range", rangeHeader)
		s.Require().NoError(err)
	}

	res := semantic.NewResponse(200).WithFile(s.path, req, opts)
	s.Require().True(res.IsDownload())
	return res
}

// split separates head and body of the written response.
func (s *SenderTestSuite) split(out []byte) (string, []byte) {
	head, body, ok := bytes.Cut(out, []byte("\r\n\r\n"))
	s.Require().True(ok)
	return string(head), body
}

func (s *SenderTestSuite) TestSendRange() {
	res := s.download("bytes=500-", semantic.FileOptions{})

	var debugDuring []bool
	observer := ObserverFunc(func(e *Engine) {
		debugDuring = append(debugDuring, s.level.Level() <= slog.LevelDebug)
	})

	var out bytes.Buffer
	s.Require().NoError(s.sender.Send(context.Background(), &out, res, observer))

	head, body := s.split(out.Bytes())
	s.True(strings.HasPrefix(head, "HTTP/1.1 206 Partial Content\r\n"))
	s.Contains(head, "Content-Range: bytes 500-999/1000")
	s.Contains(head, "Content-Length: 500")
	s.Equal(s.content[500:], body)

	s.NotEmpty(debugDuring)
	for _, enabled := range debugDuring {
		s.False(enabled)
	}
	s.Equal(slog.LevelDebug, s.level.Level())
}

func (s *SenderTestSuite) TestSendFull() {
	res := s.download("", semantic.FileOptions{Force: true})

	notified := false
	observer := ObserverFunc(func(*Engine) { notified = true })

	var out bytes.Buffer
	s.Require().NoError(s.sender.Send(context.Background(), &out, res, observer))

	head, body := s.split(out.Bytes())
	s.True(strings.HasPrefix(head, "HTTP/1.1 200 OK\r\n"))
	s.Contains(head, `Content-Disposition: attachment; filename="data.txt"`)
	s.Equal(s.content, body)
	// Neither throttled nor ranged: sent in one pass.
	s.False(notified)
	s.Equal(slog.LevelDebug, s.level.Level())
}

func (s *SenderTestSuite) TestSendBody() {
	body := stream.NewString("hello")
	_, err := body.ReadN(2)
	s.Require().NoError(err)

	res := semantic.NewResponse(404).WithBody(body)

	var out bytes.Buffer
	s.Require().NoError(s.sender.Send(context.Background(), &out, res))

	head, written := s.split(out.Bytes())
	s.Equal("HTTP/1.1 404 Not Found", head)
	s.Equal("hello", string(written))
}

func (s *SenderTestSuite) TestSendHead() {
	res := s.download("", semantic.FileOptions{})

	var out bytes.Buffer
	s.Require().NoError(s.sender.SendHead(&out, res))

	head, body := s.split(out.Bytes())
	s.Contains(head, "Content-Length: 1000")
	s.Empty(body)
}

func (s *SenderTestSuite) TestSendMissingResource() {
	res := s.download("", semantic.FileOptions{})
	s.Require().NoError(os.Remove(s.path))

	var out bytes.Buffer
	err := s.sender.Send(context.Background(), &out, res)
	s.Error(err)
	s.Equal(slog.LevelDebug, s.level.Level())
}

func (s *SenderTestSuite) TestSendChunked() {
	res, err := semantic.NewResponse(200).
		WithBody(stream.NewReader(strings.NewReader("hello world"))).
		WithHeader("Transfer-Encoding", "chunked")
	s.Require().NoError(err)

	trailers := func() []http.Field {
		return []http.Field{{Name: []byte("Checksum"), Value: []byte("abc")}}
	}

	var out bytes.Buffer
	s.Require().NoError(s.sender.SendWithTrailers(context.Background(), &out, res, trailers))

	head, body := s.split(out.Bytes())
	s.Contains(head, "Transfer-Encoding: chunked")
	s.NotContains(head, "Content-Length")
	s.Equal("b\r\nhello world\r\n0\r\nChecksum: abc\r\n\r\n", string(body))
}

func (s *SenderTestSuite) TestSendGzipChunked() {
	res, err := semantic.NewResponse(200).
		WithBody(stream.NewString(strings.Repeat("hello ", 100))).
		WithHeader("Transfer-Encoding", "gzip", "chunked")
	s.Require().NoError(err)

	var out bytes.Buffer
	s.Require().NoError(s.sender.Send(context.Background(), &out, res))

	head, body := s.split(out.Bytes())
	s.Contains(head, "Transfer-Encoding: gzip, chunked")

	var trailers []http.Field
	decoded, err := transfer.NewCodingPipeliner(nil).Decode(
		bytes.NewReader(body),
		res.TransferCodings(),
		func(f []http.Field) { trailers = f },
	)
	s.Require().NoError(err)

	content, err := io.ReadAll(decoded)
	s.Require().NoError(err)
	s.Equal(strings.Repeat("hello ", 100), string(content))
	s.Empty(trailers)
}

func (s *SenderTestSuite) TestSendUnsupportedTransferCoding() {
	res, err := semantic.NewResponse(200).
		WithBody(stream.NewString("hello")).
		WithHeader("Transfer-Encoding", "br", "chunked")
	s.Require().NoError(err)

	var out bytes.Buffer
	s.ErrorIs(s.sender.Send(context.Background(), &out, res), transfer.ErrUnsupportedCoding)
}

func (s *SenderTestSuite) TestSendFullRecordsMetrics() {
	m, err := NewMetrics(prometheus.NewRegistry())
	s.Require().NoError(err)

	opts := DefaultSenderOptions()
	opts.Metrics = m
	sender := NewSender(discardLogger(), clock.NewMock(), opts)

	var out bytes.Buffer
	s.Require().NoError(sender.Send(context.Background(), &out, s.download("", semantic.FileOptions{})))

	s.Equal(float64(len(s.content)), testutil.ToFloat64(m.bytes))
	s.Equal(float64(1), testutil.ToFloat64(m.transfers.WithLabelValues("completed")))
	s.Equal(float64(0), testutil.ToFloat64(m.transfers.WithLabelValues("aborted")))
}
