package serve

import (
	"bytes"
	"io"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"http-toolkit/application/http"
	"http-toolkit/application/http/semantic"
	"http-toolkit/application/http/stream"
	"http-toolkit/application/http/transfer"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"
)

type ServerTestSuite struct {
	suite.Suite

	content []byte
	root    string
	server  *Server

	mu     sync.Mutex
	handle HandleFunc
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (s *ServerTestSuite) SetupTest() {
	s.content = testContent()
	s.root = filepath.Dir(writeTestFile(s.T(), s.content))
	s.handle = FileHandler(s.root, semantic.FileOptions{})

	l, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)

	opts := DefaultOptions()
	opts.Serve.Timeout = TimeoutOptions{}

	mock := clock.NewMock()
	sender := NewSender(discardLogger(), mock, DefaultSenderOptions())
	s.server = New(l, discardLogger(), mock,
		func(c *HandleContext, request semantic.Request) semantic.Response {
			s.mu.Lock()
			handle := s.handle
			s.mu.Unlock()
			return handle(c, request)
		},
		sender, opts,
	)
	s.server.Start()
}

func (s *ServerTestSuite) TearDownTest() {
	s.Require().NoError(s.server.Close())
}

func (s *ServerTestSuite) setHandle(handle HandleFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handle = handle
}

func (s *ServerTestSuite) roundTrip(raw string) (string, []byte) {
	con, err := net.Dial("tcp", s.server.Addr().String())
	s.Require().NoError(err)
	defer con.Close()

	_, err = io.WriteString(con, raw)
	s.Require().NoError(err)

	out, err := io.ReadAll(con)
	s.Require().NoError(err)

	head, body, ok := bytes.Cut(out, []byte("\r\n\r\n"))
	s.Require().True(ok, "response: %q", out)
	return string(head), body
}

func (s *ServerTestSuite) TestServeRange() {
	head, body := s.roundTrip("GET /data.txt HTTP/1.1\r\nHost: example.com\r\nRange: bytes=500-\r\n\r\n")

	s.True(strings.HasPrefix(head, "HTTP/1.1 206 Partial Content\r\n"))
	s.Contains(head, "Content-Range: bytes 500-999/1000")
	s.Contains(head, "Connection: close")
	s.Contains(head, "Date: Thu, 01 Jan 1970 00:00:00 GMT")
	s.Equal(s.content[500:], body)
}

func (s *ServerTestSuite) TestServeFull() {
	head, body := s.roundTrip("GET /sub/../data.txt HTTP/1.1\r\nHost: example.com\r\n\r\n")

	s.True(strings.HasPrefix(head, "HTTP/1.1 200 OK\r\n"))
	s.Contains(head, "Content-Length: 1000")
	s.Equal(s.content, body)
}

func (s *ServerTestSuite) TestServeHead() {
	head, body := s.roundTrip("HEAD /data.txt HTTP/1.1\r\nHost: example.com\r\n\r\n")

	s.Contains(head, "Content-Length: 1000")
	s.Empty(body)
}

func (s *ServerTestSuite) TestServeNotSatisfiable() {
	head, body := s.roundTrip("GET /data.txt HTTP/1.1\r\nHost: example.com\r\nRange: bytes=5000-\r\n\r\n")

	s.True(strings.HasPrefix(head, "HTTP/1.1 416 Range Not Satisfiable\r\n"))
	s.Contains(head, "Content-Range: bytes */1000")
	s.Empty(body)
}

func (s *ServerTestSuite) TestServeNotFound() {
	head, body := s.roundTrip("GET /missing.txt HTTP/1.1\r\nHost: example.com\r\n\r\n")

	s.True(strings.HasPrefix(head, "HTTP/1.1 404 Not Found\r\n"))
	s.Equal("file invalid:"+filepath.Join(s.root, "missing.txt"), string(body))
}

func (s *ServerTestSuite) TestServeMethodNotAllowed() {
	head, _ := s.roundTrip("DELETE /data.txt HTTP/1.1\r\nHost: example.com\r\n\r\n")

	s.True(strings.HasPrefix(head, "HTTP/1.1 405 Method Not Allowed\r\n"))
	s.Contains(head, "Allow: GET, HEAD")
}

func (s *ServerTestSuite) TestServeMalformed() {
	head, body := s.roundTrip("GARBAGE\r\n")

	s.True(strings.HasPrefix(head, "HTTP/1.1 400 Bad Request\r\n"))
	s.Contains(head, "Content-Length: 0")
	s.Empty(body)
}

func (s *ServerTestSuite) TestServeChunkedBody() {
	s.setHandle(func(c *HandleContext, request semantic.Request) semantic.Response {
		contents, err := request.Body().Contents()
		if err != nil {
			return c.Error(err)
		}
		return semantic.NewResponse(200).WithBody(stream.NewString(strings.ToUpper(contents)))
	})

	head, body := s.roundTrip("POST /echo HTTP/1.1\r\nHost: example.com\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n")

	s.True(strings.HasPrefix(head, "HTTP/1.1 200 OK\r\n"))
	s.Contains(head, "Content-Length: 11")
	s.Equal("HELLO WORLD", string(body))
}

func (s *ServerTestSuite) TestServeUnknownSizeBody() {
	s.setHandle(func(c *HandleContext, request semantic.Request) semantic.Response {
		c.SetTrailers(func() []http.Field {
			return []http.Field{{Name: []byte("Checksum"), Value: []byte("abc")}}
		})
		return semantic.NewResponse(200).WithBody(stream.NewReader(strings.NewReader("hello world")))
	})

	testcases := []struct {
		desc         string
		version      string
		expectedHead string
		expectedBody string
	}{
		{
			desc:         "chunked with trailers",
			version:      "HTTP/1.1",
			expectedHead: "Transfer-Encoding: chunked",
			expectedBody: "b\r\nhello world\r\n0\r\nChecksum: abc\r\n\r\n",
		},
		{
			desc:         "buffered for HTTP/1.0",
			version:      "HTTP/1.0",
			expectedHead: "Content-Length: 11",
			expectedBody: "hello world",
		},
	}
	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			head, body := s.roundTrip("GET /stream " + tc.version + "\r\nHost: example.com\r\n\r\n")

			s.True(strings.HasPrefix(head, "HTTP/1.1 200 OK\r\n"))
			s.Contains(head, tc.expectedHead)
			s.Equal(tc.expectedBody, string(body))
		})
	}
}

func (s *ServerTestSuite) TestServeTransferCodedBody() {
	s.setHandle(func(c *HandleContext, request semantic.Request) semantic.Response {
		res, err := semantic.NewResponse(200).
			WithBody(stream.NewString("hello")).
			WithHeader("Content-Length", "5")
		if err != nil {
			return c.Error(err)
		}
		res, err = res.WithHeader("Transfer-Encoding", "gzip")
		if err != nil {
			return c.Error(err)
		}
		return res
	})

	head, body := s.roundTrip("GET /gzip HTTP/1.1\r\nHost: example.com\r\n\r\n")

	s.Contains(head, "Transfer-Encoding: gzip, chunked")
	s.NotContains(head, "Content-Length")

	decoded, err := transfer.NewCodingPipeliner(nil).Decode(
		bytes.NewReader(body),
		[]transfer.Coding{transfer.CodingGzip, transfer.CodingChunked},
		nil,
	)
	s.Require().NoError(err)

	content, err := io.ReadAll(decoded)
	s.Require().NoError(err)
	s.Equal("hello", string(content))
}

func (s *ServerTestSuite) TestServePanic() {
	s.setHandle(func(*HandleContext, semantic.Request) semantic.Response {
		panic("boom")
	})

	head, body := s.roundTrip("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n")

	s.True(strings.HasPrefix(head, "HTTP/1.1 500 Internal Server Error\r\n"))
	s.Empty(body)
}

func (s *ServerTestSuite) TestServeObserved() {
	var (
		mu   sync.Mutex
		last Progress
	)
	s.setHandle(func(c *HandleContext, request semantic.Request) semantic.Response {
		c.Observe(ObserverFunc(func(e *Engine) {
			mu.Lock()
			defer mu.Unlock()
			last = e.Progress()
		}))
		return FileHandler(s.root, semantic.FileOptions{})(c, request)
	})

	_, body := s.roundTrip("GET /data.txt HTTP/1.1\r\nHost: example.com\r\nRange: bytes=-100\r\n\r\n")

	s.Equal(s.content[900:], body)

	mu.Lock()
	defer mu.Unlock()
	s.Equal(Progress{BytesSent: 1000, TotalBytes: 1000, LastReportedPercent: 100}, last)
}
