package client

import (
	"context"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"http-toolkit/application/http/semantic"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RestyTransportTestSuite struct {
	suite.Suite

	srv       *httptest.Server
	transport *RestyTransport
}

func TestRestyTransportTestSuite(t *testing.T) {
	suite.Run(t, new(RestyTransportTestSuite))
}

func (s *RestyTransportTestSuite) SetupTest() {
	mux := nethttp.NewServeMux()
	mux.HandleFunc("/status", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("X-Agent", r.UserAgent())
		w.Header().Set("X-Custom", r.Header.Get("X-Custom"))
		w.WriteHeader(nethttp.StatusAccepted)
		io.WriteString(w, "accepted")
	})
	mux.HandleFunc("/echo", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", r.Header.Get("Content-Type"))
		w.Header().Set("X-Method", r.Method)
		io.Copy(w, r.Body)
	})
	mux.HandleFunc("/upload", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
			return
		}
		f, header, err := r.FormFile("doc")
		if err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
			return
		}
		defer f.Close()

		w.Header().Set("X-Field", r.FormValue("k"))
		w.Header().Set("X-Filename", header.Filename)
		io.Copy(w, f)
	})

	s.srv = httptest.NewServer(mux)
	s.transport = NewRestyTransport(discardLogger(), DefaultRestyOptions())
}

func (s *RestyTransportTestSuite) TearDownTest() {
	s.transport.Close()
	s.srv.Close()
}

func (s *RestyTransportTestSuite) request(method, path string) semantic.Request {
	return mustRequest(s.T(), method, s.srv.URL+path)
}

func (s *RestyTransportTestSuite) TestStatusAndHeaders() {
	req, err := s.request("GET", "/status").WithHeader("X-Custom", "value")
	s.Require().NoError(err)

	res, err := s.transport.Execute(context.Background(), req)
	s.Require().NoError(err)

	s.Equal(uint(202), res.StatusCode())
	s.Equal("Accepted", res.ReasonPhrase())
	s.Equal("1.1", res.ProtocolVersion())
	s.Equal("http-toolkit/1.0", res.HeaderLine("X-Agent"))
	s.Equal("value", res.HeaderLine("X-Custom"))
	s.Equal("8", res.HeaderLine("Content-Length"))
	s.Equal("accepted", res.String())
}

func (s *RestyTransportTestSuite) TestBodyReadTwice() {
	res, err := s.transport.Execute(context.Background(), s.request("GET", "/status"))
	s.Require().NoError(err)

	s.True(res.Body().IsSeekable())
	s.Equal("accepted", res.String())
	s.Equal("accepted", res.String())
}

func (s *RestyTransportTestSuite) TestJSONPayload() {
	req := s.request("POST", "/echo").WithPayload(map[string]int{"answer": 42})

	res, err := s.transport.Execute(context.Background(), req)
	s.Require().NoError(err)

	s.Equal("POST", res.HeaderLine("X-Method"))
	s.Equal("application/json", res.HeaderLine("Content-Type"))
	s.JSONEq(`{"answer":42}`, res.String())
}

func (s *RestyTransportTestSuite) TestMultipartUpload() {
	path := writeFile(s.T(), "doc.txt", "uploaded contents")
	upload := semantic.NewUpload().AddField("k", "v").AddFile("doc", path)

	res, err := s.transport.Execute(context.Background(), s.request("POST", "/upload").WithPayload(upload))
	s.Require().NoError(err)

	s.Equal(uint(200), res.StatusCode(), res.String())
	s.Equal("v", res.HeaderLine("X-Field"))
	s.Equal("doc", res.HeaderLine("X-Filename"))
	s.Equal("uploaded contents", res.String())
}

func (s *RestyTransportTestSuite) TestNotFound() {
	res, err := s.transport.Execute(context.Background(), s.request("GET", "/missing"))
	s.Require().NoError(err)

	s.Equal(uint(404), res.StatusCode())
	s.Equal("Not Found", res.ReasonPhrase())
}

func TestReasonPhrase(t *testing.T) {
	assert.Equal(t, "Not Found", reasonPhrase("404 Not Found"))
	assert.Equal(t, "", reasonPhrase("404"))
}

func TestRestyTransportUnreachable(t *testing.T) {
	tr := NewRestyTransport(discardLogger(), DefaultRestyOptions())
	defer tr.Close()

	_, err := tr.Execute(context.Background(), mustRequest(t, "GET", "http://"+closedAddr(t)+"/"))

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "GET", transportErr.Op)
}
