package client

import (
	"context"
	"crypto/tls"
	"log/slog"
	nethttp "net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"http-toolkit/application/http"
	"http-toolkit/application/http/semantic"
	"http-toolkit/application/http/stream"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

type RestyOptions struct {
	Timeout      time.Duration
	MaxRedirects int
	VerifyTLS    bool
	UserAgent    string

	// RetryMax is the number of retries on connection errors and 5xx responses.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

func DefaultRestyOptions() RestyOptions {
	return RestyOptions{
		Timeout:      30 * time.Second,
		MaxRedirects: 3,
		VerifyTLS:    true,
		UserAgent:    "http-toolkit/1.0",
		RetryMax:     0,
		RetryWaitMin: time.Second,
		RetryWaitMax: 30 * time.Second,
	}
}

// RestyTransport exchanges requests through resty over a retrying net/http client.
type RestyTransport struct {
	logger *slog.Logger
	client *resty.Client
	http   *nethttp.Client
}

func NewRestyTransport(logger *slog.Logger, opts RestyOptions) *RestyTransport {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	retryClient.RetryWaitMin = opts.RetryWaitMin
	retryClient.RetryWaitMax = opts.RetryWaitMax
	retryClient.Logger = nil
	// Error statuses are responses, not failures.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	if !opts.VerifyTLS {
		if tr, ok := retryClient.HTTPClient.Transport.(*nethttp.Transport); ok {
			tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
	}

	client := resty.NewWithClient(retryClient.StandardClient()).
		SetTimeout(opts.Timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(opts.MaxRedirects))
	if opts.MaxRedirects <= 0 {
		client.SetRedirectPolicy(resty.NoRedirectPolicy())
	}
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}

	return &RestyTransport{logger: logger, client: client, http: retryClient.HTTPClient}
}

// Close closes idle connections kept by the underlying client.
func (t *RestyTransport) Close() {
	t.http.CloseIdleConnections()
}

func (t *RestyTransport) Execute(ctx context.Context, req semantic.Request) (semantic.Response, error) {
	r := t.client.R().SetContext(ctx)

	for _, f := range req.Headers().Fields() {
		// Host is taken from the URI.
		if f.Name == "Host" {
			continue
		}
		for _, v := range f.Values {
			r.Header.Add(f.Name, v)
		}
	}

	if upload, ok := req.Payload().(*semantic.Upload); ok {
		closeFiles, err := setMultipart(r, upload)
		defer closeFiles()
		if err != nil {
			return semantic.Response{}, &TransportError{Op: "encode", URI: req.URI().String(), Err: err}
		}
	} else {
		encoded, err := EncodeBody(req)
		if err != nil {
			return semantic.Response{}, &TransportError{Op: "encode", URI: req.URI().String(), Err: err}
		}
		if encoded.HasBody() {
			contents, err := encoded.Body().Contents()
			if err != nil {
				return semantic.Response{}, &TransportError{Op: "encode", URI: req.URI().String(), Err: err}
			}
			if ct, ok := encoded.Headers().Get("Content-Type"); ok {
				r.SetHeader("Content-Type", ct)
			}
			r.SetBody([]byte(contents))
		}
	}

	resp, err := r.Execute(string(req.Method()), req.URI().String())
	if err != nil {
		return semantic.Response{}, &TransportError{Op: string(req.Method()), URI: req.URI().String(), Err: err}
	}

	res, err := fromRestyResponse(resp)
	if err != nil {
		return semantic.Response{}, &TransportError{Op: "decode", URI: req.URI().String(), Err: err}
	}
	return res, nil
}

// setMultipart attaches upload to r. Returned function closes attached files.
func setMultipart(r *resty.Request, upload *semantic.Upload) (func(), error) {
	var files []*os.File
	closeFiles := func() {
		for _, f := range files {
			f.Close()
		}
	}

	fields := make(map[string]string, upload.Fields.Len())
	upload.Fields.Each(func(name, value string) bool {
		fields[name] = value
		return true
	})
	r.SetMultipartFormData(fields)

	for _, file := range upload.Files {
		mt, err := mimetype.DetectFile(file.Path)
		if err != nil {
			return closeFiles, errors.Wrapf(err, "detecting media type of %q", file.Path)
		}

		f, err := os.Open(file.Path)
		if err != nil {
			return closeFiles, errors.Wrapf(err, "opening %q", file.Path)
		}
		files = append(files, f)

		filename := file.Name
		if filename == "" {
			filename = filepath.Base(file.Path)
		}
		r.SetMultipartField(file.Name, filename, mt.String(), f)
	}

	return closeFiles, nil
}

func fromRestyResponse(resp *resty.Response) (semantic.Response, error) {
	rawResp := resp.RawResponse

	names := make([]string, 0, len(rawResp.Header))
	for name := range rawResp.Header {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]http.Field, 0, len(names))
	for _, name := range names {
		for _, v := range rawResp.Header[name] {
			fields = append(fields, http.Field{Name: []byte(name), Value: []byte(v)})
		}
	}

	body := resp.Body()
	raw := http.Response{
		StatusLine: http.StatusLine{
			Version:      http.Version{uint(rawResp.ProtoMajor), uint(rawResp.ProtoMinor)},
			StatusCode:   uint(resp.StatusCode()),
			ReasonPhrase: reasonPhrase(rawResp.Status),
		},
		Headers: withoutFields(fields, "Content-Length"),
	}
	raw.Headers = append(raw.Headers, http.Field{
		Name:  []byte("Content-Length"),
		Value: []byte(strconv.Itoa(len(body))),
	})

	res, err := semantic.ResponseFromWire(raw, nil, semantic.ParseResponseOptions{})
	if err != nil {
		return semantic.Response{}, err
	}
	return res.WithBody(stream.NewBytes(body)), nil
}

// reasonPhrase extracts the phrase of net/http status like "200 OK".
func reasonPhrase(status string) string {
	if _, phrase, ok := strings.Cut(status, " "); ok {
		return phrase
	}
	return ""
}
