// Command fetch sends one request and prints the response.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"http-toolkit/application/http/client"
	"http-toolkit/application/http/semantic"
	"http-toolkit/internal/config"
	"http-toolkit/internal/logging"

	"github.com/pkg/errors"
)

type headerFlags []string

func (h *headerFlags) String() string     { return strings.Join(*h, ", ") }
func (h *headerFlags) Set(v string) error { *h = append(*h, v); return nil }

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fetch:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var headers headerFlags
	method := flag.String("X", "GET", "request method")
	data := flag.String("d", "", "request body")
	include := flag.Bool("i", false, "print response head")
	useResty := flag.Bool("resty", false, "send through the retrying net/http transport")
	progress := flag.Bool("progress", false, "report download progress on stderr")
	flag.Var(&headers, "H", "request header as \"Name: value\", repeatable")
	flag.Parse()

	if flag.NArg() != 1 {
		return errors.New("usage: fetch [flags] <uri>")
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	req, err := semantic.ParseRequest(*method, flag.Arg(0))
	if err != nil {
		return err
	}
	for _, h := range headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return errors.Errorf("invalid header %q", h)
		}
		if req, err = req.WithAddedHeader(strings.TrimSpace(name), strings.TrimSpace(value)); err != nil {
			return err
		}
	}
	if *data != "" {
		req = req.WithPayload(*data)
	}

	var transport client.Transport
	if *useResty {
		rt := client.NewRestyTransport(logger.Logger, client.RestyOptions{
			Timeout:      cfg.Client.Timeout,
			MaxRedirects: cfg.Client.MaxRedirects,
			VerifyTLS:    cfg.Client.VerifyTLS,
			UserAgent:    cfg.Client.UserAgent,
			RetryMax:     cfg.Client.RetryMax,
			RetryWaitMin: client.DefaultRestyOptions().RetryWaitMin,
			RetryWaitMax: client.DefaultRestyOptions().RetryWaitMax,
		})
		defer rt.Close()
		transport = rt
	} else {
		wt := client.NewWireTransport(logger.Logger, client.WireOptions{
			Encode:       client.DefaultWireOptions().Encode,
			Decode:       client.DefaultWireOptions().Decode,
			Timeout:      cfg.Client.Timeout,
			MaxRedirects: cfg.Client.MaxRedirects,
			VerifyTLS:    cfg.Client.VerifyTLS,
			UserAgent:    cfg.Client.UserAgent,
		})
		if *progress {
			wt.RegisterProgressListener(stderrProgress{})
		}
		transport = wt
	}

	opts := client.DefaultOptions()
	opts.RateLimit = cfg.Client.RateLimitRPS
	c := client.New(logger.Logger, transport, opts)

	res := c.SendRequest(context.Background(), req)
	if *include {
		fmt.Printf("HTTP/%s %d %s\r\n", res.ProtocolVersion(), res.StatusCode(), res.ReasonPhrase())
		for _, f := range res.Headers().Fields() {
			for _, v := range f.Values {
				fmt.Printf("%s: %s\r\n", f.Name, v)
			}
		}
		fmt.Print("\r\n")
	}
	fmt.Print(res.String())
	return nil
}

type stderrProgress struct{}

func (stderrProgress) Progress(total, downloaded int64, percent float64) {
	fmt.Fprintf(os.Stderr, "\r%d/%d bytes (%.0f%%)", downloaded, total, percent)
	if downloaded >= total {
		fmt.Fprintln(os.Stderr)
	}
}
