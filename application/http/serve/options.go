package serve

import (
	"time"

	"http-toolkit/application/http"
	"http-toolkit/application/http/semantic"
	"http-toolkit/application/http/transfer"
)

type Options struct {
	Serve ServeOptions

	ExtraTransferCoders []transfer.Coder
}

type ServeOptions struct {
	Decode http.DecodeOptions

	Parse semantic.ParseRequestOptions

	Timeout TimeoutOptions
}

type TimeoutOptions struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		Serve: ServeOptions{
			Decode: http.DefaultDecodeOptions,
			Timeout: TimeoutOptions{
				ReadTimeout: 30 * time.Second,
			},
		},
	}
}
