// Command fileserve serves files of a directory with byte ranges and optional throttling.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"http-toolkit/application/http/semantic"
	"http-toolkit/application/http/serve"
	"http-toolkit/internal/config"
	"http-toolkit/internal/logging"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fileserve:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	addr := flag.String("addr", cfg.Server.Addr, "listen address")
	root := flag.String("root", cfg.Server.Root, "directory to serve")
	rate := flag.Uint("rate", cfg.Transfer.RateKbps, "transfer rate in KiB/s, 0 for unlimited")
	force := flag.Bool("force", cfg.Server.ForceDownload, "send files as attachments")
	flag.Parse()

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	reg := prometheus.NewRegistry()
	metrics, err := serve.NewMetrics(reg)
	if err != nil {
		return err
	}

	clk := clock.New()
	sender := serve.NewSender(logger.Logger, clk, serve.SenderOptions{
		Encode: serve.DefaultSenderOptions().Encode,
		Engine: serve.EngineOptions{
			ChunkSize:          cfg.Transfer.ChunkSize,
			CalibrationDivisor: cfg.Transfer.CalibrationDivisor,
		},
		Debug:   logger,
		Metrics: metrics,
	})

	l, err := net.Listen("tcp", *addr)
	if err != nil {
		return errors.Wrap(err, "listening")
	}

	handle := serve.FileHandler(*root, semantic.FileOptions{Force: *force, RateKbps: *rate})
	s := serve.New(l, logger.Logger, clk, handle, sender, serve.DefaultOptions())
	s.Start()
	logger.Info("serving files", "addr", s.Addr().String(), "root", *root, "rate_kbps", *rate)

	var metricsServer *nethttp.Server
	if cfg.Metrics.Addr != "" {
		mux := nethttp.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsServer = &nethttp.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
				logger.Error("metrics endpoint stopped", "error", err.Error())
			}
		}()
		logger.Info("serving metrics", "addr", cfg.Metrics.Addr)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Warn("closing metrics endpoint", "error", err.Error())
		}
	}
	return s.Close()
}
