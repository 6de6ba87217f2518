package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

type Config struct {
	Transfer TransferConfig
	Client   ClientConfig
	Server   ServerConfig
	Metrics  MetricsConfig
	Logging  LogConfig
}

// TransferConfig tunes the throttled transfer engine.
type TransferConfig struct {
	ChunkSize          int     `envconfig:"TRANSFER_CHUNK_SIZE" default:"16384"`
	CalibrationDivisor float64 `envconfig:"TRANSFER_CALIBRATION_DIVISOR" default:"4"`
	// RateKbps of zero sends at full speed.
	RateKbps uint `envconfig:"TRANSFER_RATE_KBPS" default:"0"`
}

type ClientConfig struct {
	Timeout      time.Duration `envconfig:"CLIENT_TIMEOUT" default:"30s"`
	MaxRedirects int           `envconfig:"CLIENT_MAX_REDIRECTS" default:"3"`
	VerifyTLS    bool          `envconfig:"CLIENT_VERIFY_TLS" default:"true"`
	UserAgent    string        `envconfig:"CLIENT_USER_AGENT" default:"http-toolkit/1.0"`
	RateLimitRPS float64       `envconfig:"CLIENT_RATE_LIMIT_RPS" default:"0"`
	RetryMax     int           `envconfig:"CLIENT_RETRY_MAX" default:"0"`
}

type ServerConfig struct {
	Addr          string `envconfig:"SERVER_ADDR" default:":8080"`
	Root          string `envconfig:"SERVER_ROOT" default:"."`
	ForceDownload bool   `envconfig:"SERVER_FORCE_DOWNLOAD" default:"false"`
}

type MetricsConfig struct {
	// Addr of the metrics endpoint. Empty disables it.
	Addr string `envconfig:"METRICS_ADDR" default:""`
}

type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "loading config")
	}
	return &cfg, nil
}

func Default() *Config {
	return &Config{
		Transfer: TransferConfig{
			ChunkSize:          16 * 1024,
			CalibrationDivisor: 4,
		},
		Client: ClientConfig{
			Timeout:      30 * time.Second,
			MaxRedirects: 3,
			VerifyTLS:    true,
			UserAgent:    "http-toolkit/1.0",
		},
		Server: ServerConfig{
			Addr: ":8080",
			Root: ".",
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}
