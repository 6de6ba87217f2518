package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TRANSFER_CHUNK_SIZE", "4096")
	t.Setenv("TRANSFER_CALIBRATION_DIVISOR", "2.5")
	t.Setenv("TRANSFER_RATE_KBPS", "64")
	t.Setenv("CLIENT_TIMEOUT", "5s")
	t.Setenv("CLIENT_MAX_REDIRECTS", "0")
	t.Setenv("CLIENT_VERIFY_TLS", "false")
	t.Setenv("CLIENT_RATE_LIMIT_RPS", "0.5")
	t.Setenv("SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("SERVER_FORCE_DOWNLOAD", "true")
	t.Setenv("METRICS_ADDR", ":9100")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, TransferConfig{ChunkSize: 4096, CalibrationDivisor: 2.5, RateKbps: 64}, cfg.Transfer)
	assert.Equal(t, 5*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 0, cfg.Client.MaxRedirects)
	assert.False(t, cfg.Client.VerifyTLS)
	assert.Equal(t, 0.5, cfg.Client.RateLimitRPS)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.True(t, cfg.Server.ForceDownload)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadInvalid(t *testing.T) {
	testcases := []struct {
		desc  string
		key   string
		value string
	}{
		{desc: "chunk size", key: "TRANSFER_CHUNK_SIZE", value: "big"},
		{desc: "timeout", key: "CLIENT_TIMEOUT", value: "soon"},
		{desc: "verify tls", key: "CLIENT_VERIFY_TLS", value: "maybe"},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
