package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	testcases := []struct {
		desc        string
		cfg         Config
		debug       bool
		expectedErr bool
	}{
		{desc: "production", cfg: DefaultConfig()},
		{desc: "development debug", cfg: Config{Level: "debug", Development: true}, debug: true},
		{desc: "invalid level", cfg: Config{Level: "loud"}, expectedErr: true},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			l, err := New(tc.cfg)
			if tc.expectedErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.debug, l.Enabled())
			assert.NotNil(t, l.Zap())
		})
	}
}

func TestLoggerBridgesToZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewCore(core, zapcore.InfoLevel)

	l.Debug("hidden")
	l.Info("sent", "path", "/file", "bytes", 10)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "sent", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "/file", entries[0].ContextMap()["path"])
	assert.EqualValues(t, 10, entries[0].ContextMap()["bytes"])
}

func TestLoggerDebugSwitch(t *testing.T) {
	testcases := []struct {
		desc     string
		base     zapcore.Level
		disabled zapcore.Level
	}{
		{desc: "info base", base: zapcore.InfoLevel, disabled: zapcore.InfoLevel},
		{desc: "warn base", base: zapcore.WarnLevel, disabled: zapcore.WarnLevel},
		{desc: "debug base", base: zapcore.DebugLevel, disabled: zapcore.InfoLevel},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			l := NewCore(core, tc.base)

			l.SetEnabled(true)
			assert.True(t, l.Enabled())
			l.Debug("debugging")
			assert.Equal(t, 1, logs.FilterMessage("debugging").Len())

			l.SetEnabled(false)
			assert.False(t, l.Enabled())
			assert.Equal(t, tc.disabled, l.level.Level())
			l.Debug("quiet")
			assert.Equal(t, 0, logs.FilterMessage("quiet").Len())
		})
	}
}
