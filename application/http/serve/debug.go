package serve

import (
	"log/slog"
)

// DebugSwitch toggles a debugging facility that must stay quiet while file bytes are sent.
type DebugSwitch interface {
	Enabled() bool
	SetEnabled(enabled bool)
}

// LevelSwitch turns debug logging of a [slog.LevelVar] on and off.
type LevelSwitch struct {
	Level *slog.LevelVar
	// Fallback is the level set on disabling.
	Fallback slog.Level
}

func (ls LevelSwitch) Enabled() bool { return ls.Level.Level() <= slog.LevelDebug }

func (ls LevelSwitch) SetEnabled(enabled bool) {
	if enabled {
		ls.Level.Set(slog.LevelDebug)
		return
	}
	if ls.Enabled() {
		ls.Level.Set(ls.Fallback)
	}
}

// suspend disables d and returns the function restoring it.
func suspend(d DebugSwitch) (restore func()) {
	if d == nil {
		return func() {}
	}

	prev := d.Enabled()
	d.SetEnabled(false)
	return func() { d.SetEnabled(prev) }
}
