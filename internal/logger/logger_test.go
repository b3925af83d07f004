package logger

import "testing"

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"prod", "Production", "dev", ""} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		l.With("mode", mode).Debug("built")
	}
}

func TestNopDiscards(t *testing.T) {
	l := Nop()
	l.Info("ignored", "k", 1)
	l.With("service", "test").Warn("ignored")
	l.Sync()
}
