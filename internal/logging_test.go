package internal

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger()
	l.SetOutput(&buf)

	l.Infof("scanned %d files", 3)
	if buf.Len() != 0 {
		t.Error("info printed at default level:", buf.String())
		return
	}
	l.Warnf("cut %d values", 2)
	if !strings.Contains(buf.String(), "WARN cut 2 values") {
		t.Error("missing warning:", buf.String())
		return
	}

	buf.Reset()
	old := l.SetLogLevel(LevelInfo)
	if old != LogLevelDefault {
		t.Error("old level", old)
	}
	l.Info("loaded")
	if !strings.Contains(buf.String(), "INFO loaded") {
		t.Error("missing info:", buf.String())
	}
	l.SetLogLevel(LevelError)
	if l.Enabled(LevelWarn) {
		t.Error("warnings enabled at error level")
	}
}

func TestLevelFromInt(t *testing.T) {
	tests := []struct {
		in   int
		want LogLevel
	}{
		{-4, LevelFatal},
		{0, LevelFatal},
		{2, LevelWarn},
		{3, LevelInfo},
		{9, LevelInfo},
	}
	for _, test := range tests {
		if got := LevelFromInt(test.in); got != test.want {
			t.Error(test.in, "got", got, "want", test.want)
		}
	}
}
