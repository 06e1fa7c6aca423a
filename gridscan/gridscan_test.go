package gridscan

import "testing"

func TestSetLogLevel(t *testing.T) {
	old := SetLogLevel(3)
	defer SetLogLevel(old)
	if got := SetLogLevel(10); got != 3 {
		t.Error("level", got)
	}
	if got := SetLogLevel(-1); got != 3 {
		t.Error("clamped level", got)
	}
	if got := SetLogLevel(old); got != 0 {
		t.Error("clamped level", got)
	}
}
