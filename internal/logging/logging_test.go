package logging

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevelOrdering(t *testing.T) {
	levels := []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError}
	for i := 0; i < len(levels)-1; i++ {
		if levels[i] >= levels[i+1] {
			t.Errorf("levels out of order: %v >= %v", levels[i], levels[i+1])
		}
	}
}

func TestEmittersTagMessages(t *testing.T) {
	orig := log.Writer()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(orig)

	// The suite runs without DEBUG set, so debug output is suppressed and
	// everything at info and above carries its severity tag.
	Debug("hidden %d", 1)
	Info("upload received: %s", "clip.mp4")
	Warn("provider slow")
	Error("scorer unreachable")

	out := buf.String()
	if GetLevel() > LevelDebug && strings.Contains(out, "[DEBUG]") {
		t.Errorf("debug message emitted at level %v:\n%s", GetLevel(), out)
	}
	for _, want := range []string{"[INFO] upload received: clip.mp4", "[WARN] provider slow", "[ERROR] scorer unreachable"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestIsDebugEnabledMatchesLevel(t *testing.T) {
	if got, want := IsDebugEnabled(), GetLevel() <= LevelDebug; got != want {
		t.Errorf("IsDebugEnabled() = %v, level is %v", got, GetLevel())
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(99), "unknown(99)"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}
