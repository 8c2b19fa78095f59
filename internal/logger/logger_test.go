package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DEBUG, false},
		{"INFO", INFO, false},
		{"", INFO, false},
		{"warning", WARN, false},
		{"error", ERROR, false},
		{"off", SILENT, false},
		{"loud", INFO, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(WARN, &buf, false)

	l.Info("Capture", "hidden %d", 1)
	l.Warn("Capture", "shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("INFO line leaked through WARN logger: %q", out)
	}
	if !strings.Contains(out, "[WARN] [Capture] shown 2") {
		t.Errorf("missing WARN line, got %q", out)
	}
}

func TestSilentDropsEverything(t *testing.T) {
	var buf bytes.Buffer
	l := New(SILENT, &buf, true)
	l.Error("Gallery", "nope")
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}
