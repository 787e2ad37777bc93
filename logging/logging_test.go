package logging

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"", InfoLevel, false},
		{"warning", WarnLevel, false},
		{" error ", ErrorLevel, false},
		{"fatal", FatalLevel, false},
		{"verbose", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestDefaultLoggerRoutesByLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&stdout, &stderr)
	logger.SetLevel(DebugLevel)

	logger.Debug("debug record")
	logger.Info("info record")
	logger.Warn("warn record")
	logger.Error(errors.New("boom"), "error record")

	out := stdout.String()
	if !strings.Contains(out, "[DEBUG] debug record") || !strings.Contains(out, "[INFO] info record") {
		t.Errorf("stdout missing debug/info records: %q", out)
	}
	errOut := stderr.String()
	if !strings.Contains(errOut, "[WARN] warn record") {
		t.Errorf("stderr missing warn record: %q", errOut)
	}
	if !strings.Contains(errOut, "[ERROR] error record: boom") {
		t.Errorf("stderr missing error record: %q", errOut)
	}
}

func TestDefaultLoggerFiltersBelowLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&stdout, &stderr)

	logger.Debug("hidden")
	if stdout.Len() != 0 {
		t.Fatalf("debug record written at info level: %q", stdout.String())
	}
}

func TestWithFieldsMergesAndDoesNotLeak(t *testing.T) {
	var stdout bytes.Buffer
	base := NewDefaultLoggerWithWriters(&stdout, &stdout)
	child := base.WithFields(Fields{"component": "pitch_detector"})

	child.Info("estimate", Fields{"pitch": 440})
	line := stdout.String()
	if !strings.Contains(line, "component:pitch_detector") || !strings.Contains(line, "pitch:440") {
		t.Errorf("fields missing from %q", line)
	}

	stdout.Reset()
	base.Info("plain")
	if strings.Contains(stdout.String(), "component") {
		t.Errorf("child fields leaked into parent: %q", stdout.String())
	}
}

func TestWithContextUsesTypedKey(t *testing.T) {
	var stdout bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&stdout, &stdout)

	ctx := ContextWithFields(context.Background(), Fields{"frame": 3})
	ctx = ContextWithFields(ctx, Fields{"method": "yin"})

	logger.WithContext(ctx).Info("frame done")
	line := stdout.String()
	if !strings.Contains(line, "frame:3") || !strings.Contains(line, "method:yin") {
		t.Errorf("context fields missing from %q", line)
	}

	if got := FieldsFromContext(context.Background()); got != nil {
		t.Errorf("FieldsFromContext on empty context = %v, want nil", got)
	}
}

func TestSetGlobalLoggerNil(t *testing.T) {
	prev := GetGlobalLogger()
	defer SetGlobalLogger(prev)

	SetGlobalLogger(nil)
	if _, ok := GetGlobalLogger().(*NoOpLogger); !ok {
		t.Fatalf("SetGlobalLogger(nil) installed %T, want *NoOpLogger", GetGlobalLogger())
	}
	// Must not panic.
	Info("dropped", Fields{"k": "v"})
	WithFields(Fields{"a": 1}).Warn("dropped")
}

func TestIsTerminalRejectsPipesAndFiles(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	if isTerminal(w.Fd()) {
		t.Error("pipe reported as a terminal")
	}

	f, err := os.CreateTemp(t.TempDir(), "log")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()

	if isTerminal(f.Fd()) {
		t.Error("regular file reported as a terminal")
	}
}
