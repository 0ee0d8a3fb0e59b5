package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

// resetLogger restores the default logger between tests.
func resetLogger() {
	Init(Options{})
}

func TestInit_Levels(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
		wantError bool
	}{
		{"default", Options{}, false, true, true, true},
		{"debug", Options{Debug: true}, true, true, true, true},
		{"quiet", Options{Quiet: true}, false, false, false, true},
		{"quiet wins over debug", Options{Debug: true, Quiet: true}, false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.opts.Output = buf
			Init(tt.opts)
			defer resetLogger()

			Debug("debug-msg")
			Info("info-msg")
			Warn("warn-msg")
			Error("error-msg")

			out := buf.String()
			check := func(msg string, want bool) {
				if got := strings.Contains(out, msg); got != want {
					t.Errorf("%s logged = %v, want %v", msg, got, want)
				}
			}
			check("debug-msg", tt.wantDebug)
			check("info-msg", tt.wantInfo)
			check("warn-msg", tt.wantWarn)
			check("error-msg", tt.wantError)
		})
	}
}

func TestInit_JSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{JSON: true, Output: buf})
	defer resetLogger()

	Info("page skipped", "url", "https://vc.example/portfolio")

	out := buf.String()
	if !strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("expected JSON output, got %q", out)
	}
	if !strings.Contains(out, `"msg":"page skipped"`) {
		t.Errorf("expected msg field, got %q", out)
	}
}

func TestSetLogger_UsesCustomLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	SetLogger(slog.New(slog.NewTextHandler(buf, nil)))
	defer resetLogger()

	Info("custom")
	if !strings.Contains(buf.String(), "custom") {
		t.Error("expected message on custom logger")
	}
}

func TestComponent_AddsAttribute(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer resetLogger()

	Component("classifier").Info("judged")

	out := buf.String()
	if !strings.Contains(out, "component=classifier") {
		t.Errorf("expected component attribute, got %q", out)
	}
}

func TestWith_ReturnsLoggerWithAttrs(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer resetLogger()

	With("key", "value").Info("test with attrs")

	out := buf.String()
	if !strings.Contains(out, "key=value") {
		t.Errorf("expected attributes in output, got %q", out)
	}
}

func TestContextVariants(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Debug: true, Output: buf})
	defer resetLogger()

	ctx := context.Background()
	DebugContext(ctx, "dbg-ctx")
	InfoContext(ctx, "info-ctx")
	WarnContext(ctx, "warn-ctx")
	ErrorContext(ctx, "err-ctx")

	for _, msg := range []string{"dbg-ctx", "info-ctx", "warn-ctx", "err-ctx"} {
		if !strings.Contains(buf.String(), msg) {
			t.Errorf("expected %q in output", msg)
		}
	}
}
