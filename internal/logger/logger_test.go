package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func resetLogger() {
	Init(Options{})
}

// --- Init Tests ---

func TestInit_Levels(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		logged  []string
		dropped []string
	}{
		{"default", Options{}, []string{"info", "warn", "error"}, []string{"debug"}},
		{"debug", Options{Debug: true}, []string{"debug", "info"}, nil},
		{"quiet", Options{Quiet: true}, []string{"error"}, []string{"info", "warn"}},
		{"quiet wins over debug", Options{Debug: true, Quiet: true}, []string{"error"}, []string{"debug", "info"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			opts := tt.opts
			opts.Output = buf
			Init(opts)
			defer resetLogger()

			Debug("msg-debug")
			Info("msg-info")
			Warn("msg-warn")
			Error("msg-error")

			out := buf.String()
			for _, l := range tt.logged {
				if !strings.Contains(out, "msg-"+l) {
					t.Errorf("%s should be logged: %s", l, out)
				}
			}
			for _, l := range tt.dropped {
				if strings.Contains(out, "msg-"+l) {
					t.Errorf("%s should not be logged: %s", l, out)
				}
			}
		})
	}
}

func TestInit_JSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{JSON: true, Output: buf})
	defer resetLogger()

	Info("loan found", "amount", 150000)

	out := buf.String()
	if !strings.Contains(out, `"msg":"loan found"`) || !strings.Contains(out, `"amount":150000`) {
		t.Errorf("unexpected JSON output: %s", out)
	}
}

func TestInit_CustomLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Logger: slog.New(slog.NewTextHandler(buf, nil)), Quiet: true})
	defer resetLogger()

	Info("from custom")
	if !strings.Contains(buf.String(), "from custom") {
		t.Error("custom logger must override other options")
	}
}

func TestInit_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pppscrape.log")
	buf := &bytes.Buffer{}
	Init(Options{Output: buf, File: path})
	Info("to both")
	if err := Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	defer resetLogger()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "to both") {
		t.Errorf("file missing message: %s", data)
	}
	if !strings.Contains(buf.String(), "to both") {
		t.Errorf("console missing message: %s", buf.String())
	}
}

// --- With Tests ---

func TestWith_ReturnsLoggerWithAttrs(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer resetLogger()

	With("url", "https://example.com").Info("fetched")

	out := buf.String()
	if !strings.Contains(out, "fetched") || !strings.Contains(out, "url=https://example.com") {
		t.Errorf("expected attributes in output: %s", out)
	}
}

// --- Context Tests ---

func TestContextVariants(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Debug: true, Output: buf})
	defer resetLogger()

	ctx := context.Background()
	DebugContext(ctx, "ctx-debug")
	InfoContext(ctx, "ctx-info")
	WarnContext(ctx, "ctx-warn")
	ErrorContext(ctx, "ctx-error")

	for _, msg := range []string{"ctx-debug", "ctx-info", "ctx-warn", "ctx-error"} {
		if !strings.Contains(buf.String(), msg) {
			t.Errorf("missing %s", msg)
		}
	}
}
