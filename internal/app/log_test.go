package app

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestInvocationHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name         string
		invocationID string
		level        slog.Level
		message      string
		attrs        []slog.Attr
		want         string
	}{
		{
			name:         "basic info message",
			invocationID: "encrypt-20240615T143045Z",
			level:        slog.LevelInfo,
			message:      "file encrypted",
			want:         "2024-06-15T14:30:45Z\tINFO\tencrypt-20240615T143045Z\tfile encrypted\n",
		},
		{
			name:         "debug level",
			invocationID: "status-20240615T143045Z",
			level:        slog.LevelDebug,
			message:      "computing status",
			want:         "2024-06-15T14:30:45Z\tDEBUG\tstatus-20240615T143045Z\tcomputing status\n",
		},
		{
			name:         "with record attrs",
			invocationID: "encrypt-20240615T143045Z",
			level:        slog.LevelInfo,
			message:      "file encrypted",
			attrs:        []slog.Attr{slog.String("path", "/docs/file.txt"), slog.Int("size", 42)},
			want:         "2024-06-15T14:30:45Z\tINFO\tencrypt-20240615T143045Z\tfile encrypted\tpath=/docs/file.txt\tsize=42\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &invocationHandler{w: &buf, invocationID: tt.invocationID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestInvocationHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &invocationHandler{w: &buf, invocationID: "op-1"}

	// Add pre-set attrs
	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "vault")}).(*invocationHandler)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "upload", 0)
	r.AddAttrs(slog.String("key", "abc"))

	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "component=vault") {
		t.Errorf("expected pre-set attr component=vault, got: %q", got)
	}
	if !strings.Contains(got, "key=abc") {
		t.Errorf("expected record attr key=abc, got: %q", got)
	}
}

func TestInvocationHandler_WithAttrs_doesNotMutateOriginal(t *testing.T) {
	var buf bytes.Buffer
	h := &invocationHandler{w: &buf, invocationID: "op-1", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("b", "2")}).(*invocationHandler)

	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}
	if len(h2.attrs) != 2 {
		t.Errorf("new handler attrs: got %d, want 2", len(h2.attrs))
	}
}

func TestInvocationHandler_Enabled(t *testing.T) {
	h := &invocationHandler{}
	// All levels should be enabled
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if !h.Enabled(context.Background(), level) {
			t.Errorf("Enabled(%v) = false, want true", level)
		}
	}
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()

	logger, f, err := newLogger(dir, "test-op")
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	if logger == nil {
		t.Fatal("newLogger() returned nil logger")
	}
	if f == nil {
		t.Fatal("newLogger() returned nil file")
	}
}
