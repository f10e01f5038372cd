package logging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DEBUG,
		"INFO":    INFO,
		"warning": WARN,
		"error":   ERROR,
		"":        INFO,
		"verbose": INFO,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRequestIDIsAttached(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core))

	ctx := WithRequestID(context.Background(), "req-42")
	l.Info(ctx, "hello")
	lctx := WithLogger(ctx, l)
	FromContext(lctx, l).Warn(lctx, "again")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, e := range entries {
		ids := 0
		for _, f := range e.Context {
			if f.Key == "request_id" {
				ids++
				if f.String != "req-42" {
					t.Errorf("%q: request_id = %q", e.Message, f.String)
				}
			}
		}
		if ids != 1 {
			t.Errorf("%q: expected one request_id field, got %d", e.Message, ids)
		}
	}
}

func TestFromContextFallsBack(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := FromContext(context.Background(), Wrap(zap.New(core)))
	l.Info(context.Background(), "x")

	if got := logs.All()[0].ContextMap()["request_id"]; got != "no-request-id" {
		t.Errorf("request_id = %v", got)
	}
}

func TestNewWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exchange.log")
	l := New(Config{Level: "info", File: path})
	l.Info(context.Background(), "written to file")
	l.Debug(context.Background(), "filtered out")
	_ = l.Sync()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(b), "written to file") {
		t.Errorf("log file missing entry: %s", b)
	}
	if strings.Contains(string(b), "filtered out") {
		t.Errorf("debug entry written at info level: %s", b)
	}
}
