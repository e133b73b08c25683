package gooseberry

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestNopLogger_Implements_Logger(t *testing.T) {
	var _ Logger = NopLogger{}
}

func TestNopLogger_Methods_DoNotPanic(t *testing.T) {
	logger := NopLogger{}

	logger.Debug("message")
	logger.Debug("message", "key", "value")
	logger.Info("message", "key", 123)
	logger.Warn("message", "key", struct{}{})
	logger.Error("message", "key", nil)
}

// testLogger records log calls.
type testLogger struct {
	mu    sync.Mutex
	calls []logCall
}

type logCall struct {
	level         string
	message       string
	keysAndValues []any
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) { l.record("debug", msg, keysAndValues) }
func (l *testLogger) Info(msg string, keysAndValues ...any)  { l.record("info", msg, keysAndValues) }
func (l *testLogger) Warn(msg string, keysAndValues ...any)  { l.record("warn", msg, keysAndValues) }
func (l *testLogger) Error(msg string, keysAndValues ...any) { l.record("error", msg, keysAndValues) }

func (l *testLogger) record(level, msg string, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, logCall{level: level, message: msg, keysAndValues: kv})
}

func (l *testLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.calls {
		if c.level == level && c.message == msg {
			return true
		}
	}
	return false
}

func TestSlogLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := NewSlogLogger(slog.New(handler))

	logger.Debug("debug message", "peer", "a")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message", "error", "boom")

	out := buf.String()
	for _, want := range []string{
		"level=DEBUG msg=\"debug message\" peer=a",
		"level=INFO msg=\"info message\"",
		"level=WARN msg=\"warn message\"",
		"level=ERROR msg=\"error message\" error=boom",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSlogLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil))).With("component", "node")

	logger.Info("started")

	if !strings.Contains(buf.String(), "component=node") {
		t.Errorf("output missing bound attribute: %s", buf.String())
	}
}

func TestSlogLogger_NilUsesDefault(t *testing.T) {
	if NewSlogLogger(nil).logger == nil {
		t.Error("nil slog logger should fall back to slog.Default()")
	}
}
