package testhelpers

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// NewTestLogger creates a logger that discards all output for testing.
// This is used across multiple test files to avoid duplication.
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// LogCapture collects text log output so tests can assert on emitted records.
type LogCapture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *LogCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

// String returns everything logged so far.
func (c *LogCapture) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// Count returns the number of records logged at the given level.
func (c *LogCapture) Count(level slog.Level) int {
	return strings.Count(c.String(), "level="+level.String())
}

// NewCaptureLogger creates a debug-level logger writing into a LogCapture.
func NewCaptureLogger() (*slog.Logger, *LogCapture) {
	capture := &LogCapture{}
	logger := slog.New(slog.NewTextHandler(capture, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	return logger, capture
}
