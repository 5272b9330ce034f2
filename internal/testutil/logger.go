package testutil

import (
	"io"
	"log/slog"

	"github.com/mcoot/caseclicker-orchestrator/internal/logging"
)

// NopLogger returns a logger that discards all output.
// Use this in tests to avoid log noise.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// RingLogger returns a debug-level logger whose records are kept only in the returned ring,
// for tests that assert on what was logged
func RingLogger(size int) (*slog.Logger, *logging.Ring) {
	ring := logging.NewRing(size)
	return logging.New(io.Discard, logging.Options{Level: slog.LevelDebug, Ring: ring}), ring
}
