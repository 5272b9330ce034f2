package logging

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing(3)
	for i, msg := range []string{"a", "b", "c", "d"} {
		r.Add(Entry{Time: time.Unix(int64(i), 0), Message: msg})
	}

	entries := r.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "b", entries[0].Message)
	assert.Equal(t, "d", entries[2].Message)
}

func TestRingPartial(t *testing.T) {
	r := NewRing(5)
	r.Add(Entry{Message: "only"})
	assert.Len(t, r.Entries(), 1)
}

func TestLoggerTeesIntoRing(t *testing.T) {
	var buf bytes.Buffer
	ring := NewRing(10)
	logger := New(&buf, Options{Level: slog.LevelInfo, Format: "json", Ring: ring})

	logger = logger.With(slog.String("component", "engine"))
	logger.Debug("hidden")
	logger.Info("phase committed", slog.Int("phase", 2))
	logger.WithGroup("cycle").Warn("slow", slog.Int("opened", 100))

	entries := ring.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "INFO", entries[0].Level)
	assert.Equal(t, "phase committed", entries[0].Message)
	assert.Equal(t, "engine", entries[0].Attrs["component"])
	assert.Equal(t, "2", entries[0].Attrs["phase"])
	assert.Equal(t, "100", entries[1].Attrs["cycle.opened"])

	assert.Contains(t, buf.String(), `"msg":"phase committed"`)
	assert.NotContains(t, buf.String(), "hidden")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}
