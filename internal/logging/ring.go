// Package logging provides the process logger and a ring buffer of recent records for the status view.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultRingSize is the number of recent records kept for the status view
const DefaultRingSize = 50

// Entry is one captured log record
type Entry struct {
	Time    time.Time         `json:"time"`
	Level   string            `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

// String renders the entry as a single line
func (e Entry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s", e.Time.Format(time.RFC3339), e.Level, e.Message)
	for k, v := range e.Attrs {
		fmt.Fprintf(&b, " %s=%s", k, v)
	}
	return b.String()
}

// Ring keeps the most recent entries
type Ring struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

// NewRing creates a ring holding up to size entries
func NewRing(size int) *Ring {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Ring{entries: make([]Entry, size)}
}

// Add stores e, evicting the oldest entry when full
func (r *Ring) Add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.next] = e
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
}

// Entries returns the stored entries, oldest first
func (r *Ring) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]Entry(nil), r.entries[:r.next]...)
	}
	out := make([]Entry, 0, len(r.entries))
	out = append(out, r.entries[r.next:]...)
	return append(out, r.entries[:r.next]...)
}

// RingHandler forwards records to next and copies them into a Ring
type RingHandler struct {
	next   slog.Handler
	ring   *Ring
	attrs  []slog.Attr
	groups []string
}

// NewRingHandler tees next into ring
func NewRingHandler(next slog.Handler, ring *Ring) *RingHandler {
	return &RingHandler{next: next, ring: ring}
}

// Ensure RingHandler implements slog.Handler
var _ slog.Handler = (*RingHandler)(nil)

func (h *RingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *RingHandler) Handle(ctx context.Context, r slog.Record) error {
	entry := Entry{
		Time:    r.Time,
		Level:   r.Level.String(),
		Message: r.Message,
	}
	if len(h.attrs) > 0 || r.NumAttrs() > 0 {
		entry.Attrs = make(map[string]string, len(h.attrs)+r.NumAttrs())
		prefix := strings.Join(h.groups, ".")
		for _, a := range h.attrs {
			addAttr(entry.Attrs, "", a)
		}
		r.Attrs(func(a slog.Attr) bool {
			addAttr(entry.Attrs, prefix, a)
			return true
		})
	}
	h.ring.Add(entry)
	return h.next.Handle(ctx, r)
}

func (h *RingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	prefix := strings.Join(h.groups, ".")
	scoped := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	scoped = append(scoped, h.attrs...)
	for _, a := range attrs {
		if prefix != "" {
			a.Key = prefix + "." + a.Key
		}
		scoped = append(scoped, a)
	}
	return &RingHandler{
		next:   h.next.WithAttrs(attrs),
		ring:   h.ring,
		attrs:  scoped,
		groups: h.groups,
	}
}

func (h *RingHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &RingHandler{
		next:   h.next.WithGroup(name),
		ring:   h.ring,
		attrs:  h.attrs,
		groups: append(append([]string(nil), h.groups...), name),
	}
}

func addAttr(dst map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			addAttr(dst, key, ga)
		}
		return
	}
	dst[key] = a.Value.String()
}

// Options configure New
type Options struct {
	Level  slog.Level
	Format string // "json" or "text"
	Ring   *Ring
}

// New builds the process logger writing to w, teeing into opts.Ring when set
func New(w io.Writer, opts Options) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	var handler slog.Handler
	if opts.Format == "text" {
		handler = slog.NewTextHandler(w, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(w, handlerOpts)
	}
	if opts.Ring != nil {
		handler = NewRingHandler(handler, opts.Ring)
	}
	return slog.New(handler)
}

// ParseLevel maps a level name to a slog.Level, defaulting to info
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
