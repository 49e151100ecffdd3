package id

import (
	"fmt"
	"strconv"
	"sync"
	"time"
)

// FromTime returns a receipt ID like "1704414615123" (milliseconds since the epoch).
func FromTime(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// Parse returns the capture instant encoded in a receipt ID.
func Parse(id string) (time.Time, error) {
	if id == "" {
		return time.Time{}, fmt.Errorf("empty receipt ID")
	}
	ms, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid receipt ID %q: %w", id, err)
	}
	if ms < 0 {
		return time.Time{}, fmt.Errorf("invalid receipt ID %q: negative", id)
	}
	return time.UnixMilli(ms).UTC(), nil
}

// Generator issues strictly increasing IDs. Two captures in the same
// millisecond get consecutive values, so a batch of files read at once
// never collides on the primary key.
type Generator struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewGenerator returns a Generator reading the given clock. A nil clock means time.Now.
func NewGenerator(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{now: now}
}

// Next returns the next ID and the instant it encodes. When the clock has
// not moved past the last ID, the instant is shifted forward to match the
// bumped ID.
func (g *Generator) Next() (string, time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	t := g.now()
	ms := t.UnixMilli()
	if ms <= g.last {
		t = t.Add(time.Duration(g.last+1-ms) * time.Millisecond)
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 10), t
}

// Advance makes every later ID greater than id, e.g. the newest ID already
// saved by another process. Empty id is a no-op.
func (g *Generator) Advance(id string) error {
	if id == "" {
		return nil
	}
	t, err := Parse(id)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if ms := t.UnixMilli(); ms > g.last {
		g.last = ms
	}
	return nil
}
