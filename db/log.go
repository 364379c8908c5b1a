package db

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// LogEntry is one executed statement recorded by the query log.
type LogEntry struct {
	Query    string
	Bindings []any
	Elapsed  time.Duration
	Time     time.Time
}

// QueryLog records executed statements in memory. The log is unbounded;
// callers must flush it to bound memory.
type QueryLog struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (l *QueryLog) append(e LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

// Entries returns a snapshot of the recorded entries.
func (l *QueryLog) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Flush returns the recorded entries and clears the log.
func (l *QueryLog) Flush() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.entries
	l.entries = nil
	return out
}

// Len returns the number of recorded entries.
func (l *QueryLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// SlowQueryHook is called when a statement exceeds the slow threshold.
type SlowQueryHook func(ctx context.Context, query string, bindings []any, elapsed time.Duration)

// Option configures a Connection.
type Option func(*Connection)

// WithSlowThreshold sets the threshold for slow query detection.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) Option {
	return func(c *Connection) {
		c.slowThreshold = d
	}
}

// WithSlowQueryHook sets a callback for statements exceeding the slow
// threshold.
func WithSlowQueryHook(hook SlowQueryHook) Option {
	return func(c *Connection) {
		c.slowHook = hook
	}
}

// WithSlowQueryLog logs slow queries to the default logger. This is a
// convenience wrapper around WithSlowQueryHook.
func WithSlowQueryLog() Option {
	return WithSlowQueryHook(func(_ context.Context, query string, bindings []any, elapsed time.Duration) {
		slog.Warn("slow query detected", "duration", elapsed, "query", query, "bindings", bindings)
	})
}
