// Package throttle implements the process-local fixed-window request throttle
// that guards the metadata, image proxy and story export routes.
package throttle

import (
	"math"
	"sync"
	"time"
)

// cleanupFactor bounds how long an idle entry survives, in windows.
const cleanupFactor = 5

// Entry captures the fixed-window state for a single key.
type Entry struct {
	Count       int
	WindowStart time.Time
	Window      time.Duration
}

// Result is the outcome of a Check. A limiter never errors; rejecting is up to the caller.
type Result struct {
	Allowed           bool
	Remaining         int
	RetryAfterSeconds int
}

// Policy is a named limit applied per client.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Default policies for the public routes.
var (
	MetadataPolicy = Policy{Name: "metadata", Limit: 10, Window: time.Minute}
	ProxyPolicy    = Policy{Name: "proxy-image", Limit: 30, Window: time.Minute}
	StoryPolicy    = Policy{Name: "story", Limit: 5, Window: time.Minute}
)

// Key builds the throttle key for a client under this policy.
func (p Policy) Key(client string) string {
	return p.Name + ":" + client
}

// Limiter enforces fixed-window limits keyed by arbitrary strings.
//
// State is held in memory and is never shared between processes, so limits are
// per instance.
type Limiter struct {
	Clock func() time.Time

	mu      sync.Mutex
	entries map[string]*Entry
}

// New returns an empty limiter using the wall clock.
func New() *Limiter {
	return &Limiter{entries: make(map[string]*Entry)}
}

// Check records a request for key and reports whether it fits in the current window.
func (l *Limiter) Check(key string, limit int, window time.Duration) Result {
	if l == nil {
		return Result{Allowed: true, Remaining: limit}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.cleanup(now, window)

	if l.entries == nil {
		l.entries = make(map[string]*Entry)
	}

	entry, ok := l.entries[key]
	if !ok || now.Sub(entry.WindowStart) >= window {
		l.entries[key] = &Entry{Count: 1, WindowStart: now, Window: window}
		return Result{Allowed: true, Remaining: limit - 1}
	}

	if entry.Count >= limit {
		return Result{
			Allowed:           false,
			Remaining:         0,
			RetryAfterSeconds: retryAfterSeconds(entry.WindowStart.Add(window).Sub(now)),
		}
	}

	entry.Count++
	return Result{Allowed: true, Remaining: limit - entry.Count}
}

// CheckPolicy is Check with the key and limits taken from a policy.
func (l *Limiter) CheckPolicy(p Policy, client string) Result {
	return l.Check(p.Key(client), p.Limit, p.Window)
}

// Len reports the number of tracked keys.
func (l *Limiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Snapshot returns a copy of the entry for key, if any.
func (l *Limiter) Snapshot(key string) (Entry, bool) {
	if l == nil {
		return Entry{}, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// cleanup drops entries whose window started more than cleanupFactor of their
// own windows ago. Callers must hold l.mu.
func (l *Limiter) cleanup(now time.Time, window time.Duration) {
	for key, entry := range l.entries {
		entryWindow := entry.Window
		if entryWindow <= 0 {
			entryWindow = window
		}
		if entry.WindowStart.Before(now.Add(-cleanupFactor * entryWindow)) {
			delete(l.entries, key)
		}
	}
}

func (l *Limiter) now() time.Time {
	if l.Clock != nil {
		return l.Clock()
	}
	return time.Now().UTC()
}

func retryAfterSeconds(remaining time.Duration) int {
	if remaining <= 0 {
		return 1
	}
	return int(math.Ceil(remaining.Seconds()))
}
