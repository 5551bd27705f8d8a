package ratelimit

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
)

// unknownClient is the shared bucket for requests carrying no client
// identity headers. All header-less clients rate-limit each other; this
// coarsening is deliberate.
const unknownClient = "unknown"

// record tracks one client's sliding window
type record struct {
	count   int
	resetAt time.Time
}

// Limiter is a process-local sliding-window request counter keyed by
// client identity. All map access is mutex-guarded: Allow performs a
// check-then-increment that would race across handler goroutines
// otherwise.
type Limiter struct {
	window  time.Duration
	max     int
	nowFunc func() time.Time

	mu      sync.Mutex
	records map[string]*record
}

// New creates a limiter with the given window duration and request
// ceiling per window
func New(window time.Duration, max int) *Limiter {
	return &Limiter{
		window:  window,
		max:     max,
		nowFunc: time.Now,
		records: make(map[string]*record),
	}
}

// Allow admits or rejects one request from clientID. The first request
// in a fresh window always passes; remaining is the ceiling minus the
// live count, floored at zero.
func (l *Limiter) Allow(clientID string) (allowed bool, remaining int) {
	now := l.nowFunc()

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[clientID]
	if !ok || now.After(rec.resetAt) {
		l.records[clientID] = &record{
			count:   1,
			resetAt: now.Add(l.window),
		}
		return true, l.max - 1
	}

	if rec.count >= l.max {
		return false, 0
	}

	rec.count++
	remaining = l.max - rec.count
	if remaining < 0 {
		remaining = 0
	}
	return true, remaining
}

// Sweep removes records whose window has already elapsed, bounding the
// map's growth from one-off clients
func (l *Limiter) Sweep() {
	now := l.nowFunc()

	l.mu.Lock()
	defer l.mu.Unlock()

	for id, rec := range l.records {
		if now.After(rec.resetAt) {
			delete(l.records, id)
		}
	}
}

// Start runs a periodic sweep until the context is cancelled
func (l *Limiter) Start(ctx context.Context) {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

// ClientID derives the rate-limit key for a request: the first entry of
// X-Forwarded-For, then X-Real-IP, then the shared unknown bucket
func ClientID(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx >= 0 {
			fwd = fwd[:idx]
		}
		if id := strings.TrimSpace(fwd); id != "" {
			return id
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	return unknownClient
}
