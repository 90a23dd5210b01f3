package services

import (
	"sync"
	"time"

	"github.com/tbourn/go-postgen/internal/domain"
)

// Quota is an in-memory fixed-window generation budget per user. Each
// generation request (single, variants or iteration) spends one unit.
type Quota struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*quotaWindow
}

type quotaWindow struct {
	used    int
	resetAt time.Time
}

// NewQuota returns a Quota granting limit units per window. A nil now uses
// time.Now.
func NewQuota(limit int, window time.Duration, now func() time.Time) *Quota {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &Quota{limit: limit, window: window, now: now, windows: make(map[string]*quotaWindow)}
}

// current returns the live window of userID, opening a new one when the
// previous window has ended. Caller must hold q.mu.
func (q *Quota) current(userID string) *quotaWindow {
	now := q.now().UTC()
	w, ok := q.windows[userID]
	if !ok || !now.Before(w.resetAt) {
		w = &quotaWindow{resetAt: now.Add(q.window)}
		q.windows[userID] = w
	}
	return w
}

func (q *Quota) status(w *quotaWindow) domain.RateLimitStatus {
	return domain.RateLimitStatus{
		Remaining: max(q.limit-w.used, 0),
		Total:     q.limit,
		ResetAt:   w.resetAt,
	}
}

// Status reports the budget of userID without spending it.
func (q *Quota) Status(userID string) domain.RateLimitStatus {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.status(q.current(userID))
}

// Take spends one unit. It returns the status after the attempt and false
// when nothing was left to spend.
func (q *Quota) Take(userID string) (domain.RateLimitStatus, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	w := q.current(userID)
	if w.used >= q.limit {
		return q.status(w), false
	}
	w.used++
	return q.status(w), true
}

// Refund returns one unit to the window ending at resetAt, the ResetAt that
// Take reported. It is used when the generator fails after Take. A unit
// taken from a window that has since rolled over is not credited to the
// new one.
func (q *Quota) Refund(userID string, resetAt time.Time) domain.RateLimitStatus {
	q.mu.Lock()
	defer q.mu.Unlock()
	w := q.current(userID)
	if w.used > 0 && w.resetAt.Equal(resetAt) {
		w.used--
	}
	return q.status(w)
}

// Purge drops every window that has ended and returns how many were
// removed. A purged user starts a fresh window on the next request.
func (q *Quota) Purge() int {
	now := q.now().UTC()
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for id, w := range q.windows {
		if !now.Before(w.resetAt) {
			delete(q.windows, id)
			n++
		}
	}
	return n
}

// Len returns the number of tracked windows.
func (q *Quota) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.windows)
}
