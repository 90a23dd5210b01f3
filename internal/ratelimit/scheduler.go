package ratelimit

import (
	"sync"
	"time"

	"github.com/tbourn/go-postgen/internal/clock"
)

// scheduler owns at most one pending callback. Arming replaces the
// previous callback; a replaced or cancelled callback never runs, even if
// its timer already fired and is waiting on the lock.
type scheduler struct {
	clk clock.Clock

	mu       sync.Mutex
	timer    clock.Timer
	gen      uint64
	deadline time.Time
}

func newScheduler(c clock.Clock) *scheduler {
	return &scheduler{clk: c}
}

// arm schedules fn after d, superseding any pending callback. A negative d
// is treated as zero.
func (s *scheduler) arm(d time.Duration, fn func()) {
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.gen++
	gen := s.gen
	s.deadline = s.clk.Now().Add(d)
	s.timer = s.clk.AfterFunc(d, func() {
		s.mu.Lock()
		if gen != s.gen {
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.deadline = time.Time{}
		s.mu.Unlock()
		fn()
	})
}

// cancelIfArmed drops the pending callback and reports whether one existed.
func (s *scheduler) cancelIfArmed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	armed := s.timer != nil
	s.stopLocked()
	s.deadline = time.Time{}
	return armed
}

// armed returns the pending deadline, if any.
func (s *scheduler) armed() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deadline, s.timer != nil
}

func (s *scheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
