// Package cache is an in-process key/value store with per-entry expiry.
//
// Expired entries are evicted lazily when read; there is no background
// sweep, so Size may include entries that have expired but not yet been
// observed.
package cache

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tbourn/go-postgen/internal/clock"
)

// Canonical TTL classes. The store does not enforce them.
const (
	TTLVolatile = 30 * time.Second // short-lived, fast-changing data
	TTLList     = 3 * time.Minute  // frequently changing lists
	TTLConfig   = 10 * time.Minute // rarely changing configuration
)

// entry is a stored value and the instant it stops being observable.
type entry struct {
	value     any
	expiresAt time.Time
}

// Store is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	clk     clock.Clock

	// group is non-nil when single-flight fetching is enabled.
	group *singleflight.Group
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the time source (tests use clock.Fake).
func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clk = c
		}
	}
}

// WithSingleFlight makes concurrent GetOrFetch misses for the same key share
// one producer call. Without it every miss invokes its producer.
func WithSingleFlight() Option {
	return func(s *Store) { s.group = &singleflight.Group{} }
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{entries: make(map[string]entry), clk: clock.Real()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Set stores value under key until now+ttl, replacing any previous entry.
// A non-positive ttl stores an entry that is already expired.
func (s *Store) Set(key string, value any, ttl time.Duration) {
	s.mu.Lock()
	s.entries[key] = entry{value: value, expiresAt: s.clk.Now().Add(ttl)}
	s.mu.Unlock()
}

// Get returns the value for key if it is present and unexpired. An expired
// entry is removed as a side effect.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		recordLookup(false)
		return nil, false
	}
	if !s.clk.Now().Before(e.expiresAt) {
		delete(s.entries, key)
		recordLookup(false)
		return nil, false
	}
	recordLookup(true)
	return e.value, true
}

// Has reports whether Get would hit. It does not extend the entry's TTL.
func (s *Store) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Delete removes key and reports whether an entry existed.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok
}

// DeleteByPrefix removes every key starting with prefix and returns how many
// entries were removed.
func (s *Store) DeleteByPrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

// Clear empties the store.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]entry)
	s.mu.Unlock()
}

// Size returns the number of held entries, including expired ones that
// have not been read since they expired.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
