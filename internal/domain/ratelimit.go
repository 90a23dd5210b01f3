package domain

import "time"

// RateLimitStatus is the generation quota as reported by the server. The
// client treats it as authoritative and never decrements it locally.
type RateLimitStatus struct {
	Remaining int       `json:"remaining"`
	Total     int       `json:"total"`
	ResetAt   time.Time `json:"resetAt"`
}

// Exhausted reports whether no generations remain.
func (s RateLimitStatus) Exhausted() bool { return s.Remaining <= 0 }
