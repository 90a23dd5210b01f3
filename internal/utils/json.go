package utils

import "encoding/json"

// SafeJSONParse decodes text into a T, returning fallback when text is not
// valid JSON for T. It never panics and never returns an error.
func SafeJSONParse[T any](text string, fallback T) T {
	var out T
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return fallback
	}
	return out
}

// Clamp bounds v to the inclusive range [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
