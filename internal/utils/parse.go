// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import (
	"strconv"
	"strings"
	"time"
)

// AtoiDefault parses s as an int after trimming spaces, returning def when
// s is blank or not an integer.
//
//	utils.AtoiDefault(" 42 ", 0) // 42
//	utils.AtoiDefault("", 10)    // 10
//	utils.AtoiDefault("x", 5)    // 5
func AtoiDefault(s string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return n
	}
	return def
}

// FloatDefault is AtoiDefault for float64.
func FloatDefault(s string, def float64) float64 {
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return f
	}
	return def
}

// DurationDefault parses a Go duration string ("150ms", "1h30m").
func DurationDefault(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
		return d
	}
	return def
}
