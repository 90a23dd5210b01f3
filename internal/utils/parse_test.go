package utils

import (
	"testing"
	"time"
)

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		{"", 10, 10},
		{"42", 0, 42},
		{"-13", 1, -13},
		{"0012", 99, 12},
		{" 42 ", 7, 42},
		{"x", 5, 5},
		{"4.2", 3, 3},
		{"999999999999999999999999", -1, -1},
	}
	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}

func TestFloatDefault(t *testing.T) {
	if got := FloatDefault("0.75", 1); got != 0.75 {
		t.Fatalf("FloatDefault parse = %v", got)
	}
	if got := FloatDefault(" 2 ", 0); got != 2 {
		t.Fatalf("FloatDefault trim = %v", got)
	}
	if got := FloatDefault("nope", 1.5); got != 1.5 {
		t.Fatalf("FloatDefault fallback = %v", got)
	}
}

func TestDurationDefault(t *testing.T) {
	if got := DurationDefault("150ms", time.Second); got != 150*time.Millisecond {
		t.Fatalf("DurationDefault parse = %v", got)
	}
	if got := DurationDefault("5", time.Second); got != time.Second {
		t.Fatalf("bare number must fall back, got %v", got)
	}
	if got := DurationDefault("", time.Minute); got != time.Minute {
		t.Fatalf("DurationDefault empty = %v", got)
	}
}
