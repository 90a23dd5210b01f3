// Package sysutil holds process-level helpers shared by both binaries:
// global logger setup and environment value parsing.
package sysutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogger installs the global zerolog logger. Pretty output uses a
// console writer on w (stderr when nil); otherwise JSON lines are written.
func SetupLogger(pretty bool, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

var levels = map[string]zerolog.Level{
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
	"fatal":   zerolog.FatalLevel,
	"panic":   zerolog.PanicLevel,
}

// SetLogLevel sets the global zerolog level by name (case-insensitive).
// Empty or unknown names select info.
func SetLogLevel(lvl string) {
	l, ok := levels[strings.ToLower(strings.TrimSpace(lvl))]
	if !ok {
		l = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(l)
}

// ParseBool reads an environment-style boolean. ok is false for blank or
// unrecognized input.
func ParseBool(v string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	}
	return false, false
}

// IsTruthy reports whether v parses as true.
func IsTruthy(v string) bool {
	b, _ := ParseBool(v)
	return b
}

// FirstNonEmpty returns the first value that is not blank, unmodified.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
