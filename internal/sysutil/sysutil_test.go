package sysutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetLogLevel(t *testing.T) {
	orig := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(orig) })

	for in, want := range map[string]zerolog.Level{
		"  DeBuG  ": zerolog.DebugLevel,
		"":          zerolog.InfoLevel,
		"warning":   zerolog.WarnLevel,
		"ERROR":     zerolog.ErrorLevel,
		"fatal":     zerolog.FatalLevel,
		"panic":     zerolog.PanicLevel,
		"verbose":   zerolog.InfoLevel,
	} {
		zerolog.SetGlobalLevel(zerolog.Disabled)
		SetLogLevel(in)
		if got := zerolog.GlobalLevel(); got != want {
			t.Fatalf("SetLogLevel(%q) -> %v; want %v", in, got, want)
		}
	}
}

func TestParseBool(t *testing.T) {
	cases := []struct {
		in        string
		value, ok bool
	}{
		{"1", true, true},
		{" yes ", true, true},
		{"On", true, true},
		{"Y", true, true},
		{" No ", false, true},
		{"off", false, true},
		{"0", false, true},
		{"", false, false},
		{"maybe", false, false},
	}
	for _, tc := range cases {
		v, ok := ParseBool(tc.in)
		if v != tc.value || ok != tc.ok {
			t.Fatalf("ParseBool(%q) = (%v, %v); want (%v, %v)", tc.in, v, ok, tc.value, tc.ok)
		}
		if IsTruthy(tc.in) != (tc.value && tc.ok) {
			t.Fatalf("IsTruthy(%q) disagrees with ParseBool", tc.in)
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty(); got != "" {
		t.Fatalf("FirstNonEmpty() = %q", got)
	}
	if got := FirstNonEmpty(" ", "\t"); got != "" {
		t.Fatalf("blank values must be skipped, got %q", got)
	}
	// LLM_API_KEY wins over OPENAI_API_KEY, untrimmed
	if got := FirstNonEmpty(" sk-a ", "sk-b"); got != " sk-a " {
		t.Fatalf("FirstNonEmpty = %q; want %q", got, " sk-a ")
	}
}

func TestSetupLogger_JSONAndPretty(t *testing.T) {
	orig := log.Logger
	t.Cleanup(func() { log.Logger = orig })

	var buf bytes.Buffer
	SetupLogger(false, &buf)
	log.Info().Str("k", "v").Msg("hello")
	if !strings.Contains(buf.String(), `"k":"v"`) || !strings.Contains(buf.String(), `"message":"hello"`) {
		t.Fatalf("expected JSON log line, got %q", buf.String())
	}

	buf.Reset()
	SetupLogger(true, &buf)
	log.Info().Msg("pretty")
	if strings.Contains(buf.String(), `"message"`) || !strings.Contains(buf.String(), "pretty") {
		t.Fatalf("expected console output, got %q", buf.String())
	}
}
