package preview

import (
	"strings"
	"testing"
	"time"

	"github.com/tbourn/go-postgen/internal/clock"
	"github.com/tbourn/go-postgen/internal/limiter"
)

func TestRender(t *testing.T) {
	cases := []struct {
		name, in string
		want     []string
		not      []string
	}{
		{"emphasis", "**big** news", []string{"<strong>big</strong>"}, nil},
		{"hard wraps", "line one\nline two", []string{"<br"}, nil},
		{"strikethrough", "~~old~~ new", []string{"<del>old</del>"}, nil},
		{"autolink", "see https://example.com", []string{`href="https://example.com"`}, nil},
		{"raw html dropped", "<script>alert(1)</script>", []string{"raw HTML omitted"}, []string{"<script>"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Render(tc.in)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			for _, w := range tc.want {
				if !strings.Contains(got, w) {
					t.Fatalf("Render(%q) = %q; missing %q", tc.in, got, w)
				}
			}
			for _, n := range tc.not {
				if strings.Contains(got, n) {
					t.Fatalf("Render(%q) = %q; must not contain %q", tc.in, got, n)
				}
			}
		})
	}
}

func TestBuild_CountsVisibleCharacters(t *testing.T) {
	p, err := Build("## Hi **all**", 5)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p.Chars != 6 { // "Hi all"
		t.Fatalf("Chars = %d; want 6", p.Chars)
	}
	if !p.OverLimit() || p.Remaining() != -1 {
		t.Fatalf("expected over limit by 1, got remaining %d", p.Remaining())
	}

	p, _ = Build("héllo", 0)
	if p.Chars != 5 || p.OverLimit() || p.Remaining() != 0 {
		t.Fatalf("unbounded preview: %+v", p)
	}
}

func TestLive_LeadingThenTrailingWithLatestText(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	var got []Preview
	l := NewLive(0, 280, func(p Preview, err error) {
		if err != nil {
			t.Errorf("render error: %v", err)
		}
		got = append(got, p)
	}, limiter.WithClock(clk))

	l.Update("a")
	if len(got) != 1 || !strings.Contains(got[0].HTML, "a") {
		t.Fatalf("first update should render at once, got %d", len(got))
	}

	l.Update("ab")
	clk.Advance(100 * time.Millisecond)
	l.Update("abc")
	if !l.Pending() || len(got) != 1 {
		t.Fatalf("edits inside the window should wait")
	}

	clk.Advance(DefaultThrottle - 100*time.Millisecond)
	if len(got) != 2 || got[1].Chars != 3 || got[1].MaxLength != 280 {
		t.Fatalf("trailing render should carry the latest text, got %+v", got)
	}
	if l.Renders() != 2 {
		t.Fatalf("Renders = %d; want 2", l.Renders())
	}
}

func TestLive_CancelAndSetMaxLength(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	var got []Preview
	l := NewLive(100*time.Millisecond, 0, func(p Preview, _ error) { got = append(got, p) }, limiter.WithClock(clk))

	l.Update("one")
	l.Update("two")
	l.Cancel()
	clk.Advance(time.Second)
	if len(got) != 1 {
		t.Fatalf("cancelled trailing render ran: %d renders", len(got))
	}

	l.SetMaxLength(2)
	l.Update("three")
	if len(got) != 2 || !got[1].OverLimit() {
		t.Fatalf("update after Cancel should render at once with the new limit, got %+v", got)
	}
}
