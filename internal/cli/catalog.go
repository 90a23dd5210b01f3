package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-postgen/internal/catalog"
	"github.com/tbourn/go-postgen/internal/preview"
)

func (a *App) cmdProfiles(ctx context.Context, args []string) error {
	fs := a.flags("profiles")
	refresh := fs.Bool("refresh", false, "drop the cached list first")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *refresh {
		a.cat.InvalidateProfiles()
	}
	ps, err := a.cat.Profiles(ctx)
	if err != nil {
		return err
	}
	return a.emit(ps, func(w io.Writer) {
		for _, p := range ps {
			fmt.Fprintf(w, "%s  %s (%s)\n", p.ID, p.Name, p.Tone)
		}
	})
}

func (a *App) cmdPlatforms(ctx context.Context, args []string) error {
	fs := a.flags("platforms")
	refresh := fs.Bool("refresh", false, "drop the cached list first")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *refresh {
		a.cat.InvalidatePlatforms()
	}
	ps, err := a.cat.Platforms(ctx)
	if err != nil {
		return err
	}
	return a.emit(ps, func(w io.Writer) {
		for _, p := range ps {
			limit := "unlimited"
			if p.MaxLength > 0 {
				limit = fmt.Sprintf("%d chars", p.MaxLength)
			}
			fmt.Fprintf(w, "%-10s %s, %s, %s\n", p.Slug, p.Name, p.Format, limit)
		}
	})
}

func (a *App) cmdProjects(ctx context.Context, args []string) error {
	fs := a.flags("projects")
	profile := fs.String("profile", "", "only projects of this profile")
	refresh := fs.Bool("refresh", false, "drop the cached list first")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *refresh {
		a.cat.InvalidateProjects()
	}
	ps, err := a.cat.Projects(ctx, optional(*profile))
	if err != nil {
		return err
	}
	return a.emit(ps, func(w io.Writer) {
		for _, p := range ps {
			fmt.Fprintf(w, "%s  %s\n", p.ID, p.Name)
		}
	})
}

// cmdSearch replays the query keystroke by keystroke through the debounced
// live search, so only the final query hits the index.
func (a *App) cmdSearch(ctx context.Context, args []string) error {
	fs := a.flags("search")
	k := fs.Int("k", 5, "maximum results")
	if err := fs.Parse(args); err != nil {
		return err
	}
	query := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: search requires a query", ErrUsage)
	}

	type outcome struct {
		hits []catalog.Hit
		err  error
	}
	done := make(chan outcome, 1)
	ls := catalog.NewLiveSearch(ctx, a.cat, a.cfg.Client.SearchDebounce, *k, func(_ string, hits []catalog.Hit, err error) {
		select {
		case done <- outcome{hits, err}:
		default:
		}
	})
	defer ls.Cancel()

	for i := 1; i <= len(query); i++ {
		ls.Type(query[:i])
	}
	ls.Submit()

	var res outcome
	select {
	case res = <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if res.err != nil {
		return res.err
	}
	return a.emit(res.hits, func(w io.Writer) {
		if len(res.hits) == 0 {
			fmt.Fprintln(w, "no matches")
		}
		for _, h := range res.hits {
			fmt.Fprintf(w, "%-8s %s  %.2f  %s\n", h.Kind, h.ID, h.Score, h.Snippet)
		}
	})
}

// cmdPreview feeds the draft line by line through the throttled live
// preview and prints the final render.
func (a *App) cmdPreview(ctx context.Context, args []string) error {
	fs := a.flags("preview")
	text := fs.String("text", "", "draft text")
	file := fs.String("file", "", "read the draft from a file (- for stdin)")
	platform := fs.String("platform", "", "measure against this platform's limit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	draft := *text
	if *file != "" {
		var (
			b   []byte
			err error
		)
		if *file == "-" {
			b, err = io.ReadAll(os.Stdin)
		} else {
			b, err = os.ReadFile(*file)
		}
		if err != nil {
			return err
		}
		draft = string(b)
	}
	if strings.TrimSpace(draft) == "" {
		return fmt.Errorf("%w: preview requires -text or -file", ErrUsage)
	}

	maxLen := 0
	if *platform != "" {
		p, ok, err := a.cat.Platform(ctx, *platform)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("unknown platform %q", *platform)
		}
		maxLen = p.MaxLength
	}

	wait := a.cfg.Client.PreviewThrottle
	if wait <= 0 {
		wait = preview.DefaultThrottle
	}
	settled := make(chan struct{}, 1)
	live := preview.NewLive(wait, maxLen, func(p preview.Preview, err error) {
		if err == nil {
			log.Debug().Int("chars", p.Chars).Bool("over_limit", p.OverLimit()).Msg("preview rendered")
		}
		select {
		case settled <- struct{}{}:
		default:
		}
	})
	defer live.Cancel()

	var sb strings.Builder
	for _, l := range strings.SplitAfter(draft, "\n") {
		sb.WriteString(l)
		live.Update(sb.String())
	}
	// The first update renders at once and later ones collapse into one
	// trailing render; wait for it before printing the final state.
	for live.Pending() {
		select {
		case <-settled:
		case <-time.After(2 * wait):
			live.Cancel()
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p, err := preview.Build(draft, maxLen)
	if err != nil {
		return err
	}

	out := struct {
		HTML      string `json:"html"`
		Chars     int    `json:"chars"`
		MaxLength int    `json:"maxLength,omitempty"`
		OverLimit bool   `json:"overLimit"`
		Renders   int    `json:"renders"`
	}{p.HTML, p.Chars, p.MaxLength, p.OverLimit(), live.Renders()}
	return a.emit(out, func(w io.Writer) {
		fmt.Fprint(w, p.HTML)
		switch {
		case p.MaxLength == 0:
			fmt.Fprintf(w, "\n%d characters\n", p.Chars)
		case p.OverLimit():
			fmt.Fprintf(w, "\n%d characters, %d over the %d limit\n", p.Chars, -p.Remaining(), p.MaxLength)
		default:
			fmt.Fprintf(w, "\n%d characters, %d left\n", p.Chars, p.Remaining())
		}
	})
}
