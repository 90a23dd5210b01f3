package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/tbourn/go-postgen/internal/domain"
	"github.com/tbourn/go-postgen/internal/generation"
)

// requestFlags registers the generation inputs on fs.
func requestFlags(fs *flag.FlagSet) func() domain.GenerateRequest {
	profile := fs.String("profile", "", "profile id")
	platform := fs.String("platform", "", "platform id or slug")
	project := fs.String("project", "", "project id")
	goal := fs.String("goal", "", "what the post should achieve")
	idea := fs.String("idea", "", "raw idea to write about")
	return func() domain.GenerateRequest {
		return domain.GenerateRequest{
			ProfileID:  *profile,
			PlatformID: optional(*platform),
			ProjectID:  optional(*project),
			Goal:       *goal,
			RawIdea:    *idea,
		}
	}
}

func (a *App) cmdGenerate(ctx context.Context, args []string) error {
	fs := a.flags("generate")
	req := requestFlags(fs)
	again := fs.Int("again", 0, "regenerate N more times from the same inputs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "profile", "idea"); err != nil {
		return err
	}

	results := make([]*generation.Result, 0, 1+*again)
	res, err := a.gen.Generate(ctx, req())
	if err != nil {
		return err
	}
	results = append(results, res)
	for i := 0; i < *again; i++ {
		res, err := a.gen.Regenerate(ctx)
		if err != nil {
			return err
		}
		results = append(results, res)
	}

	err = a.emit(results, func(w io.Writer) {
		for _, r := range results {
			printResult(w, r)
		}
	})
	a.reportQuota()
	return err
}

func printResult(w io.Writer, r *generation.Result) {
	fmt.Fprintf(w, "post %s", r.Post.ID)
	if r.Post.Title != "" {
		fmt.Fprintf(w, " %q", r.Post.Title)
	}
	if r.Version != nil {
		fmt.Fprintf(w, " (version %d)", r.Version.VersionNumber)
	}
	fmt.Fprintf(w, "\n\n%s\n\n", r.Post.GeneratedText)
}

func (a *App) cmdVariants(ctx context.Context, args []string) error {
	fs := a.flags("variants")
	req := requestFlags(fs)
	n := fs.Int("n", domain.MaxVariants, "number of variants (2-4)")
	pick := fs.Int("pick", 0, "index of the variant to keep as the working selection")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "profile", "idea"); err != nil {
		return err
	}

	vs, err := a.gen.GenerateVariants(ctx, req(), *n)
	if err != nil {
		return err
	}
	if *pick != 0 {
		if err := a.gen.SelectVariant(*pick); err != nil {
			return err
		}
	}
	sel, _ := a.gen.SelectedVariant()

	err = a.emit(vs, func(w io.Writer) {
		for i, v := range vs {
			mark := " "
			if v.VersionID == sel.VersionID {
				mark = "*"
			}
			fmt.Fprintf(w, "%s[%d] %s (%s, %d tokens)\n%s\n\n", mark, i, v.Approach, v.Format, v.Usage.TotalTokens, v.GeneratedText)
		}
	})
	a.reportQuota()
	return err
}

func (a *App) cmdStatus(ctx context.Context, args []string) error {
	if err := a.flags("status").Parse(args); err != nil {
		return err
	}
	a.limits.Check(ctx)
	st, ok := a.limits.Status()
	if !ok {
		return errors.New("rate limit status unavailable")
	}
	return a.emit(st, func(w io.Writer) {
		fmt.Fprintf(w, "%d of %d generations remaining\n", st.Remaining, st.Total)
		if a.limits.IsRateLimited() {
			fmt.Fprintf(w, "rate limited, resets in %s\n", a.limits.ResetIn().Round(time.Second))
		}
	})
}
