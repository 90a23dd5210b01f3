package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/tbourn/go-postgen/internal/domain"
)

func printVersions(w io.Writer, vs []domain.PostVersion) {
	for _, v := range vs {
		mark := " "
		if v.IsSelected {
			mark = "*"
		}
		label := v.Approach
		if v.IterationPrompt != nil {
			label = *v.IterationPrompt
		}
		fmt.Fprintf(w, "%s v%d %s", mark, v.VersionNumber, v.ID)
		if label != "" {
			fmt.Fprintf(w, " [%s]", label)
		}
		fmt.Fprintf(w, "\n  %s\n", v.GeneratedText)
	}
}

func (a *App) cmdVersions(ctx context.Context, args []string) error {
	fs := a.flags("versions")
	post := fs.String("post", "", "post id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "post"); err != nil {
		return err
	}
	if err := a.ver.FetchVersions(ctx, *post); err != nil {
		return err
	}
	vs := a.ver.Versions()
	return a.emit(domain.VersionList{TotalVersions: a.ver.TotalVersions(), Versions: vs}, func(w io.Writer) {
		fmt.Fprintf(w, "%d versions of post %s\n", a.ver.TotalVersions(), a.ver.PostID())
		printVersions(w, vs)
	})
}

func (a *App) cmdIterate(ctx context.Context, args []string) error {
	fs := a.flags("iterate")
	post := fs.String("post", "", "post id")
	feedback := fs.String("feedback", "", "free-form revision request")
	typ := fs.String("type", "", "shorter|longer|casual|professional|hook")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "post"); err != nil {
		return err
	}

	res, err := a.ver.Iterate(ctx, *post, domain.IterateRequest{
		Feedback:      *feedback,
		IterationType: domain.IterationType(*typ),
	})
	if err != nil && res.VersionID == "" {
		return err
	}
	// A failed refetch still leaves a created version worth printing.
	if perr := a.emit(res, func(w io.Writer) {
		fmt.Fprintf(w, "created v%d %s\n\n%s\n", res.VersionNumber, res.VersionID, res.GeneratedText)
	}); perr != nil {
		return perr
	}
	a.reportQuota()
	return err
}

func (a *App) cmdSelect(ctx context.Context, args []string) error {
	fs := a.flags("select")
	post := fs.String("post", "", "post id")
	version := fs.String("version", "", "version id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "post", "version"); err != nil {
		return err
	}
	if err := a.ver.FetchVersions(ctx, *post); err != nil {
		return err
	}
	if err := a.ver.SelectVersion(ctx, *post, *version); err != nil {
		return err
	}
	cur, _ := a.ver.Current()
	return a.emit(cur, func(w io.Writer) {
		fmt.Fprintf(w, "selected v%d %s\n", cur.VersionNumber, cur.ID)
	})
}
