// Package cli implements the postgen command: a terminal front end over the
// client runtime (generation orchestrator, version manager, rate-limit
// tracker, catalog cache, live search and preview).
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-postgen/internal/apierror"
	"github.com/tbourn/go-postgen/internal/auth"
	"github.com/tbourn/go-postgen/internal/cache"
	"github.com/tbourn/go-postgen/internal/catalog"
	"github.com/tbourn/go-postgen/internal/client"
	"github.com/tbourn/go-postgen/internal/config"
	"github.com/tbourn/go-postgen/internal/generation"
	"github.com/tbourn/go-postgen/internal/ratelimit"
	"github.com/tbourn/go-postgen/internal/retry"
	"github.com/tbourn/go-postgen/internal/versions"
)

// ErrUsage is returned for unknown commands and bad flags.
var ErrUsage = errors.New("usage")

// Options are the global flags, parsed before the command name.
type Options struct {
	BaseURL string
	Token   string
	JSON    bool
	Timeout time.Duration
}

// ParseOptions parses global flags into Options, starting from cfg. The
// remaining arguments (command and its flags) are returned.
func ParseOptions(fs *flag.FlagSet, args []string, cfg config.ClientConfig) (Options, []string, error) {
	o := Options{BaseURL: cfg.BaseURL, Token: cfg.Token, Timeout: cfg.Timeout}
	fs.StringVar(&o.BaseURL, "api", o.BaseURL, "API base URL")
	fs.StringVar(&o.Token, "token", o.Token, "bearer token")
	fs.BoolVar(&o.JSON, "json", false, "print JSON instead of text")
	fs.DurationVar(&o.Timeout, "timeout", o.Timeout, "per-request timeout")
	if err := fs.Parse(args); err != nil {
		return Options{}, nil, err
	}
	return o, fs.Args(), nil
}

// App holds the client runtime shared by every command of one invocation.
type App struct {
	cfg    config.Config
	opts   Options
	out    io.Writer
	api    *client.Client
	limits *ratelimit.Tracker
	gen    *generation.Orchestrator
	ver    *versions.Manager
	cat    *catalog.Catalog
}

// New wires the runtime. The tracker's resync timer is stopped by Close.
func New(cfg config.Config, opts Options, out io.Writer) (*App, error) {
	api, err := client.New(client.Options{
		BaseURL: opts.BaseURL,
		Timeout: opts.Timeout,
		Tokens:  client.StaticToken(opts.Token),
	})
	if err != nil {
		return nil, err
	}

	policy := func(name string) retry.Policy {
		p := retry.DefaultPolicy(name)
		if cfg.Client.RetryMaxAttempts > 0 {
			p.MaxAttempts = cfg.Client.RetryMaxAttempts
		}
		if cfg.Client.RetryDelay > 0 {
			p.Delay = cfg.Client.RetryDelay
		}
		return p
	}

	limits := ratelimit.New(api, ratelimit.WithMaxDelay(cfg.Client.ResyncMaxDelay))

	var storeOpts []cache.Option
	if cfg.Cache.SingleFlight {
		storeOpts = append(storeOpts, cache.WithSingleFlight())
	}
	cat := catalog.New(api, cache.New(storeOpts...),
		catalog.WithTTLs(cfg.Cache.ListTTL, cfg.Cache.ConfigTTL, cfg.Cache.VolatileTTL))

	return &App{
		cfg:    cfg,
		opts:   opts,
		out:    out,
		api:    api,
		limits: limits,
		gen:    generation.New(api, limits, generation.WithRetryPolicy(policy("generate"))),
		ver:    versions.New(api, versions.WithRetryPolicy(policy("versions")), versions.WithRateLimits(limits)),
		cat:    cat,
	}, nil
}

// Close releases background timers.
func (a *App) Close() { a.limits.Close() }

type command struct {
	name    string
	summary string
	run     func(a *App, ctx context.Context, args []string) error
}

var commands = []command{
	{"generate", "draft a post (-again N repeats it)", (*App).cmdGenerate},
	{"variants", "draft 2-4 variants of one idea", (*App).cmdVariants},
	{"versions", "list the versions of a post", (*App).cmdVersions},
	{"iterate", "create a new version from feedback or a type", (*App).cmdIterate},
	{"select", "select a version of a post", (*App).cmdSelect},
	{"status", "show the generation quota", (*App).cmdStatus},
	{"profiles", "list profiles", (*App).cmdProfiles},
	{"platforms", "list platforms", (*App).cmdPlatforms},
	{"projects", "list projects", (*App).cmdProjects},
	{"search", "search profiles, platforms and projects", (*App).cmdSearch},
	{"preview", "render a draft and count characters", (*App).cmdPreview},
	{"token", "mint a development bearer token", (*App).cmdToken},
}

// Run executes one command.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.usage()
		return ErrUsage
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(a, ctx, args[1:])
		}
	}
	a.usage()
	return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
}

func (a *App) usage() {
	fmt.Fprintln(a.out, "usage: postgen [-api URL] [-token T] [-json] <command> [flags]")
	fmt.Fprintln(a.out, "\ncommands:")
	for _, c := range commands {
		fmt.Fprintf(a.out, "  %-10s %s\n", c.name, c.summary)
	}
}

// Describe renders err for a terminal, using the API's message and status
// when the failure came from the server.
func Describe(err error) string {
	if errors.Is(err, ErrUsage) || errors.Is(err, flag.ErrHelp) {
		return err.Error()
	}
	d := apierror.Format(err)
	if d.Description == "" || d.Description == d.Title {
		return d.Title
	}
	return d.Title + ": " + d.Description
}

func (a *App) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func (a *App) emit(v any, text func(w io.Writer)) error {
	if a.opts.JSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(a.out)
	return nil
}

func (a *App) reportQuota() {
	if st, ok := a.limits.Status(); ok && !a.opts.JSON {
		fmt.Fprintf(a.out, "quota: %d/%d remaining, resets %s\n", st.Remaining, st.Total, st.ResetAt.Local().Format(time.Kitchen))
	}
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}

func required(fs *flag.FlagSet, names ...string) error {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	var missing []string
	for _, n := range names {
		if !set[n] {
			missing = append(missing, "-"+n)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %s requires %s", ErrUsage, fs.Name(), strings.Join(missing, ", "))
	}
	return nil
}

func (a *App) cmdToken(_ context.Context, args []string) error {
	fs := a.flags("token")
	user := fs.String("user", "", "user id (subject)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "user"); err != nil {
		return err
	}
	signer, err := auth.NewSigner(a.cfg.Auth.JWTSecret, a.cfg.Auth.TokenTTL, nil)
	if err != nil {
		return err
	}
	tok, err := signer.Mint(*user)
	if err != nil {
		return err
	}
	log.Debug().Str("user_id", *user).Msg("token minted")
	return a.emit(map[string]string{"token": tok}, func(w io.Writer) { fmt.Fprintln(w, tok) })
}
