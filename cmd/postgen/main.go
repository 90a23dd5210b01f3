// Command postgen drafts and iterates social media posts against a running
// postgen-api.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-postgen/internal/cli"
	"github.com/tbourn/go-postgen/internal/config"
	"github.com/tbourn/go-postgen/internal/sysutil"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		exitf("config: %v", err)
	}
	sysutil.SetupLogger(true, os.Stderr)
	sysutil.SetLogLevel("warn")
	if sysutil.IsTruthy(os.Getenv("POSTGEN_DEBUG")) {
		sysutil.SetLogLevel("debug")
	}

	fs := flag.NewFlagSet("postgen", flag.ContinueOnError)
	opts, args, err := cli.ParseOptions(fs, os.Args[1:], cfg.Client)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		exitf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app, err := cli.New(cfg, opts, os.Stdout)
	if err != nil {
		exitf("%v", err)
	}
	defer app.Close()

	if err := app.Run(ctx, args); err != nil {
		log.Debug().Err(err).Msg("command failed")
		app.Close()
		exitf("%s", cli.Describe(err))
	}
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "postgen: "+format+"\n", args...)
	os.Exit(1)
}
