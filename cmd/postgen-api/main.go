// Command postgen-api serves the post generation API: drafts, variants,
// version history and the reference catalog, backed by SQLite.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-postgen/internal/auth"
	"github.com/tbourn/go-postgen/internal/config"
	httpapi "github.com/tbourn/go-postgen/internal/http"
	"github.com/tbourn/go-postgen/internal/http/middleware"
	"github.com/tbourn/go-postgen/internal/llm"
	"github.com/tbourn/go-postgen/internal/observability"
	"github.com/tbourn/go-postgen/internal/repo"
	"github.com/tbourn/go-postgen/internal/services"
	"github.com/tbourn/go-postgen/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	shutdownTimeout = 15 * time.Second
	purgeInterval   = 10 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		sysutil.SetupLogger(false, nil)
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	sysutil.SetupLogger(cfg.LogPretty, os.Stderr)
	sysutil.SetLogLevel(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath, repo.SQLiteOptions{
		MaxOpenConns: cfg.DBMaxOpenConns,
		BusyTimeout:  cfg.DBBusyTimeout,
		Tracing:      cfg.OTEL.Enabled,
	})
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}
	if cfg.SeedDemo {
		if err := repo.SeedDemo(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("seed demo data")
		}
	}

	gen, err := llm.New(cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("text generator")
	}

	var verifier middleware.TokenVerifier
	if cfg.Auth.JWTSecret != "" {
		signer, err := auth.NewSigner(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, nil)
		if err != nil {
			log.Fatal().Err(err).Msg("token signer")
		}
		verifier = signer
	}

	quota := services.NewQuota(cfg.Quota.Limit, cfg.Quota.Window, nil)
	r := gin.New()
	idem := httpapi.RegisterRoutes(r, httpapi.Deps{DB: db, LLM: gen, Verifier: verifier, Quota: quota}, cfg)
	go purgeExpired(ctx, idem, quota)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", version).
			Str("llm", cfg.LLM.Provider).
			Bool("auth_required", cfg.Auth.Required).
			Msg("postgen-api listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := shutdownOTel(sctx); err != nil {
		log.Warn().Err(err).Msg("otel shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// purgeExpired deletes expired idempotency records and ended quota windows
// until ctx ends.
func purgeExpired(ctx context.Context, idem *services.IdempotencyService, quota *services.Quota) {
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := quota.Purge(); n > 0 {
				log.Debug().Int("windows", n).Msg("ended quota windows purged")
			}
			n, err := idem.Purge(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("idempotency purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("deleted", n).Msg("expired idempotency records purged")
			}
		}
	}
}
