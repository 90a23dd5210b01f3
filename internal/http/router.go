// Package httpapi wires the HTTP transport (Gin) to the generation services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// authentication, idempotency, rate limiting, CORS and security headers.
//
// @title                      Post Generation API
// @version                    1.0
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-postgen/internal/config"
	"github.com/tbourn/go-postgen/internal/http/docs"
	"github.com/tbourn/go-postgen/internal/http/handlers"
	"github.com/tbourn/go-postgen/internal/http/middleware"
	"github.com/tbourn/go-postgen/internal/llm"
	"github.com/tbourn/go-postgen/internal/services"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

var (
	corsMethods = []string{"GET", "POST", "OPTIONS"}
	corsHeaders = []string{
		"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match",
		middleware.HeaderUserID, middleware.HeaderIdempotencyKey,
	}
	corsExposed = []string{"X-Request-ID", "Content-Length", "ETag", "Retry-After", middleware.HeaderIdempotencyReplayed}
)

// Deps are the collaborators RegisterRoutes injects into services.
type Deps struct {
	DB       *gorm.DB
	LLM      llm.Generator
	Verifier middleware.TokenVerifier // nil rejects every bearer token
	Quota    *services.Quota          // nil builds one from cfg.Quota
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the API under cfg.APIBasePath. It returns the
// idempotency store so the caller can purge expired records.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. AccessLog: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. CORS, gzip and security headers
//
// The API group then adds:
//  8. Authenticate: resolve the caller
//  9. Idempotency validator (before rate limiter to allow bypass on replay)
//  10. Rate limiter (per user/IP, bypass on replay)
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) *services.IdempotencyService {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.AccessLog(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) CORS, compression and security headers
	useCORS(r, cfg.CORS)
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← db/llm/quota
	quota := deps.Quota
	if quota == nil {
		quota = services.NewQuota(cfg.Quota.Limit, cfg.Quota.Window, nil)
	}
	genSvc := &services.GenerationService{
		DB:          deps.DB,
		LLM:         deps.LLM,
		Quota:       quota,
		TitleLocale: language.English,
		TitleMaxLen: 60,
	}
	verSvc := &services.VersionService{DB: deps.DB, LLM: deps.LLM, Quota: quota}
	catSvc := &services.CatalogService{DB: deps.DB}
	idemSvc := &services.IdempotencyService{DB: deps.DB, TTL: cfg.IdempotencyTTL}
	h := handlers.New(genSvc, verSvc, catSvc, idemSvc)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)

	// 8) Caller identity
	api.Use(middleware.Authenticate(middleware.AuthOptions{
		Verifier: deps.Verifier,
		Required: cfg.Auth.Required,
	}))

	// 9) Idempotency validation (before rate limiting)
	api.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, userID, scope, key string) (bool, error) {
			_, found, err := idemSvc.Lookup(ctx, userID, scope, key)
			return found, err
		},
	))

	// 10) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	api.Use(rl.Handler())
	{
		// Generation
		api.POST("/generate", h.Generate)
		api.GET("/generate/status", h.GenerationStatus)

		// Versions
		api.POST("/posts/:id/iterate", h.Iterate)
		api.GET("/posts/:id/versions", h.ListVersions)
		api.POST("/posts/:id/versions/:versionId/select", h.SelectVersion)

		// Catalog
		api.GET("/profiles", h.ListProfiles)
		api.GET("/platforms", h.ListPlatforms)
		api.GET("/projects", h.ListProjects)
	}

	return idemSvc
}

// useCORS installs gin-contrib/cors. With no configured origins every origin
// is allowed; otherwise allowed origins are echoed back with Vary: Origin.
func useCORS(r *gin.Engine, c config.CORSConfig) {
	if len(c.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     corsMethods,
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    corsExposed,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
		return
	}

	allowed := make(map[string]struct{}, len(c.AllowedOrigins))
	for _, o := range c.AllowedOrigins {
		allowed[o] = struct{}{}
	}
	r.Use(func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := allowed[origin]; ok {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
		}
		c.Next()
	})
	r.Use(cors.New(cors.Config{
		AllowOrigins:     c.AllowedOrigins,
		AllowMethods:     corsMethods,
		AllowHeaders:     corsHeaders,
		ExposeHeaders:    corsExposed,
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
