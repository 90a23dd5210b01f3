// Package config provides application configuration loaded from environment
// variables (optionally seeded from a .env file) with defaults and validation.
// It covers both binaries: the generation API server and the postgen client.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tbourn/go-postgen/internal/sysutil"
	"github.com/tbourn/go-postgen/internal/utils"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "postgen-api")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// AuthConfig defines bearer token settings shared by the server and the CLI.
type AuthConfig struct {
	JWTSecret string        // AUTH_JWT_SECRET (HS256)
	TokenTTL  time.Duration // AUTH_TOKEN_TTL for minted dev tokens
	Required  bool          // AUTH_REQUIRED; when false the server falls back to X-User-ID
}

// Supported LLM providers.
const (
	LLMProviderMock   = "mock"
	LLMProviderOpenAI = "openai"
)

// LLMConfig selects the text generator used by the API server.
type LLMConfig struct {
	Provider string // LLMProviderMock or LLMProviderOpenAI
	Model    string
	APIKey   string
	BaseURL  string
}

// QuotaConfig is the per-user generation budget reported through /generate/status.
type QuotaConfig struct {
	Limit  int
	Window time.Duration
}

// ClientConfig configures the postgen client runtime.
type ClientConfig struct {
	BaseURL          string        // POSTGEN_API_URL
	Token            string        // POSTGEN_TOKEN
	Timeout          time.Duration // per-request HTTP timeout
	RetryMaxAttempts int
	RetryDelay       time.Duration
	ResyncMaxDelay   time.Duration // upper bound for the rate-limit resync timer
	SearchDebounce   time.Duration
	PreviewThrottle  time.Duration
}

// CacheConfig holds the TTL classes used for reference data.
type CacheConfig struct {
	VolatileTTL  time.Duration // ~30s
	ListTTL      time.Duration // ~3m
	ConfigTTL    time.Duration // ~10m
	SingleFlight bool          // share one in-flight fetch per key
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DBPath         string        // SQLite path
	DBMaxOpenConns int           // DB_MAX_OPEN_CONNS
	DBBusyTimeout  time.Duration // DB_BUSY_TIMEOUT
	SeedDemo       bool          // seed demo profiles/platforms/projects on start

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Generation
	Quota QuotaConfig
	LLM   LLMConfig
	Auth  AuthConfig

	// Client runtime
	Client ClientConfig
	Cache  CacheConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
//
// A .env file (or the file named by ENV_FILE) is loaded first when present;
// variables already set in the environment win.
func Load() (Config, error) {
	_ = godotenv.Load(getenv("ENV_FILE", ".env"))

	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath:         getenv("DB_PATH", "postgen.db"),
		DBMaxOpenConns: getint("DB_MAX_OPEN_CONNS", 10),
		DBBusyTimeout:  getdur("DB_BUSY_TIMEOUT", 5*time.Second),
		SeedDemo:       getbool("SEED_DEMO", true),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Generation
		Quota: QuotaConfig{
			Limit:  getint("QUOTA_LIMIT", 20),
			Window: getdur("QUOTA_WINDOW", time.Hour),
		},
		LLM: LLMConfig{
			Provider: strings.ToLower(getenv("LLM_PROVIDER", LLMProviderMock)),
			Model:    getenv("LLM_MODEL", "gpt-4o-mini"),
			APIKey:   sysutil.FirstNonEmpty(os.Getenv("LLM_API_KEY"), os.Getenv("OPENAI_API_KEY")),
			BaseURL:  getenv("LLM_BASE_URL", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getenv("AUTH_JWT_SECRET", ""),
			TokenTTL:  getdur("AUTH_TOKEN_TTL", 24*time.Hour),
			Required:  getbool("AUTH_REQUIRED", false),
		},

		// Client runtime
		Client: ClientConfig{
			BaseURL:          strings.TrimRight(getenv("POSTGEN_API_URL", "http://localhost:8080/api/v1"), "/"),
			Token:            getenv("POSTGEN_TOKEN", ""),
			Timeout:          getdur("CLIENT_TIMEOUT", 60*time.Second),
			RetryMaxAttempts: getint("RETRY_MAX_ATTEMPTS", 3),
			RetryDelay:       getdur("RETRY_DELAY", time.Second),
			ResyncMaxDelay:   getdur("RESYNC_MAX_DELAY", time.Minute),
			SearchDebounce:   getdur("SEARCH_DEBOUNCE", 300*time.Millisecond),
			PreviewThrottle:  getdur("PREVIEW_THROTTLE", 250*time.Millisecond),
		},
		Cache: CacheConfig{
			VolatileTTL:  getdur("CACHE_TTL_VOLATILE", 30*time.Second),
			ListTTL:      getdur("CACHE_TTL_LIST", 3*time.Minute),
			ConfigTTL:    getdur("CACHE_TTL_CONFIG", 10*time.Minute),
			SingleFlight: getbool("CACHE_SINGLE_FLIGHT", false),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "postgen"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	if cfg.Quota.Limit < 1 || cfg.Quota.Window <= 0 {
		return cfg, errors.New("QUOTA_LIMIT must be >= 1 and QUOTA_WINDOW > 0")
	}
	switch cfg.LLM.Provider {
	case LLMProviderMock:
	case LLMProviderOpenAI:
		if strings.TrimSpace(cfg.LLM.APIKey) == "" {
			return cfg, errors.New("LLM_API_KEY is required when LLM_PROVIDER=openai")
		}
	default:
		return cfg, errors.New("LLM_PROVIDER must be one of: mock, openai")
	}
	if cfg.Auth.Required && strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return cfg, errors.New("AUTH_JWT_SECRET is required when AUTH_REQUIRED is set")
	}
	if cfg.Client.RetryMaxAttempts < 1 {
		return cfg, errors.New("RETRY_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.Client.Timeout <= 0 || cfg.Client.RetryDelay < 0 || cfg.Client.ResyncMaxDelay <= 0 {
		return cfg, errors.New("client durations must be positive")
	}
	if cfg.Cache.VolatileTTL <= 0 || cfg.Cache.ListTTL <= 0 || cfg.Cache.ConfigTTL <= 0 {
		return cfg, errors.New("cache TTLs must be positive")
	}

	return cfg, nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	return utils.FloatDefault(os.Getenv(k), def)
}

func getint(k string, def int) int {
	return utils.AtoiDefault(os.Getenv(k), def)
}

func getbool(k string, def bool) bool {
	if b, ok := sysutil.ParseBool(os.Getenv(k)); ok {
		return b
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	return utils.DurationDefault(os.Getenv(k), def)
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
