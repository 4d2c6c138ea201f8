// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, the audit store, rate limiting, outbound integrations (LLM,
// SMTP, Google Places) and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Dispatch modes.
const (
	DispatchLocal = "local"
	DispatchHTTP  = "http"
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
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// LLMConfig configures the inference client.
type LLMConfig struct {
	APIKey    string        // ANTHROPIC_API_KEY; empty fails audits with "API key not configured"
	Model     string        // ANTHROPIC_MODEL
	BaseURL   string        // ANTHROPIC_BASE_URL
	MaxTokens int64         // ANTHROPIC_MAX_TOKENS
	Timeout   time.Duration // LLM_TIMEOUT
}

// FetchConfig configures the homepage fetcher.
type FetchConfig struct {
	Timeout   time.Duration // FETCH_TIMEOUT, per attempt
	UserAgent string        // FETCH_USER_AGENT
}

// SMTPConfig configures outbound mail.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration

	From     string // MAIL_FROM_ADDRESS
	Support  string // SUPPORT_FROM_ADDRESS
	Internal string // INTERNAL_NOTIFY_ADDRESS
}

// Configured reports whether SMTP credentials are present.
func (s SMTPConfig) Configured() bool { return s.Username != "" && s.Password != "" }

// PlacesConfig configures the Google Places client.
type PlacesConfig struct {
	APIKey  string
	BaseURL string
}

// WorkerConfig configures background dispatch.
type WorkerConfig struct {
	Mode            string        // DISPATCH_MODE: local|http
	BackgroundURL   string        // BACKGROUND_URL, used in http mode
	Count           int           // WORKER_COUNT
	Queue           int           // WORKER_QUEUE
	PipelineTimeout time.Duration // PIPELINE_TIMEOUT
	PurgeInterval   time.Duration // PURGE_INTERVAL
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	ShutdownGrace     time.Duration // e.g. 15s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Store
	DBPath         string        // SQLite path
	AuditRetention time.Duration // expiry of stored records
	IdempotencyTTL time.Duration // Idempotency-Key → auditId lifetime

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Integrations
	LLM      LLMConfig
	Fetch    FetchConfig
	SMTP     SMTPConfig
	Places   PlacesConfig
	GuideURL string

	Worker WorkerConfig

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
func Load() (Config, error) {
	from := getenv("MAIL_FROM_ADDRESS", "info@simple-it.us")
	port := getenv("PORT", "8080")

	cfg := Config{
		// Server
		Port:              port,
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		ShutdownGrace:     getdur("SHUTDOWN_GRACE", 15*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api")),

		// Store
		DBPath:         getenv("DB_PATH", "sitepilot.db"),
		AuditRetention: getdur("AUDIT_RETENTION", 30*24*time.Hour),
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

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

		// Integrations
		LLM: LLMConfig{
			APIKey:    strings.TrimSpace(getenv("ANTHROPIC_API_KEY", "")),
			Model:     getenv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
			BaseURL:   getenv("ANTHROPIC_BASE_URL", ""),
			MaxTokens: int64(getint("ANTHROPIC_MAX_TOKENS", 2048)),
			Timeout:   getdur("LLM_TIMEOUT", 60*time.Second),
		},
		Fetch: FetchConfig{
			Timeout:   getdur("FETCH_TIMEOUT", 8*time.Second),
			UserAgent: getenv("FETCH_USER_AGENT", ""),
		},
		SMTP: SMTPConfig{
			Host:     getenv("SMTP_HOST", "mail.smtp2go.com"),
			Port:     getint("SMTP_PORT", 587),
			Username: getenv("SMTP2GO_USERNAME", ""),
			Password: getenv("SMTP2GO_PASSWORD", ""),
			Timeout:  getdur("SMTP_TIMEOUT", 30*time.Second),
			From:     from,
			Support:  getenv("SUPPORT_FROM_ADDRESS", "support@simple-it.us"),
			Internal: getenv("INTERNAL_NOTIFY_ADDRESS", from),
		},
		Places: PlacesConfig{
			APIKey:  strings.TrimSpace(getenv("GOOGLE_PLACES_API_KEY", "")),
			BaseURL: getenv("GOOGLE_PLACES_BASE_URL", "https://places.googleapis.com/v1"),
		},
		GuideURL: getenv("GUIDE_PDF_URL", "https://simple-it-us.netlify.app/downloads/it-security-checklist-guide.pdf"),

		Worker: WorkerConfig{
			Mode:            strings.ToLower(getenv("DISPATCH_MODE", DispatchLocal)),
			BackgroundURL:   getenv("BACKGROUND_URL", ""),
			Count:           getint("WORKER_COUNT", 4),
			Queue:           getint("WORKER_QUEUE", 64),
			PipelineTimeout: getdur("PIPELINE_TIMEOUT", 3*time.Minute),
			PurgeInterval:   getdur("PURGE_INTERVAL", time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "sitepilot"),
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
	if cfg.Worker.BackgroundURL == "" {
		cfg.Worker.BackgroundURL = "http://localhost:" + port + joinPath(cfg.APIBasePath, "/background")
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
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 || cfg.ShutdownGrace <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.AuditRetention <= 0 {
		return cfg, errors.New("AUDIT_RETENTION must be > 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
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
	if cfg.LLM.MaxTokens <= 0 || cfg.LLM.Timeout <= 0 {
		return cfg, errors.New("ANTHROPIC_MAX_TOKENS and LLM_TIMEOUT must be > 0")
	}
	if cfg.Fetch.Timeout <= 0 {
		return cfg, errors.New("FETCH_TIMEOUT must be > 0")
	}
	if cfg.SMTP.Port <= 0 || cfg.SMTP.Port > 65535 {
		return cfg, errors.New("SMTP_PORT must be a valid port")
	}
	switch cfg.Worker.Mode {
	case DispatchLocal, DispatchHTTP:
	default:
		return cfg, errors.New("DISPATCH_MODE must be one of: local, http")
	}
	if cfg.Worker.Count < 1 || cfg.Worker.Queue < 0 {
		return cfg, errors.New("WORKER_COUNT must be >= 1 and WORKER_QUEUE >= 0")
	}
	if cfg.Worker.PipelineTimeout <= 0 || cfg.Worker.PurgeInterval <= 0 {
		return cfg, errors.New("PIPELINE_TIMEOUT and PURGE_INTERVAL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
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

func joinPath(base, p string) string {
	if base == "/" {
		return p
	}
	return base + p
}
