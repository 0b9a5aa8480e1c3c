package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/patrickwarner/consentstudio/internal/models"
	"github.com/patrickwarner/consentstudio/internal/normalize"
	"github.com/patrickwarner/consentstudio/internal/units"
)

// Asset registry backends.
const (
	RegistryMemory = "memory"
	RegistryRedis  = "redis"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ServiceName  string
	Environment  string
	LogLevel     string

	PostgresDSN string
	RedisAddr   string
	// AssetRegistry selects where pending images wait until saved: "memory"
	// or "redis".
	AssetRegistry string
	// AssetTTL expires pending images in Redis. Zero keeps them until saved.
	AssetTTL time.Duration

	// TemplateStoreURL points at a remote template store. When empty the
	// server stores templates itself.
	TemplateStoreURL     string
	TemplateStoreTimeout time.Duration
	PublicBaseURL        string
	MaxUploadBytes       int64
	MaxSessions          int

	// Reference canvas per device used to convert pixel coordinates.
	Canvas models.ByDevice[units.Size]

	// Per-session throttling of uploads and saves
	RateLimitEnabled    bool
	RateLimitCapacity   int
	RateLimitRefillRate int

	// Database connection pooling configuration
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration
	// Tracing configuration
	TracingEnabled    bool
	TempoEndpoint     string
	TracingSampleRate float64
}

// Load parses environment variables and returns a Config populated with
// defaults when variables are absent.
func Load() Config {
	cfg := Config{}

	cfg.Port = getenv("PORT", "8787")
	cfg.ReadTimeout = envDuration("READ_TIMEOUT", 5*time.Second)
	cfg.WriteTimeout = envDuration("WRITE_TIMEOUT", 10*time.Second)
	cfg.ServiceName = getenv("SERVICE_NAME", "consentstudio")
	cfg.Environment = getenv("ENV", "development")
	cfg.LogLevel = getenv("LOG_LEVEL", "")

	// Postgres is optional; without it templates live in memory.
	cfg.PostgresDSN = getenv("POSTGRES_DSN", "")
	cfg.RedisAddr = getenv("REDIS_ADDR", "localhost:6379")
	cfg.AssetRegistry = strings.ToLower(getenv("ASSET_REGISTRY", RegistryMemory))
	cfg.AssetTTL = envDuration("ASSET_TTL", 0)

	cfg.TemplateStoreURL = getenv("TEMPLATE_STORE_URL", "")
	cfg.TemplateStoreTimeout = envDuration("TEMPLATE_STORE_TIMEOUT", 15*time.Second)
	cfg.PublicBaseURL = getenv("PUBLIC_BASE_URL", "http://localhost:"+cfg.Port)
	cfg.MaxUploadBytes = int64(envInt("MAX_UPLOAD_BYTES", 10<<20))
	cfg.MaxSessions = envInt("MAX_SESSIONS", 1000)

	cfg.Canvas = models.ByDevice[units.Size]{
		Desktop: envSize("CANVAS_DESKTOP", normalize.DefaultCanvas.Desktop),
		Tablet:  envSize("CANVAS_TABLET", normalize.DefaultCanvas.Tablet),
		Mobile:  envSize("CANVAS_MOBILE", normalize.DefaultCanvas.Mobile),
	}

	cfg.RateLimitEnabled = envBool("RATE_LIMIT_ENABLED", true)
	cfg.RateLimitCapacity = envInt("RATE_LIMIT_CAPACITY", 20)
	cfg.RateLimitRefillRate = envInt("RATE_LIMIT_REFILL_RATE", 5)

	cfg.DBMaxOpenConns = envInt("DB_MAX_OPEN_CONNS", 25)
	cfg.DBMaxIdleConns = envInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLifetime = envDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	cfg.DBConnMaxIdleTime = envDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute)

	cfg.TracingEnabled = envBool("TRACING_ENABLED", false)
	cfg.TempoEndpoint = getenv("TEMPO_ENDPOINT", "tempo:4317")
	cfg.TracingSampleRate = envFloat("TRACING_SAMPLE_RATE", 1.0)

	return cfg
}

// getenv returns the value of the environment variable if set, otherwise def.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envDuration parses an environment variable into a time.Duration.
// The value can be a duration string (e.g. "5s") or a number of seconds.
// If the variable is unset or invalid, def is returned.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

// envBool parses a boolean environment variable. When unset or invalid, def is returned.
func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return def
}

// envInt parses an integer environment variable. When unset or invalid, def is returned.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return def
}

// envFloat parses a float64 environment variable. When unset or invalid, def is returned.
func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return def
}

// envSize parses a "WIDTHxHEIGHT" pixel size such as "1280x720". When unset,
// invalid or not positive, def is returned.
func envSize(key string, def units.Size) units.Size {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return def
	}
	w, h, ok := strings.Cut(v, "x")
	if !ok {
		return def
	}
	width, errW := strconv.ParseFloat(strings.TrimSpace(w), 64)
	height, errH := strconv.ParseFloat(strings.TrimSpace(h), 64)
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return def
	}
	return units.Size{Width: width, Height: height}
}
