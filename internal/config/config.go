package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request deadline for the API (ex: 60s)

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Auth
	JWTSecret string // HS256 secret shared with the identity provider
	JWTIssuer string // optional, checked when set

	// Browser engine
	EngineURL             string        // ex: "http://localhost:8080"
	EngineToken           string        // optional bearer token sent to the engine
	EngineCreateTimeout   time.Duration // create context call (ex: 15s)
	EngineNavigateTimeout time.Duration // navigate call (ex: 30s)
	EngineReleaseTimeout  time.Duration // release call (ex: 5s)
	EngineRateLimit       float64       // outbound requests per second, 0 = unlimited
	EngineRetryMin        time.Duration // backoff floor for the single create retry
	EngineRetryMax        time.Duration // backoff ceiling for the single create retry

	// Sessions
	MaxTabs        int           // per-user context quota (default: 10)
	IdleTimeout    time.Duration // contexts idle longer are reclaimed (default: 30m)
	GCInterval     time.Duration // interval of the garbage collector (default: 1m)
	HistoryTimeout time.Duration // deadline for recording a navigation in history

	// History
	IdempotencyWindow time.Duration // how long an idempotency token is honoured (default: 10m)

	// Storage
	DBPath string // SQLite database file

	// Tracking rules
	RulesFile      string        // optional YAML file with tracking params and search engines
	ReloadInterval time.Duration // interval to reload the rules file (default: 1h)

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	// Access restrictions
	AllowedHosts  []string // optional, restrict ops endpoints to specific Host headers
	AllowedCIDRS  []string // optional, restrict ops endpoints to specific IPs/CIDRs
	AllowedOrigin []string // CORS origins for the API, empty = no CORS headers
	TrustProxy    bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)

	// Per-user API rate limit
	RateLimitBurst     int // bucket size
	RateLimitPerMinute int // refill per minute
}

// Load reads the configuration from the environment. A .env file in the
// working directory (or at TABGATE_ENV_FILE) is loaded first; variables
// already set in the environment win.
func Load() *Config {
	loadDotEnv(getenv("TABGATE_ENV_FILE", ".env"))

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("TABGATE_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("TABGATE_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("TABGATE_REQUEST_TIMEOUT", 60*time.Second),

		// Logging
		LogLevel:  getenv("TABGATE_LOG_LEVEL", "info"),
		PrettyLog: mustBool("TABGATE_PRETTY_LOG", false),

		// Auth
		JWTSecret: requireEnv("TABGATE_JWT_SECRET"),
		JWTIssuer: getenv("TABGATE_JWT_ISSUER", ""),

		// Engine
		EngineURL:             requireEnv("TABGATE_ENGINE_URL"),
		EngineToken:           getenv("TABGATE_ENGINE_TOKEN", ""),
		EngineCreateTimeout:   mustDuration("TABGATE_ENGINE_CREATE_TIMEOUT", 15*time.Second),
		EngineNavigateTimeout: mustDuration("TABGATE_ENGINE_NAVIGATE_TIMEOUT", 30*time.Second),
		EngineReleaseTimeout:  mustDuration("TABGATE_ENGINE_RELEASE_TIMEOUT", 5*time.Second),
		EngineRateLimit:       getenvFloat("TABGATE_ENGINE_RATE_LIMIT", 0),
		EngineRetryMin:        mustDuration("TABGATE_ENGINE_RETRY_MIN", 250*time.Millisecond),
		EngineRetryMax:        mustDuration("TABGATE_ENGINE_RETRY_MAX", 2*time.Second),

		// Sessions
		MaxTabs:        getenvInt("TABGATE_MAX_TABS", 10),
		IdleTimeout:    mustDuration("TABGATE_IDLE_TIMEOUT", 30*time.Minute),
		GCInterval:     mustDuration("TABGATE_GC_INTERVAL", time.Minute),
		HistoryTimeout: mustDuration("TABGATE_HISTORY_TIMEOUT", 5*time.Second),

		// History
		IdempotencyWindow: mustDuration("TABGATE_IDEMPOTENCY_WINDOW", 10*time.Minute),

		// Storage
		DBPath: getenv("TABGATE_DB_PATH", "/data/tabgate.db"),

		// Tracking rules
		RulesFile:      getenv("TABGATE_RULES_FILE", ""),
		ReloadInterval: mustDuration("TABGATE_RELOAD_INTERVAL", time.Hour),

		// Redis settings
		RedisAddr:             requireEnv("TABGATE_REDIS_ADDR"),
		RedisUser:             getenv("TABGATE_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("TABGATE_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("TABGATE_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("TABGATE_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts:  splitAndTrim(getenv("TABGATE_ALLOWED_HOSTS", "")),
		AllowedCIDRS:  parseAllowedIPs(getenv("TABGATE_ALLOWED_CIDRS", "")),
		AllowedOrigin: splitAndTrim(getenv("TABGATE_ALLOWED_ORIGINS", "")),
		TrustProxy:    mustBool("TABGATE_TRUST_PROXY", false),

		RateLimitBurst:     getenvInt("TABGATE_RATE_LIMIT_BURST", 60),
		RateLimitPerMinute: getenvInt("TABGATE_RATE_LIMIT_PER_MINUTE", 120),
	}

	// Validate Redis password configuration
	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: TABGATE_REDIS_PASSWORD is required when TABGATE_REDIS_PASSWORD_REQUIRED=true")
	}
	if len(cfg.JWTSecret) < 32 {
		panic("❌ FATAL: TABGATE_JWT_SECRET must be at least 32 bytes")
	}
	if cfg.MaxTabs < 1 {
		panic(fmt.Sprintf("❌ FATAL: TABGATE_MAX_TABS must be >= 1, got %d", cfg.MaxTabs))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	c.JWTSecret = "***REDACTED***"
	if c.EngineToken != "" {
		c.EngineToken = "***REDACTED***"
	}
	if c.RedisPassword != "" {
		c.RedisPassword = "***REDACTED***"
	}
	if c.RedisUser != "" {
		c.RedisUser = "***REDACTED***"
	}
	return c
}

// loadDotEnv loads path if it exists. Missing files are not an error.
func loadDotEnv(path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid env file %s: %v", path, err))
	}
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
