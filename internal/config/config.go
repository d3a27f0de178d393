package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageFile   = "file"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request timeout applied by the router

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Storage
	Storage   string // "file" | "redis" | "memory"
	Ephemeral bool   // true => data file lives in the OS temp dir (serverless deployments)
	DataFile  string // resolved path of the JSON document when Storage is "file"

	// Redis (only when Storage is "redis")
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // dial timeout
	RedisRT             time.Duration // read timeout
	RedisWT             time.Duration // write timeout
	RedisPoolSize       int           // connection pool size
	RedisConnectTimeout time.Duration // total time to retry connecting at startup
	RedisRetryInterval  time.Duration // initial wait between retries (grows exponentially)
	RedisMaxWait        time.Duration // max wait between retries
	RedisPingTimeout    time.Duration // timeout for each ping attempt
	RedisKeyPrefix      string        // ex: "marks:"
	RedisHistory        int           // previous documents kept, 0 disables

	// Homepage seed
	SeedFile     string        // optional Homepage bookmarks.yaml imported on start
	SeedInterval time.Duration // re-import interval

	// Import
	MaxUploadBytes     int64 // max size of an uploaded bookmark file
	ImportBurst        int   // rate limit burst on /api/import
	ImportRefillPerMin int   // rate limit refill per client IP

	AllowedHosts []string // optional, restrict /api to specific Host headers
	AllowedCIDRS []string // optional, restrict operational endpoints to specific IPs/CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers
}

// Load reads .env files (when present) then the process environment.
// It panics on missing or inconsistent required settings.
func Load() *Config {
	if err := loadEnvFiles(); err != nil {
		panic(fmt.Sprintf("❌ FATAL: %v", err))
	}

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("MARKS_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("MARKS_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("MARKS_REQUEST_TIMEOUT", 15*time.Second),

		// Logging
		LogLevel:  getenv("MARKS_LOG_LEVEL", "info"),
		PrettyLog: mustBool("MARKS_PRETTY_LOG", true),

		// Storage
		Storage:   strings.ToLower(getenv("MARKS_STORAGE", StorageFile)),
		Ephemeral: mustBool("MARKS_EPHEMERAL", os.Getenv("VERCEL") == "1"),

		// Seed
		SeedFile:     getenv("MARKS_SEED_FILE", ""), // Optional, empty = seeding disabled
		SeedInterval: mustDuration("MARKS_SEED_INTERVAL", 24*time.Hour),

		// Import
		MaxUploadBytes:     int64(getenvInt("MARKS_MAX_UPLOAD_BYTES", 10<<20)),
		ImportBurst:        getenvInt("MARKS_IMPORT_BURST", 5),
		ImportRefillPerMin: getenvInt("MARKS_IMPORT_REFILL_PER_MIN", 10),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("MARKS_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("MARKS_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("MARKS_TRUST_PROXY", false),
	}
	cfg.DataFile = resolveDataFile(getenv("MARKS_DATA_FILE", "bookmarks.json"), cfg.Ephemeral)

	switch cfg.Storage {
	case StorageFile, StorageMemory:
	case StorageRedis:
		cfg.RedisAddr = requireEnv("MARKS_REDIS_ADDR")
		cfg.RedisUser = getenv("MARKS_REDIS_USERNAME", "")
		cfg.RedisPassword = getenv("MARKS_REDIS_PASSWORD", "")
		cfg.RedisDB = getenvInt("MARKS_REDIS_DB", 0)
		cfg.RedisDT = mustDuration("MARKS_REDIS_DIAL_TIMEOUT", 5*time.Second)
		cfg.RedisRT = mustDuration("MARKS_REDIS_READ_TIMEOUT", 3*time.Second)
		cfg.RedisWT = mustDuration("MARKS_REDIS_WRITE_TIMEOUT", 3*time.Second)
		cfg.RedisPoolSize = getenvInt("MARKS_REDIS_POOL_SIZE", 10)
		cfg.RedisConnectTimeout = mustDuration("MARKS_REDIS_CONNECT_TIMEOUT", 30*time.Second)
		cfg.RedisRetryInterval = mustDuration("MARKS_REDIS_RETRY_INTERVAL", 2*time.Second)
		cfg.RedisMaxWait = mustDuration("MARKS_REDIS_MAX_WAIT", 10*time.Second)
		cfg.RedisPingTimeout = mustDuration("MARKS_REDIS_PING_TIMEOUT", 5*time.Second)
		cfg.RedisKeyPrefix = getenv("MARKS_REDIS_KEY_PREFIX", "marks:")
		cfg.RedisHistory = getenvInt("MARKS_REDIS_HISTORY", 10)
	default:
		panic(fmt.Sprintf("❌ FATAL: MARKS_STORAGE must be one of file, redis, memory (got %q)", cfg.Storage))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfgCopy.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// loadEnvFiles loads ENV_FILE if set, otherwise .env.local then .env.
// godotenv never overrides variables already present, so earlier files win.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// resolveDataFile places a relative data file in the temp dir when ephemeral,
// in the working directory otherwise. Absolute paths are kept.
func resolveDataFile(name string, ephemeral bool) string {
	if filepath.IsAbs(name) {
		return name
	}
	if ephemeral {
		return filepath.Join(os.TempDir(), name)
	}
	return name
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
