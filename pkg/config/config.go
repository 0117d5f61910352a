package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// DataDir is the root for the metric cache file, universe ticker caches
	// and file-backed screening results.
	DataDir string

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	Cache    CacheConfig
	Results  ResultsConfig
	Fetch    FetchConfig
	Yahoo    YahooConfig
	Universe UniverseConfig

	// Schedule drives the `serve` command's periodic screening run.
	Schedule ScheduleConfig

	// ThresholdsFile is an optional YAML file overriding the default
	// screening thresholds.
	ThresholdsFile string

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	Prefix   string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// CacheConfig controls the metric cache backend and its TTL policy.
type CacheConfig struct {
	Backend    string // file, redis
	File       string
	SuccessTTL time.Duration
	FailureTTL time.Duration
	FlushEvery int
}

// ResultsConfig selects where screening batches are persisted.
type ResultsConfig struct {
	Backend string // file, postgres
	Dir     string
}

// FetchConfig is the courtesy contract with the metric provider.
type FetchConfig struct {
	Delay   time.Duration // minimum spacing between provider calls
	Timeout time.Duration // per-call timeout
	Workers int
}

// YahooConfig holds Yahoo Finance endpoint settings
type YahooConfig struct {
	BaseURL   string
	UserAgent string

	// RateLimit caps provider calls per RateWindow across processes
	// sharing Redis. 0 disables the shared limiter.
	RateLimit  int
	RateWindow time.Duration
}

// UniverseConfig holds index constituent source settings
type UniverseConfig struct {
	WikipediaURL string
}

// ScheduleConfig holds the cron-driven screening settings
type ScheduleConfig struct {
	Cron     string
	Universe string
	Mode     string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	dataDir := getEnv("DATA_DIR", "data")

	cfg := &Config{
		Port:    getEnv("PORT", "8089"),
		Env:     getEnv("ENV", "development"),
		DataDir: dataDir,

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Prefix:   getEnv("REDIS_PREFIX", "screener"),
		},

		Cache: CacheConfig{
			Backend:    getEnv("CACHE_BACKEND", "file"),
			File:       getEnv("CACHE_FILE", filepath.Join(dataDir, "metrics_cache.json")),
			SuccessTTL: getEnvAsDuration("CACHE_SUCCESS_TTL", "24h"),
			FailureTTL: getEnvAsDuration("CACHE_FAILURE_TTL", "1h"),
			FlushEvery: getEnvAsInt("CACHE_FLUSH_EVERY", 50),
		},

		Results: ResultsConfig{
			Backend: getEnv("RESULTS_BACKEND", "file"),
			Dir:     getEnv("RESULTS_DIR", dataDir),
		},

		Fetch: FetchConfig{
			Delay:   getEnvAsDuration("FETCH_DELAY", "100ms"),
			Timeout: getEnvAsDuration("FETCH_TIMEOUT", "15s"),
			Workers: getEnvAsInt("FETCH_WORKERS", 1),
		},

		Yahoo: YahooConfig{
			BaseURL:    getEnv("YAHOO_BASE_URL", "https://query2.finance.yahoo.com"),
			UserAgent:  getEnv("YAHOO_USER_AGENT", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"),
			RateLimit:  getEnvAsInt("YAHOO_RATE_LIMIT", 0),
			RateWindow: getEnvAsDuration("YAHOO_RATE_WINDOW", "1m"),
		},

		Universe: UniverseConfig{
			WikipediaURL: getEnv("WIKIPEDIA_BASE_URL", "https://en.wikipedia.org/wiki"),
		},

		Schedule: ScheduleConfig{
			Cron:     getEnv("SCHEDULE_CRON", "0 30 6 * * 1-5"),
			Universe: getEnv("SCHEDULE_UNIVERSE", "sp500"),
			Mode:     getEnv("SCHEDULE_MODE", "dual"),
		},

		ThresholdsFile: getEnv("THRESHOLDS_FILE", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Cache.Backend {
	case "file":
		if c.Cache.File == "" {
			return fmt.Errorf("CACHE_FILE is required for the file cache backend")
		}
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("CACHE_BACKEND=redis requires REDIS_ENABLED=true")
		}
	default:
		return fmt.Errorf("CACHE_BACKEND must be one of: file, redis")
	}

	if c.Cache.SuccessTTL <= 0 || c.Cache.FailureTTL <= 0 {
		return fmt.Errorf("CACHE_SUCCESS_TTL and CACHE_FAILURE_TTL must be positive")
	}

	switch c.Results.Backend {
	case "file":
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres results backend")
		}
	default:
		return fmt.Errorf("RESULTS_BACKEND must be one of: file, postgres")
	}

	if c.Fetch.Delay < 0 {
		return fmt.Errorf("FETCH_DELAY must not be negative")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if c.Fetch.Workers < 1 {
		return fmt.Errorf("FETCH_WORKERS must be >= 1")
	}
	if c.Yahoo.RateLimit < 0 {
		return fmt.Errorf("YAHOO_RATE_LIMIT must not be negative")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
