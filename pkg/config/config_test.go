package config

import (
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Check defaults
	if cfg.Env != "development" {
		t.Errorf("Expected Env to be development, got %s", cfg.Env)
	}

	if cfg.Cache.SuccessTTL != 24*time.Hour {
		t.Errorf("Expected success TTL 24h, got %v", cfg.Cache.SuccessTTL)
	}

	if cfg.Cache.FailureTTL != time.Hour {
		t.Errorf("Expected failure TTL 1h, got %v", cfg.Cache.FailureTTL)
	}

	if cfg.Fetch.Workers != 1 {
		t.Errorf("Expected 1 fetch worker, got %d", cfg.Fetch.Workers)
	}

	if cfg.Results.Backend != "file" {
		t.Errorf("Expected file results backend, got %s", cfg.Results.Backend)
	}
}

func TestLoadWithCustomValues(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("DATA_DIR", "/var/lib/screener")
	t.Setenv("CACHE_FAILURE_TTL", "30m")
	t.Setenv("FETCH_DELAY", "250ms")
	t.Setenv("FETCH_WORKERS", "4")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Env != "production" {
		t.Errorf("Expected Env to be production, got %s", cfg.Env)
	}

	if cfg.Cache.File != "/var/lib/screener/metrics_cache.json" {
		t.Errorf("Expected cache file under DATA_DIR, got %s", cfg.Cache.File)
	}

	if cfg.Cache.FailureTTL != 30*time.Minute {
		t.Errorf("Expected failure TTL 30m, got %v", cfg.Cache.FailureTTL)
	}

	if cfg.Fetch.Delay != 250*time.Millisecond {
		t.Errorf("Expected delay 250ms, got %v", cfg.Fetch.Delay)
	}

	if cfg.Fetch.Workers != 4 {
		t.Errorf("Expected 4 workers, got %d", cfg.Fetch.Workers)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("Expected LogLevel to be debug, got %s", cfg.LogLevel)
	}
}

func TestValidatePostgresRequiresDatabaseURL(t *testing.T) {
	t.Setenv("RESULTS_BACKEND", "postgres")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when DATABASE_URL is missing, got nil")
	}
}

func TestValidateRedisCacheRequiresRedis(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_ENABLED", "false")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when redis cache backend has redis disabled, got nil")
	}
}

func TestValidateInvalidEnv(t *testing.T) {
	t.Setenv("ENV", "invalid")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when ENV is invalid, got nil")
	}
}

func TestValidateWorkers(t *testing.T) {
	t.Setenv("FETCH_WORKERS", "0")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when FETCH_WORKERS is 0, got nil")
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "2h")

	duration := getEnvAsDuration("TEST_DURATION", "1h")
	if duration != 2*time.Hour {
		t.Errorf("Expected duration to be 2h, got %v", duration)
	}

	t.Setenv("TEST_DURATION", "not-a-duration")
	if got := getEnvAsDuration("TEST_DURATION", "1h"); got != time.Hour {
		t.Errorf("Expected fallback 1h, got %v", got)
	}
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("TEST_INT", "100")

	value := getEnvAsInt("TEST_INT", 50)
	if value != 100 {
		t.Errorf("Expected value to be 100, got %d", value)
	}
}

func TestGetEnvAsBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")

	value := getEnvAsBool("TEST_BOOL", false)
	if value != true {
		t.Errorf("Expected value to be true, got %v", value)
	}
}
