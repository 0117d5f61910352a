package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ddwolfer/Financial-Assistant/pkg/config"
)

func testConfig(url string) *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{
			URL:             url,
			MaxConns:        4,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
	}
}

func TestNew(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	db, err := New(testConfig(url))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		t.Errorf("Failed to ping database: %v", err)
	}

	status, err := db.HealthCheck(ctx)
	if err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
	if !status.Healthy {
		t.Error("Expected database to be healthy")
	}
	if status.Stats.MaxConns != 4 {
		t.Errorf("Expected MaxConns=4, got %d", status.Stats.MaxConns)
	}

	if err := db.EnsureSchema(ctx, "SELECT 1"); err != nil {
		t.Errorf("EnsureSchema failed: %v", err)
	}
}

func TestNewWithEmptyURL(t *testing.T) {
	if _, err := New(testConfig("")); err == nil {
		t.Error("Expected error with empty database URL, got nil")
	}
}

func TestNewWithInvalidURL(t *testing.T) {
	if _, err := New(testConfig("invalid://url")); err == nil {
		t.Error("Expected error with invalid database URL, got nil")
	}
}

func TestCloseNil(t *testing.T) {
	var db *DB
	db.Close()

	(&DB{}).Close()
}
