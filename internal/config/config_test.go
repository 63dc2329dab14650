package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, name := range []string{"HTTP_ADDR", "GRPC_ADDR", "MYSQL_DSN", "REDIS_ADDR", "LOG_MODE", "EVENT_WORKERS", "EVENT_QUEUE_SIZE", "EVENT_CHANNEL", "SALE_CACHE_TTL"} {
		t.Setenv(name, "")
	}

	cfg := Load()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":50051", cfg.GRPCAddr)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "development", cfg.LogMode)
	assert.Equal(t, 4, cfg.EventWorkers)
	assert.Equal(t, 1024, cfg.EventQueueSize)
	assert.Equal(t, "sales.events", cfg.EventChannel)
	assert.Equal(t, 5*time.Minute, cfg.SaleCacheTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("EVENT_WORKERS", " 8 ")
	t.Setenv("SALE_CACHE_TTL", "90s")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 8, cfg.EventWorkers)
	assert.Equal(t, 90*time.Second, cfg.SaleCacheTTL)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("EVENT_QUEUE_SIZE", "lots")
	t.Setenv("SALE_CACHE_TTL", "-1m")

	cfg := Load()

	assert.Equal(t, 1024, cfg.EventQueueSize)
	assert.Equal(t, 5*time.Minute, cfg.SaleCacheTTL)
}
