package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string

	MySQLDSN  string
	RedisAddr string

	LogMode string

	EventWorkers   int
	EventQueueSize int
	EventChannel   string

	SaleCacheTTL time.Duration
}

// Load reads the configuration from the environment, falling back to
// local development defaults.
func Load() Config {
	return Config{
		HTTPAddr:       String("HTTP_ADDR", ":8080"),
		GRPCAddr:       String("GRPC_ADDR", ":50051"),
		MySQLDSN:       String("MYSQL_DSN", "root:root@tcp(localhost:3306)/sales?parseTime=true&loc=UTC"),
		RedisAddr:      String("REDIS_ADDR", "localhost:6379"),
		LogMode:        String("LOG_MODE", "development"),
		EventWorkers:   Int("EVENT_WORKERS", 4),
		EventQueueSize: Int("EVENT_QUEUE_SIZE", 1024),
		EventChannel:   String("EVENT_CHANNEL", "sales.events"),
		SaleCacheTTL:   Duration("SALE_CACHE_TTL", 5*time.Minute),
	}
}

func String(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

func Int(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// Duration accepts Go duration strings ("90s", "5m").
func Duration(name string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
