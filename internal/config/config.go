package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// MaxFetchLimit is the largest page the store returns for one list query.
const MaxFetchLimit = 5000

// Config holds all configuration for the boothboard server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Report   ReportConfig
}

type ServerConfig struct {
	Port               int
	Env                string
	RateLimitPerMinute int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// ReportConfig tunes the usage report endpoints.
type ReportConfig struct {
	// DefaultRangeDays is the length of the window, ending today, that the
	// summary uses when the caller gives no dates.
	DefaultRangeDays int
	// MaxRangeDays is the longest explicit date range a report accepts.
	MaxRangeDays int
	// FetchLimit is the page size used when a report loads entities and
	// sessions from the store.
	FetchLimit int
	// MaxRows caps the rows of each kind one report loads. Reports cut at
	// the cap are flagged as truncated.
	MaxRows      int
	TreeCacheTTL time.Duration
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:               envInt("BOOTHBOARD_PORT", 8080),
			Env:                envString("BOOTHBOARD_ENV", "development"),
			RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Report: ReportConfig{
			DefaultRangeDays: envInt("REPORT_DEFAULT_RANGE_DAYS", 7),
			MaxRangeDays:     envInt("REPORT_MAX_RANGE_DAYS", 366),
			FetchLimit:       envInt("REPORT_FETCH_LIMIT", 2000),
			MaxRows:          envInt("REPORT_MAX_ROWS", 100000),
			TreeCacheTTL:     envDuration("REPORT_TREE_CACHE_TTL", 60*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if !strings.HasPrefix(c.Database.URL, "postgres://") && !strings.HasPrefix(c.Database.URL, "postgresql://") {
		return fmt.Errorf("DATABASE_URL must start with postgres:// or postgresql://, got %q", c.Database.URL)
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("BOOTHBOARD_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Report.DefaultRangeDays < 1 {
		return fmt.Errorf("REPORT_DEFAULT_RANGE_DAYS must be at least 1, got %d", c.Report.DefaultRangeDays)
	}
	if c.Report.MaxRangeDays < c.Report.DefaultRangeDays {
		return fmt.Errorf("REPORT_MAX_RANGE_DAYS must be at least REPORT_DEFAULT_RANGE_DAYS (%d), got %d",
			c.Report.DefaultRangeDays, c.Report.MaxRangeDays)
	}
	if c.Report.FetchLimit < 1 || c.Report.FetchLimit > MaxFetchLimit {
		return fmt.Errorf("REPORT_FETCH_LIMIT must be between 1 and %d, got %d", MaxFetchLimit, c.Report.FetchLimit)
	}
	if c.Report.MaxRows < c.Report.FetchLimit {
		return fmt.Errorf("REPORT_MAX_ROWS must be at least REPORT_FETCH_LIMIT (%d), got %d",
			c.Report.FetchLimit, c.Report.MaxRows)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
