package configs

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Cache    CacheConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Ops      OpsConfig
	Log      LogConfig
}

// CacheConfig carries the expiry policy shared by all specialized caches.
// OfflineTTL must be at least OnlineTTL: offline mode tolerates staler data
// because a refetch is not possible.
type CacheConfig struct {
	OnlineTTL     time.Duration
	OfflineTTL    time.Duration
	SweepInterval time.Duration // 0 disables the periodic sweep
}

// StorageConfig selects the durable tier backing the caches.
// Backend is one of: memory, redis, postgres, sqlite.
type StorageConfig struct {
	Backend        string
	BreakerEnabled bool
	// Circuit breaker tuning for the durable tier
	BreakerMinRequests      int
	BreakerFailureThreshold float64
	BreakerTimeout          time.Duration
}

type RedisConfig struct {
	Host      string
	Port      string
	Password  string
	DB        int
	KeyPrefix string
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Driver   string // postgres or sqlite
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	Path     string // sqlite database file
	DSN      string
	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// OpsConfig configures the operational HTTP surface (health and metrics only;
// the cache itself has no HTTP API).
type OpsConfig struct {
	Enabled      bool
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Cache: CacheConfig{
			OnlineTTL:     getDurationEnv("CACHE_ONLINE_TTL", 5*time.Minute),
			OfflineTTL:    getDurationEnv("CACHE_OFFLINE_TTL", 24*time.Hour),
			SweepInterval: getDurationEnv("CACHE_SWEEP_INTERVAL", 5*time.Minute),
		},
		Storage: StorageConfig{
			Backend:                 getEnv("STORAGE_BACKEND", "sqlite"),
			BreakerEnabled:          getBoolEnv("STORAGE_BREAKER_ENABLED", true),
			BreakerMinRequests:      getIntEnv("STORAGE_BREAKER_MIN_REQUESTS", 5),
			BreakerFailureThreshold: getFloatEnv("STORAGE_BREAKER_FAILURE_THRESHOLD", 0.8),
			BreakerTimeout:          getDurationEnv("STORAGE_BREAKER_TIMEOUT", 30*time.Second),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			KeyPrefix:    getEnv("REDIS_KEY_PREFIX", "meridian"),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "meridian_cache"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			Path:            getEnv("DB_PATH", "meridian-cache.db"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Ops: OpsConfig{
			Enabled:      getBoolEnv("OPS_ENABLED", true),
			Host:         getEnv("OPS_HOST", "127.0.0.1"),
			Port:         getEnv("OPS_PORT", "9090"),
			ReadTimeout:  getDurationEnv("OPS_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("OPS_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDurationEnv("OPS_IDLE_TIMEOUT", 60*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if cfg.Cache.OfflineTTL < cfg.Cache.OnlineTTL {
		return nil, fmt.Errorf("CACHE_OFFLINE_TTL (%s) must be at least CACHE_ONLINE_TTL (%s)",
			cfg.Cache.OfflineTTL, cfg.Cache.OnlineTTL)
	}

	// Build database DSN
	switch cfg.Database.Driver {
	case "sqlite":
		cfg.Database.DSN = cfg.Database.Path
	default:
		cfg.Database.DSN = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.User,
			cfg.Database.Password,
			cfg.Database.DBName,
			cfg.Database.SSLMode,
		)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
