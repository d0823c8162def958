package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	CacheRedis  = "redis"
	CacheMemory = "memory"
)

type Config struct {
	Port            string   `mapstructure:"PORT"`
	Env             string   `mapstructure:"ENV"`
	Store           string   `mapstructure:"STORE"`
	DatabaseURL     string   `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32    `mapstructure:"DB_MIN_CONNS"`
	CacheBackend    string   `mapstructure:"CACHE_BACKEND"`
	RedisURL        string   `mapstructure:"REDIS_URL"`
	CacheTTLSeconds int      `mapstructure:"CACHE_TTL_SECONDS"`
	CacheCapacity   int      `mapstructure:"CACHE_CAPACITY"`
	ReadToken       string   `mapstructure:"FHIR_READ_TOKEN"`
	WriteToken      string   `mapstructure:"FHIR_WRITE_TOKEN"`
	CORSOrigins     []string `mapstructure:"CORS_ORIGINS"`
	MaxBodySize     string   `mapstructure:"MAX_BODY_SIZE"`
	RequestTimeout  int      `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORE", StorePostgres)
	v.SetDefault("DB_MAX_CONNS", 16)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CACHE_BACKEND", CacheRedis)
	v.SetDefault("CACHE_TTL_SECONDS", 300)
	v.SetDefault("CACHE_CAPACITY", 10000)
	v.SetDefault("FHIR_READ_TOKEN", "read")
	v.SetDefault("FHIR_WRITE_TOKEN", "write")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("MAX_BODY_SIZE", "1M")
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 30)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "STORE", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"CACHE_BACKEND", "REDIS_URL", "CACHE_TTL_SECONDS", "CACHE_CAPACITY",
		"FHIR_READ_TOKEN", "FHIR_WRITE_TOKEN", "CORS_ORIGINS",
		"MAX_BODY_SIZE", "REQUEST_TIMEOUT_SECONDS",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.IsDev() && cfg.ReadToken == "read" && cfg.WriteToken == "write" {
		log.Println("WARNING: FHIR_READ_TOKEN and FHIR_WRITE_TOKEN use their built-in defaults.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// CacheTTL is the fixed lifetime of a cached patient document.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// RequestTimeoutDuration bounds the handling of a single request.
func (c *Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// Validate checks the backend selections and the settings each of them
// requires.
func (c *Config) Validate() error {
	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE is %q", StorePostgres)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store)
	}

	switch c.CacheBackend {
	case CacheRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when CACHE_BACKEND is %q", CacheRedis)
		}
	case CacheMemory:
		if c.CacheCapacity <= 0 {
			return fmt.Errorf("CACHE_CAPACITY must be positive, got %d", c.CacheCapacity)
		}
	default:
		return fmt.Errorf("CACHE_BACKEND must be %q or %q, got %q", CacheRedis, CacheMemory, c.CacheBackend)
	}

	if c.CacheTTLSeconds <= 0 {
		return fmt.Errorf("CACHE_TTL_SECONDS must be positive, got %d", c.CacheTTLSeconds)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be positive, got %d", c.RequestTimeout)
	}
	if c.ReadToken == "" || c.WriteToken == "" {
		return fmt.Errorf("FHIR_READ_TOKEN and FHIR_WRITE_TOKEN must not be empty")
	}
	return nil
}
