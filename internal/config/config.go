package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Catalog sources.
const (
	SourceRemote   = "remote"
	SourcePostgres = "postgres"
)

type Config struct {
	Server    ServerConfig
	Catalog   CatalogConfig
	Session   SessionConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type CatalogConfig struct {
	Source         string
	APIURL         string
	APITimeout     time.Duration
	DefaultLocale  string
	PriceCeiling   float64
	AutoApplySort  bool
	FacetCacheTTL  time.Duration
	MigrationsPath string
}

type SessionConfig struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled reports whether a Redis host is configured. Setting REDIS_HOST to
// an empty value disables the facet cache and rate limiting.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("CATALOG_SOURCE", SourceRemote)
	v.SetDefault("CATALOG_API_URL", "http://localhost:8081")
	v.SetDefault("CATALOG_API_TIMEOUT_SECONDS", 10)
	v.SetDefault("CATALOG_DEFAULT_LOCALE", "en")
	v.SetDefault("CATALOG_PRICE_CEILING", 1000000)
	v.SetDefault("CATALOG_AUTO_APPLY_SORT", true)
	v.SetDefault("CATALOG_MIGRATIONS_PATH", "migrations")
	v.SetDefault("FACET_CACHE_TTL_MINUTES", 10)
	v.SetDefault("SESSION_IDLE_MINUTES", 30)
	v.SetDefault("SESSION_SWEEP_SECONDS", 60)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RATE_LIMIT_REQUESTS", 120)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
}

// Load reads configuration from the environment. Values in a .env file in
// the working directory are loaded first and never override variables that
// are already set.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not read .env file: %v", err)
	}

	v := viper.New()
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()
	setDefaults(v)

	return fromViper(v)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port: v.GetString("SERVER_PORT"),
			Env:  v.GetString("SERVER_ENV"),
		},
		Catalog: CatalogConfig{
			Source:         strings.ToLower(v.GetString("CATALOG_SOURCE")),
			APIURL:         v.GetString("CATALOG_API_URL"),
			APITimeout:     time.Duration(v.GetInt("CATALOG_API_TIMEOUT_SECONDS")) * time.Second,
			DefaultLocale:  v.GetString("CATALOG_DEFAULT_LOCALE"),
			PriceCeiling:   v.GetFloat64("CATALOG_PRICE_CEILING"),
			AutoApplySort:  v.GetBool("CATALOG_AUTO_APPLY_SORT"),
			FacetCacheTTL:  time.Duration(v.GetInt("FACET_CACHE_TTL_MINUTES")) * time.Minute,
			MigrationsPath: v.GetString("CATALOG_MIGRATIONS_PATH"),
		},
		Session: SessionConfig{
			IdleTimeout:   time.Duration(v.GetInt("SESSION_IDLE_MINUTES")) * time.Minute,
			SweepInterval: time.Duration(v.GetInt("SESSION_SWEEP_SECONDS")) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Database: v.GetString("DB_DATABASE"),
			Schema:   v.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   time.Duration(v.GetInt("RATE_LIMIT_WINDOW_SECONDS")) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
