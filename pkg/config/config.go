package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Environment string
	LogLevel    string
	Server      ServerConfig
	Store       StoreConfig
	Database    DatabaseConfig
	Mongo       MongoConfig
	Redis       RedisConfig
	Cache       CacheConfig
	Query       QueryConfig
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	Seed        SeedConfig
	OTEL        OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// StoreConfig selects the catalog backend: "mongo", "postgres" or "memory".
type StoreConfig struct {
	Driver string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// MongoConfig holds MongoDB configuration
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig selects and tunes the cache backend.
// Driver is "redis", "memory" or "none".
type CacheConfig struct {
	Driver            string
	MemoryMaxEntries  int
	BreakerFailures   int
	BreakerOpenPeriod time.Duration
	WarmInterval      time.Duration
	WarmPages         int
}

// QueryConfig holds the paging defaults and cache policy knobs of the query layer
type QueryConfig struct {
	DefaultPageSize       int
	MaxPageSize           int
	MaxCachedPage         int
	MaxCachedFilteredPage int
	UnfilteredListTTL     time.Duration
	FilteredListTTL       time.Duration
	ItemTTL               time.Duration
}

// AuthConfig holds JWT configuration.
// Clients maps client ids to secrets accepted by the token endpoint.
type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
	TokenTTL time.Duration
	Clients  map[string]string
}

// RateLimitConfig holds per-client token bucket settings
type RateLimitConfig struct {
	Enabled        bool
	RequestsPerSec float64
	Burst          int
	TrackedClients int

	// TrustedProxies lists proxy addresses or CIDRs whose X-Forwarded-For
	// header is believed. Requests from anywhere else are keyed by peer address.
	TrustedProxies []string
}

// SeedConfig holds catalog seeding settings
type SeedConfig struct {
	BatchSize int
	File      string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// DefaultQueryConfig returns the query layer defaults used when nothing is configured.
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		DefaultPageSize:       20,
		MaxPageSize:           100,
		MaxCachedPage:         3,
		MaxCachedFilteredPage: 2,
		UnfilteredListTTL:     10 * time.Minute,
		FilteredListTTL:       2 * time.Minute,
		ItemTTL:               5 * time.Minute,
	}
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	queryDefaults := DefaultQueryConfig()

	cfg := &Config{
		Environment: getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", ""),
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getEnv("STORE_DRIVER", "mongo")),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "facility_finder"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Mongo: MongoConfig{
			URI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:   getEnv("MONGO_DATABASE", "facility_finder"),
			Collection: getEnv("MONGO_COLLECTION", "facilities"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Driver:            strings.ToLower(getEnv("CACHE_DRIVER", "redis")),
			MemoryMaxEntries:  getEnvAsInt("CACHE_MEMORY_MAX_ENTRIES", 10000),
			BreakerFailures:   getEnvAsInt("CACHE_BREAKER_FAILURES", 5),
			BreakerOpenPeriod: getEnvAsDuration("CACHE_BREAKER_OPEN_PERIOD", 30*time.Second),
			WarmInterval:      getEnvAsDuration("CACHE_WARM_INTERVAL", 0),
			WarmPages:         getEnvAsInt("CACHE_WARM_PAGES", 3),
		},
		Query: QueryConfig{
			DefaultPageSize:       getEnvAsInt("DEFAULT_PAGE_SIZE", queryDefaults.DefaultPageSize),
			MaxPageSize:           getEnvAsInt("MAX_PAGE_SIZE", queryDefaults.MaxPageSize),
			MaxCachedPage:         getEnvAsInt("CACHE_MAX_PAGE_UNFILTERED", queryDefaults.MaxCachedPage),
			MaxCachedFilteredPage: getEnvAsInt("CACHE_MAX_PAGE_FILTERED", queryDefaults.MaxCachedFilteredPage),
			UnfilteredListTTL:     getEnvAsDuration("CACHE_TTL_LIST", queryDefaults.UnfilteredListTTL),
			FilteredListTTL:       getEnvAsDuration("CACHE_TTL_FILTERED", queryDefaults.FilteredListTTL),
			ItemTTL:               getEnvAsDuration("CACHE_TTL_ITEM", queryDefaults.ItemTTL),
		},
		Auth: AuthConfig{
			Secret:   getEnv("JWT_SECRET", ""),
			Issuer:   getEnv("JWT_ISSUER", "facility-finder"),
			Audience: getEnv("JWT_AUDIENCE", "facility-finder-api"),
			TokenTTL: getEnvAsDuration("JWT_TTL", time.Hour),
			Clients:  getEnvAsMap("AUTH_CLIENTS"),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getEnvAsBool("RATE_LIMIT_ENABLED", true),
			RequestsPerSec: getEnvAsFloat("RATE_LIMIT_RPS", 10),
			Burst:          getEnvAsInt("RATE_LIMIT_BURST", 20),
			TrackedClients: getEnvAsInt("RATE_LIMIT_TRACKED_CLIENTS", 10000),
			TrustedProxies: getEnvAsList("RATE_LIMIT_TRUSTED_PROXIES", nil),
		},
		Seed: SeedConfig{
			BatchSize: getEnvAsInt("SEED_BATCH_SIZE", 100),
			File:      getEnv("SEED_FILE", ""),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "facility-finder"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the query layer cannot honor
func (c *Config) Validate() error {
	if err := c.Query.Validate(); err != nil {
		return err
	}

	switch c.Store.Driver {
	case "mongo", "postgres", "memory":
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}

	switch c.Cache.Driver {
	case "redis", "memory", "none":
	default:
		return fmt.Errorf("unsupported CACHE_DRIVER %q", c.Cache.Driver)
	}

	if c.Seed.BatchSize < 1 {
		return fmt.Errorf("SEED_BATCH_SIZE must be positive, got %d", c.Seed.BatchSize)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSec <= 0 || c.RateLimit.Burst < 1) {
		return fmt.Errorf("rate limit requires positive RATE_LIMIT_RPS and RATE_LIMIT_BURST")
	}
	return nil
}

// Validate checks the paging and cache policy settings
func (q QueryConfig) Validate() error {
	if q.MaxPageSize < 1 {
		return fmt.Errorf("MAX_PAGE_SIZE must be positive, got %d", q.MaxPageSize)
	}
	if q.DefaultPageSize < 1 || q.DefaultPageSize > q.MaxPageSize {
		return fmt.Errorf("DEFAULT_PAGE_SIZE must be within [1, %d], got %d", q.MaxPageSize, q.DefaultPageSize)
	}
	if q.MaxCachedPage < 0 || q.MaxCachedFilteredPage < 0 {
		return fmt.Errorf("cacheable page depth cannot be negative")
	}
	if q.UnfilteredListTTL <= 0 || q.FilteredListTTL <= 0 || q.ItemTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Addr returns the HTTP listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("90s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// getEnvAsMap parses "id1:secret1,id2:secret2".
func getEnvAsMap(key string) map[string]string {
	result := make(map[string]string)
	for _, pair := range getEnvAsList(key, nil) {
		id, secret, ok := strings.Cut(pair, ":")
		if !ok || id == "" || secret == "" {
			continue
		}
		result[strings.TrimSpace(id)] = strings.TrimSpace(secret)
	}
	return result
}
