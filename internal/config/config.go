package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server   ServerConfig
	App      AppConfig
	Upstream UpstreamConfig
	Cache    CacheConfig
	Articles ArticlesConfig
	CORS     CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"7000"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string   `envconfig:"APP_NAME" default:"articles-cache-api"`
	Environment string   `envconfig:"APP_ENV" default:"development"`
	Version     string   `envconfig:"APP_VERSION" default:"1.0.0"`
	LogLevel    string   `envconfig:"LOG_LEVEL" default:"info"`
	AdminKeys   []string `envconfig:"ADMIN_API_KEYS"`
}

// UpstreamConfig holds settings for the remote content API.
type UpstreamConfig struct {
	BaseURL         string        `envconfig:"BLOGS_API_URL"`
	Token           string        `envconfig:"BLOG_API_TOKEN"`
	Timeout         time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"30s"`
	MaxRetries      int           `envconfig:"UPSTREAM_MAX_RETRIES" default:"3"`
	PoolConnections int           `envconfig:"HTTP_POOL_CONNECTIONS" default:"10"`
	PoolMaxSize     int           `envconfig:"HTTP_POOL_MAXSIZE" default:"20"`
}

// CacheConfig holds cache store settings.
type CacheConfig struct {
	Type      string        `envconfig:"CACHE_TYPE" default:"redis"` // redis, memory, sqlite, ristretto or bigcache
	TTL       time.Duration `envconfig:"CACHE_TTL" default:"30m"`
	KeyPrefix string        `envconfig:"CACHE_KEY_PREFIX" default:""`
	Codec     string        `envconfig:"CACHE_CODEC" default:"json"` // json, msgpack or cbor

	RedisHost     string `envconfig:"REDIS_HOST" default:"127.0.0.1"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPoolSize int    `envconfig:"REDIS_POOL_SIZE" default:"20"`

	SQLitePath      string        `envconfig:"CACHE_SQLITE_PATH" default:"./data/cache.db"`
	CleanupInterval time.Duration `envconfig:"CACHE_CLEANUP_INTERVAL" default:"10m"`

	// MaxCostMB bounds the in-process stores (ristretto, bigcache).
	MaxCostMB int `envconfig:"CACHE_MAX_COST_MB" default:"64"`
}

// ArticlesConfig holds the fetch engine tunables.
type ArticlesConfig struct {
	PageSize       int  `envconfig:"ARTICLES_PAGE_SIZE" default:"15"`
	MaxPageSize    int  `envconfig:"ARTICLES_MAX_PAGE_SIZE" default:"100"`
	MaxConcurrency int  `envconfig:"ARTICLES_MAX_CONCURRENCY" default:"5"`
	MaxPages       int  `envconfig:"ARTICLES_MAX_PAGES" default:"1000"`
	SingleFlight   bool `envconfig:"ARTICLES_SINGLEFLIGHT" default:"false"`
}

// CORSConfig holds cross-origin settings.
type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173,https://nexuscale.ai,https://www.nexuscale.ai,https://articles.nexuscale.ai"`
	MaxAge         int      `envconfig:"CORS_MAX_AGE" default:"300"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	var errs []error

	if c.Upstream.BaseURL == "" {
		errs = append(errs, errors.New("BLOGS_API_URL is required"))
	} else if u, err := url.Parse(c.Upstream.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("BLOGS_API_URL is not an absolute URL: %q", c.Upstream.BaseURL))
	}
	if c.Upstream.Timeout <= 0 {
		errs = append(errs, errors.New("UPSTREAM_TIMEOUT must be positive"))
	}
	if c.Upstream.MaxRetries < 0 {
		errs = append(errs, errors.New("UPSTREAM_MAX_RETRIES must not be negative"))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("CACHE_TTL must be positive"))
	}
	if c.Articles.PageSize <= 0 {
		errs = append(errs, errors.New("ARTICLES_PAGE_SIZE must be positive"))
	}
	if c.Articles.MaxPageSize < c.Articles.PageSize {
		errs = append(errs, errors.New("ARTICLES_MAX_PAGE_SIZE must be at least ARTICLES_PAGE_SIZE"))
	}
	if c.Articles.MaxConcurrency <= 0 {
		errs = append(errs, errors.New("ARTICLES_MAX_CONCURRENCY must be positive"))
	}
	if c.Articles.MaxPages <= 0 {
		errs = append(errs, errors.New("ARTICLES_MAX_PAGES must be positive"))
	}

	return errors.Join(errs...)
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
