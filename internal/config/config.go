package config

import (
	"errors"
	"fmt"
	"strings"
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
	Database DatabaseConfig
	Cache    CacheConfig
	Upstream UpstreamConfig
	Sync     SyncConfig
	Intent   IntentConfig
	Catalog  CatalogConfig
	Docs     DocsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"300s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"*"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"grocerygenius-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
}

// DatabaseConfig selects and configures the deal store.
type DatabaseConfig struct {
	Type string `envconfig:"DB_TYPE" default:"sqlite"` // sqlite, postgres or mysql
	Path string `envconfig:"DB_PATH" default:"./data/grocerygenius.db"`
	// URL overrides the discrete settings below for postgres and mysql.
	URL      string `envconfig:"DATABASE_URL" default:""`
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"0"`
	Name     string `envconfig:"DB_NAME" default:"grocerygenius"`
	User     string `envconfig:"DB_USER" default:""`
	Password string `envconfig:"DB_PASS" default:""`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	Type       string        `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis
	TTL        time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	MaxEntries int           `envconfig:"CACHE_MAX_ENTRIES" default:"1000"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_PREFIX" default:"grocerygenius"`
}

// UpstreamConfig configures the flyer feed client.
type UpstreamConfig struct {
	BaseURL           string        `envconfig:"FLIPP_BASE_URL" default:"https://backflipp.wishabi.com/flipp"`
	Locale            string        `envconfig:"FLIPP_LOCALE" default:"en-us"`
	UserAgent         string        `envconfig:"FLIPP_USER_AGENT" default:""`
	Timeout           time.Duration `envconfig:"FLIPP_TIMEOUT" default:"15s"`
	RequestsPerSecond float64       `envconfig:"FLIPP_RPS" default:"5"`
	Burst             int           `envconfig:"FLIPP_BURST" default:"5"`
}

// SyncConfig configures ingestion runs and the trigger endpoint.
type SyncConfig struct {
	ZipCode    string `envconfig:"SCRAPER_ZIP_CODE" default:"20001"`
	CronSecret string `envconfig:"CRON_SECRET" default:""`
	ServiceKey string `envconfig:"SUPABASE_SERVICE_ROLE_KEY" default:""`

	Concurrency     int           `envconfig:"SYNC_CONCURRENCY" default:"4"`
	BatchSize       int           `envconfig:"SYNC_BATCH_SIZE" default:"100"`
	Timeout         time.Duration `envconfig:"SYNC_TIMEOUT" default:"5m"`
	LockTTL         time.Duration `envconfig:"SYNC_LOCK_TTL" default:"10m"`
	Interval        time.Duration `envconfig:"SYNC_INTERVAL" default:"0"` // 0 disables
	CleanupInterval time.Duration `envconfig:"CLEANUP_INTERVAL" default:"6h"`
}

// IntentConfig configures the query intent provider.
type IntentConfig struct {
	APIKey     string        `envconfig:"OPENAI_API_KEY" default:""`
	BaseURL    string        `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	Model      string        `envconfig:"OPENAI_MODEL" default:"gpt-3.5-turbo"`
	Timeout    time.Duration `envconfig:"OPENAI_TIMEOUT" default:"10s"`
	RatePerMin int           `envconfig:"INTENT_RATE_PER_MIN" default:"30"`
	RateBurst  int           `envconfig:"INTENT_RATE_BURST" default:"5"`
}

// CatalogConfig locates the store registry and taxonomy.
type CatalogConfig struct {
	Path       string `envconfig:"CATALOG_PATH" default:""` // empty uses the embedded catalog
	SeedStores bool   `envconfig:"CATALOG_SEED_STORES" default:"true"`
}

// DocsConfig configures the API reference page.
type DocsConfig struct {
	Enabled bool   `envconfig:"DOCS_ENABLED" default:"true"`
	SpecDir string `envconfig:"DOCS_SPEC_DIR" default:"./docs"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// PostgresDSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) PostgresDSN() string {
	if d.URL != "" {
		return d.URL
	}
	port := d.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, port, d.Name, d.SSLMode)
}

// MySQLDSN returns the MySQL data source name. Migrations need
// multiStatements and date columns need parseTime.
func (d *DatabaseConfig) MySQLDSN() string {
	if d.URL != "" {
		return d.URL
	}
	port := d.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
		d.User, d.Password, d.Host, port, d.Name)
}

// Backend returns the canonical database type: sqlite, postgres or mysql.
// Unknown types are returned lower-cased.
func (d *DatabaseConfig) Backend() string {
	switch t := strings.ToLower(strings.TrimSpace(d.Type)); t {
	case "", "sqlite", "sqlite3":
		return "sqlite"
	case "postgres", "postgresql", "pg":
		return "postgres"
	default:
		return t
	}
}

// DSN returns the connection string for the configured database type.
// For sqlite it is the file path.
func (d *DatabaseConfig) DSN() string {
	switch d.Backend() {
	case "postgres":
		return d.PostgresDSN()
	case "mysql":
		return d.MySQLDSN()
	default:
		return d.Path
	}
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Validate reports settings that make startup impossible.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Backend() {
	case "sqlite":
		if c.Database.Path == "" {
			errs = append(errs, errors.New("DB_PATH is required for sqlite"))
		}
	case "postgres", "mysql":
		if c.Database.URL == "" && (c.Database.User == "" || c.Database.Name == "") {
			errs = append(errs, fmt.Errorf("DATABASE_URL or DB_USER and DB_NAME are required for %s", c.Database.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DB_TYPE %q", c.Database.Type))
	}

	switch strings.ToLower(strings.TrimSpace(c.Cache.Type)) {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown CACHE_TYPE %q", c.Cache.Type))
	}

	if c.Sync.BatchSize <= 0 {
		errs = append(errs, errors.New("SYNC_BATCH_SIZE must be positive"))
	}
	if c.Sync.Concurrency <= 0 {
		errs = append(errs, errors.New("SYNC_CONCURRENCY must be positive"))
	}

	return errors.Join(errs...)
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Database.Type = cfg.Database.Backend()
	cfg.Cache.Type = strings.ToLower(strings.TrimSpace(cfg.Cache.Type))
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
