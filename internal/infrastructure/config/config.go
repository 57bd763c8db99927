package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Log       LogConfig
	HTTP      HTTPConfig
	ERP       ERPConfig
	Catalog   CatalogConfig
	PriceBook PriceBookConfig
	Reconcile ReconcileConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds the SQLite database settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration
	TrustedProxies  []string
	CORSOrigins     []string
	MaxBodyBytes    int64
	RateLimitRPS    float64
	RateLimitBurst  int
}

// ERPConfig holds the remote ERP connection and resilience settings.
// Zero values for the tuning knobs mean "use the built-in default"; the
// gateway fills them in on validation.
type ERPConfig struct {
	BaseURL         string
	ZoneURLTemplate string
	CompanyCode     string
	UserID          string
	APIKey          string
	TimeoutSeconds  int

	BreakerThreshold int
	BreakerTimeout   time.Duration
	BackoffBase      time.Duration
	BackoffMax       time.Duration

	LockoutMaxErrors int
	LockoutWindow    time.Duration
	LockoutDuration  time.Duration

	LoginMinInterval    time.Duration
	LoginRateLimitDelay time.Duration
	SessionLifetime     time.Duration
	SessionSafetyMargin time.Duration
}

// CatalogConfig holds catalog snapshot settings
type CatalogConfig struct {
	CacheTTL time.Duration
}

// PriceBookConfig holds the price book spreadsheet location
type PriceBookConfig struct {
	Path  string
	Sheet string
}

// ReconcileConfig holds background reconciliation settings
type ReconcileConfig struct {
	Enabled         bool
	Interval        time.Duration
	InterOrderDelay time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with STOREFRONT_ prefix (e.g., STOREFRONT_ERP_APIKEY)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Path:            v.GetString("database.path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:  v.GetInt("http.max_header_bytes"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			TrustedProxies:  v.GetStringSlice("http.trusted_proxies"),
			CORSOrigins:     v.GetStringSlice("http.cors_origins"),
			MaxBodyBytes:    v.GetInt64("http.max_body_bytes"),
			RateLimitRPS:    v.GetFloat64("http.rate_limit_rps"),
			RateLimitBurst:  v.GetInt("http.rate_limit_burst"),
		},
		ERP: ERPConfig{
			BaseURL:             v.GetString("erp.base_url"),
			ZoneURLTemplate:     v.GetString("erp.zone_url_template"),
			CompanyCode:         v.GetString("erp.company_code"),
			UserID:              v.GetString("erp.user_id"),
			APIKey:              v.GetString("erp.api_key"),
			TimeoutSeconds:      v.GetInt("erp.timeout_seconds"),
			BreakerThreshold:    v.GetInt("erp.breaker_threshold"),
			BreakerTimeout:      v.GetDuration("erp.breaker_timeout"),
			BackoffBase:         v.GetDuration("erp.backoff_base"),
			BackoffMax:          v.GetDuration("erp.backoff_max"),
			LockoutMaxErrors:    v.GetInt("erp.lockout_max_errors"),
			LockoutWindow:       v.GetDuration("erp.lockout_window"),
			LockoutDuration:     v.GetDuration("erp.lockout_duration"),
			LoginMinInterval:    v.GetDuration("erp.login_min_interval"),
			LoginRateLimitDelay: v.GetDuration("erp.login_rate_limit_delay"),
			SessionLifetime:     v.GetDuration("erp.session_lifetime"),
			SessionSafetyMargin: v.GetDuration("erp.session_safety_margin"),
		},
		Catalog: CatalogConfig{
			CacheTTL: v.GetDuration("catalog.cache_ttl"),
		},
		PriceBook: PriceBookConfig{
			Path:  v.GetString("pricebook.path"),
			Sheet: v.GetString("pricebook.sheet"),
		},
		Reconcile: ReconcileConfig{
			Enabled:         v.GetBool("reconcile.enabled"),
			Interval:        v.GetDuration("reconcile.interval"),
			InterOrderDelay: v.GetDuration("reconcile.inter_order_delay"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "storefront-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "storefront.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 1
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 1
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.HTTP.MaxBodyBytes == 0 {
		cfg.HTTP.MaxBodyBytes = 1 << 20 // 1MB
	}
	// Rate limiting is opt-in; zero RPS leaves it off
	if cfg.HTTP.RateLimitRPS > 0 && cfg.HTTP.RateLimitBurst == 0 {
		cfg.HTTP.RateLimitBurst = 20
	}
	if cfg.Catalog.CacheTTL == 0 {
		cfg.Catalog.CacheTTL = time.Hour
	}
	if cfg.PriceBook.Path == "" {
		cfg.PriceBook.Path = "pricebook.xlsx"
	}
	if cfg.Reconcile.Interval == 0 {
		cfg.Reconcile.Interval = 10 * time.Minute
	}
	if cfg.Reconcile.InterOrderDelay == 0 {
		cfg.Reconcile.InterOrderDelay = 2 * time.Second
	}
	// ERP tuning defaults live next to the gateway, which validates and
	// fills them; only the transport timeout is defaulted here.
	if cfg.ERP.TimeoutSeconds == 0 {
		cfg.ERP.TimeoutSeconds = 30
	}
}

// DSN returns the SQLite connection string. Foreign keys are enforced
// and a busy timeout keeps concurrent writers from failing immediately.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_fk=1", d.Path)
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}

	if c.App.Env == "production" {
		if c.ERP.BaseURL == "" {
			return fmt.Errorf("erp.base_url is required in production")
		}
		if c.ERP.APIKey == "" {
			return fmt.Errorf("erp.api_key is required in production")
		}
		if c.ERP.CompanyCode == "" || c.ERP.UserID == "" {
			return fmt.Errorf("erp.company_code and erp.user_id are required in production")
		}
	}

	if c.Reconcile.Interval < time.Minute {
		return fmt.Errorf("reconcile.interval must be at least one minute, got %s", c.Reconcile.Interval)
	}

	return nil
}
