package erp

import (
	"errors"
	"time"
)

// Errors for gateway configuration
var (
	ErrConfigMissingBaseURL     = errors.New("erp: base URL is required")
	ErrConfigMissingCompanyCode = errors.New("erp: company code is required")
	ErrConfigMissingUserID      = errors.New("erp: user ID is required")
	ErrConfigMissingAPIKey      = errors.New("erp: API key is required")
)

// Config holds connection settings and protective thresholds for the
// remote ERP gateway. The thresholds are deliberately configuration,
// not constants: they differ between remote installations and must be
// tunable well below the remote's own lockout limits.
type Config struct {
	// BaseURL is the login endpoint host
	BaseURL string
	// ZoneURLTemplate is the host for authenticated calls, with a
	// "{zone}" placeholder substituted from the login response
	ZoneURLTemplate string
	// CompanyCode is the remote company identifier
	CompanyCode string
	// UserID is the integration account user
	UserID string
	// APIKey is the certificate key sent at login and, as a secondary
	// secret, in every session-bearing request body
	APIKey string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int

	// BreakerThreshold is the consecutive-failure count that opens the circuit
	BreakerThreshold int
	// BreakerTimeout is how long the circuit stays open before a half-open trial
	BreakerTimeout time.Duration

	// BackoffBase is the first retry delay for a failing endpoint
	BackoffBase time.Duration
	// BackoffMax caps the exponential per-endpoint delay
	BackoffMax time.Duration

	// LockoutMaxErrors is the consecutive network/critical failure count
	// that trips the local lockout. Must stay well below the remote's
	// own account-lockout threshold (~30 per hour).
	LockoutMaxErrors int
	// LockoutWindow is the rolling window for counting those failures
	LockoutWindow time.Duration
	// LockoutDuration is how long the local lockout holds
	LockoutDuration time.Duration

	// LoginMinInterval is the minimum time between login attempts
	LoginMinInterval time.Duration
	// LoginRateLimitDelay is the fixed backoff applied after the remote
	// rate-limits a login. Login throttling is stricter than regular
	// endpoint throttling, so this replaces the doubled delay.
	LoginRateLimitDelay time.Duration

	// SessionLifetime is the remote's stated session lifetime
	SessionLifetime time.Duration
	// SessionSafetyMargin is subtracted from the stated lifetime so the
	// session is refreshed before the remote expires it
	SessionSafetyMargin time.Duration
}

// DefaultConfig returns a configuration with production defaults.
// Credentials and URLs must still be supplied.
func DefaultConfig() *Config {
	return &Config{
		TimeoutSeconds:      30,
		BreakerThreshold:    3,
		BreakerTimeout:      30 * time.Second,
		BackoffBase:         time.Second,
		BackoffMax:          60 * time.Second,
		LockoutMaxErrors:    8,
		LockoutWindow:       time.Hour,
		LockoutDuration:     45 * time.Minute,
		LoginMinInterval:    30 * time.Second,
		LoginRateLimitDelay: 5 * time.Minute,
		SessionLifetime:     time.Hour,
		SessionSafetyMargin: 5 * time.Minute,
	}
}

// Validate validates the configuration and fills unset thresholds with defaults
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrConfigMissingBaseURL
	}
	if c.CompanyCode == "" {
		return ErrConfigMissingCompanyCode
	}
	if c.UserID == "" {
		return ErrConfigMissingUserID
	}
	if c.APIKey == "" {
		return ErrConfigMissingAPIKey
	}
	if c.ZoneURLTemplate == "" {
		c.ZoneURLTemplate = c.BaseURL
	}

	defaults := DefaultConfig()
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaults.TimeoutSeconds
	}
	if c.BreakerThreshold <= 0 {
		c.BreakerThreshold = defaults.BreakerThreshold
	}
	if c.BreakerTimeout <= 0 {
		c.BreakerTimeout = defaults.BreakerTimeout
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = defaults.BackoffBase
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = defaults.BackoffMax
	}
	if c.LockoutMaxErrors <= 0 {
		c.LockoutMaxErrors = defaults.LockoutMaxErrors
	}
	if c.LockoutWindow <= 0 {
		c.LockoutWindow = defaults.LockoutWindow
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = defaults.LockoutDuration
	}
	if c.LoginMinInterval <= 0 {
		c.LoginMinInterval = defaults.LoginMinInterval
	}
	if c.LoginRateLimitDelay <= 0 {
		c.LoginRateLimitDelay = defaults.LoginRateLimitDelay
	}
	if c.SessionLifetime <= 0 {
		c.SessionLifetime = defaults.SessionLifetime
	}
	if c.SessionSafetyMargin <= 0 {
		c.SessionSafetyMargin = defaults.SessionSafetyMargin
	}
	return nil
}
