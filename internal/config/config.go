// Package config provides configuration management for Banquet.
//
// Configuration is loaded from:
// 1. config.yaml file (optional)
// 2. Environment variables (standard names like SERVER_PORT, AUTH_MODE)
// 3. Default values
//
// A handful of flat legacy names (AUTH_ENABLED, API_KEY, ALLOWED_ORIGINS,
// TENANT_HEADER_ENABLED, ENV, OE_DEBUG) are bound explicitly so existing
// deployments keep working.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure.
type Config struct {
	Env       string          `mapstructure:"env"`
	Debug     bool            `mapstructure:"debug"`
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Tenant    TenantConfig    `mapstructure:"tenant"`
	Store     StoreConfig     `mapstructure:"store"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Log       LogConfig       `mapstructure:"log"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	Offer     OfferConfig     `mapstructure:"offer"`
	SiteVisit SiteVisitConfig `mapstructure:"sitevisit"`
	Dates     DatesConfig     `mapstructure:"dates"`
	Worker    WorkerConfig    `mapstructure:"worker"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// AuthConfig contains API authentication settings.
// Mode selects the scheme: api_key (X-Api-Key header), bearer
// (Authorization: Bearer <key>), or jwt (HS256 signed manager tokens).
// An unrecognized mode fails requests with 500 rather than failing boot,
// so the misconfiguration surfaces on the first call instead of a crash loop.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Mode    string `mapstructure:"mode"`
	APIKey  string `mapstructure:"api_key"`
}

// TenantConfig controls per-team state routing.
type TenantConfig struct {
	HeaderEnabled bool   `mapstructure:"header_enabled"`
	DefaultTeamID string `mapstructure:"default_team_id"`
	DefaultManagerID string `mapstructure:"default_manager_id"`
}

// StoreConfig contains JSON state store settings.
type StoreConfig struct {
	Dir               string        `mapstructure:"dir"`
	LockTimeout       time.Duration `mapstructure:"lock_timeout"`
	LockRetryInterval time.Duration `mapstructure:"lock_retry_interval"`
	StaleLockAge      time.Duration `mapstructure:"stale_lock_age"`
}

// CatalogConfig locates the read-only room/product catalogs.
type CatalogConfig struct {
	Dir string `mapstructure:"dir"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// WorkflowConfig carries the tenant-tunable workflow thresholds.
type WorkflowConfig struct {
	// NonsenseConfidence is the floor below which a message with no
	// workflow signals is treated as nonsense.
	NonsenseConfidence float64 `mapstructure:"nonsense_confidence"`
	// IntakeConfidence gates event creation for brand-new inquiries.
	IntakeConfidence float64 `mapstructure:"intake_confidence"`
	// AcceptanceConfidence is the floor for acceptance-pattern short-circuit.
	AcceptanceConfidence float64 `mapstructure:"acceptance_confidence"`
	// MaxCounterRounds is how many counter-offers a client may send
	// before the thread escalates to manual review.
	MaxCounterRounds int `mapstructure:"max_counter_rounds"`
	// MaxDateAttempts bounds candidate-date proposal rounds before HIL.
	MaxDateAttempts int `mapstructure:"max_date_attempts"`
	// MaxStepIterations bounds the dispatcher loop within one turn.
	MaxStepIterations int `mapstructure:"max_step_iterations"`
	// TimePromptRounds is how often step 2 asks for a start time before
	// falling back to the default window.
	TimePromptRounds   int    `mapstructure:"time_prompt_rounds"`
	DefaultWindowStart string `mapstructure:"default_window_start"`
	DefaultWindowEnd   string `mapstructure:"default_window_end"`
	// RevisionLexicon is the tenant-configurable change-signal word list.
	RevisionLexicon []string `mapstructure:"revision_lexicon"`
	// ProductAutofillMin is the catalog match score above which products
	// are autofilled without an explicit pick.
	ProductAutofillMin float64 `mapstructure:"product_autofill_min"`
}

// OfferConfig controls offer composition.
type OfferConfig struct {
	Currency       string  `mapstructure:"currency"`
	DepositRate    float64 `mapstructure:"deposit_rate"`
	DepositDueDays int     `mapstructure:"deposit_due_days"`
	OptionHoldDays int     `mapstructure:"option_hold_days"`
}

// SiteVisitConfig carries the manager-configurable visit slots.
type SiteVisitConfig struct {
	Weekdays []string `mapstructure:"weekdays"`
	Hours    []int    `mapstructure:"hours"`
}

// DatesConfig controls the candidate date engine horizon.
type DatesConfig struct {
	HorizonMinDays   int    `mapstructure:"horizon_min_days"`
	HorizonMaxDays   int    `mapstructure:"horizon_max_days"`
	DefaultSlotStart string `mapstructure:"default_slot_start"`
	DefaultSlotEnd   string `mapstructure:"default_slot_end"`
}

// WorkerConfig contains worker pool settings.
type WorkerConfig struct {
	GeneralPoolSize  int `mapstructure:"general_pool_size"`
	ExternalPoolSize int `mapstructure:"external_pool_size"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/banquet")

	// Environment variable override.
	// No prefix: uses standard names like SERVER_PORT, LOG_LEVEL.
	// Maps nested config: store.lock_timeout → STORE_LOCK_TIMEOUT.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Flat legacy names recognized by the original deployment.
	bindLegacyEnv(v)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file is optional, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks for critical configuration errors.
// An unknown auth mode is deliberately NOT a boot failure (see AuthConfig).
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth.enabled is true")
	}
	if c.Store.LockTimeout <= 0 {
		return fmt.Errorf("store.lock_timeout must be positive")
	}
	if c.Workflow.MaxStepIterations < 1 {
		return fmt.Errorf("workflow.max_step_iterations must be at least 1")
	}
	if c.Workflow.NonsenseConfidence < 0 || c.Workflow.NonsenseConfidence > 1 {
		return fmt.Errorf("workflow.nonsense_confidence must be in [0,1]")
	}
	if c.Offer.DepositRate < 0 || c.Offer.DepositRate > 1 {
		return fmt.Errorf("offer.deposit_rate must be in [0,1]")
	}
	return nil
}

// IsDev reports whether the process runs in a development environment.
func (c *Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "development"
}

func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("env", "ENV")
	_ = v.BindEnv("debug", "OE_DEBUG", "DEBUG")
	_ = v.BindEnv("auth.enabled", "AUTH_ENABLED", "AUTH_ENABLED")
	_ = v.BindEnv("auth.mode", "AUTH_MODE")
	_ = v.BindEnv("auth.api_key", "API_KEY", "AUTH_API_KEY")
	_ = v.BindEnv("tenant.header_enabled", "TENANT_HEADER_ENABLED")
	_ = v.BindEnv("server.allowed_origins", "ALLOWED_ORIGINS", "SERVER_ALLOWED_ORIGINS")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "production")
	v.SetDefault("debug", false)

	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{})

	// Auth
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.mode", "api_key")
	v.SetDefault("auth.api_key", "")

	// Tenant routing
	v.SetDefault("tenant.header_enabled", false)
	v.SetDefault("tenant.default_team_id", "")
	v.SetDefault("tenant.default_manager_id", "")

	// Store
	v.SetDefault("store.dir", ".")
	v.SetDefault("store.lock_timeout", "5s")
	v.SetDefault("store.lock_retry_interval", "50ms")
	v.SetDefault("store.stale_lock_age", "30s")

	// Catalog
	v.SetDefault("catalog.dir", "catalog")

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Workflow thresholds
	v.SetDefault("workflow.nonsense_confidence", 0.5)
	v.SetDefault("workflow.intake_confidence", 0.85)
	v.SetDefault("workflow.acceptance_confidence", 0.7)
	v.SetDefault("workflow.max_counter_rounds", 3)
	v.SetDefault("workflow.max_date_attempts", 3)
	v.SetDefault("workflow.max_step_iterations", 6)
	v.SetDefault("workflow.time_prompt_rounds", 2)
	v.SetDefault("workflow.default_window_start", "14:00")
	v.SetDefault("workflow.default_window_end", "18:00")
	v.SetDefault("workflow.revision_lexicon", []string{
		"actually", "switch", "change", "instead", "rather", "update",
		"make it", "move it", "move to", "reschedule", "postpone",
	})
	v.SetDefault("workflow.product_autofill_min", 0.8)

	// Offer
	v.SetDefault("offer.currency", "EUR")
	v.SetDefault("offer.deposit_rate", 0.3)
	v.SetDefault("offer.deposit_due_days", 14)
	v.SetDefault("offer.option_hold_days", 7)

	// Site visit slots
	v.SetDefault("sitevisit.weekdays", []string{"Mon", "Tue", "Wed", "Thu", "Fri"})
	v.SetDefault("sitevisit.hours", []int{10, 14, 16})

	// Candidate date horizon
	v.SetDefault("dates.horizon_min_days", 45)
	v.SetDefault("dates.horizon_max_days", 180)
	v.SetDefault("dates.default_slot_start", "18:00")
	v.SetDefault("dates.default_slot_end", "22:00")

	// Worker pools
	v.SetDefault("worker.general_pool_size", 100)
	v.SetDefault("worker.external_pool_size", 20)
}
