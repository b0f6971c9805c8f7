package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Ensure no env vars interfere
	os.Unsetenv("SERVER_PORT")
	os.Unsetenv("AUTH_ENABLED")
	os.Unsetenv("AUTH_MODE")
	os.Unsetenv("API_KEY")
	os.Unsetenv("ALLOWED_ORIGINS")
	os.Unsetenv("TENANT_HEADER_ENABLED")
	os.Unsetenv("OE_DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Server defaults
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 30s", cfg.Server.ReadTimeout)
	}

	// Auth defaults
	if cfg.Auth.Enabled {
		t.Error("Auth.Enabled = true, want false")
	}
	if cfg.Auth.Mode != "api_key" {
		t.Errorf("Auth.Mode = %q, want api_key", cfg.Auth.Mode)
	}

	// Store defaults
	if cfg.Store.LockTimeout != 5*time.Second {
		t.Errorf("Store.LockTimeout = %v, want 5s", cfg.Store.LockTimeout)
	}
	if cfg.Store.LockRetryInterval != 50*time.Millisecond {
		t.Errorf("Store.LockRetryInterval = %v, want 50ms", cfg.Store.LockRetryInterval)
	}

	// Workflow defaults
	if cfg.Workflow.NonsenseConfidence != 0.5 {
		t.Errorf("Workflow.NonsenseConfidence = %v, want 0.5", cfg.Workflow.NonsenseConfidence)
	}
	if cfg.Workflow.IntakeConfidence != 0.85 {
		t.Errorf("Workflow.IntakeConfidence = %v, want 0.85", cfg.Workflow.IntakeConfidence)
	}
	if cfg.Workflow.MaxCounterRounds != 3 {
		t.Errorf("Workflow.MaxCounterRounds = %d, want 3", cfg.Workflow.MaxCounterRounds)
	}
	if cfg.Workflow.MaxStepIterations != 6 {
		t.Errorf("Workflow.MaxStepIterations = %d, want 6", cfg.Workflow.MaxStepIterations)
	}
	if len(cfg.Workflow.RevisionLexicon) == 0 {
		t.Error("Workflow.RevisionLexicon is empty")
	}

	// Site visit defaults
	if len(cfg.SiteVisit.Weekdays) != 5 {
		t.Errorf("SiteVisit.Weekdays = %v, want Mon-Fri", cfg.SiteVisit.Weekdays)
	}
	if len(cfg.SiteVisit.Hours) != 3 {
		t.Errorf("SiteVisit.Hours = %v, want 10/14/16", cfg.SiteVisit.Hours)
	}

	// Dates defaults
	if cfg.Dates.HorizonMinDays != 45 || cfg.Dates.HorizonMaxDays != 180 {
		t.Errorf("Dates horizon = %d..%d, want 45..180", cfg.Dates.HorizonMinDays, cfg.Dates.HorizonMaxDays)
	}

	// Log defaults
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
}

func TestLoad_LegacyEnvNames(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("AUTH_MODE", "bearer")
	t.Setenv("API_KEY", "shh-secret")
	t.Setenv("TENANT_HEADER_ENABLED", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example https://b.example")
	t.Setenv("ENV", "dev")
	t.Setenv("OE_DEBUG", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.Auth.Enabled {
		t.Error("AUTH_ENABLED=true not honored")
	}
	if cfg.Auth.Mode != "bearer" {
		t.Errorf("Auth.Mode = %q, want bearer", cfg.Auth.Mode)
	}
	if cfg.Auth.APIKey != "shh-secret" {
		t.Errorf("Auth.APIKey = %q, want shh-secret", cfg.Auth.APIKey)
	}
	if !cfg.Tenant.HeaderEnabled {
		t.Error("TENANT_HEADER_ENABLED=true not honored")
	}
	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins = %v, want two entries", cfg.Server.AllowedOrigins)
	}
	if !cfg.IsDev() {
		t.Error("ENV=dev should report IsDev")
	}
	if !cfg.Debug {
		t.Error("OE_DEBUG=true not honored")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"auth enabled without key", func(c *Config) { c.Auth.Enabled = true; c.Auth.APIKey = "" }, true},
		{"unknown auth mode is not a boot failure", func(c *Config) { c.Auth.Mode = "saml" }, false},
		{"zero lock timeout", func(c *Config) { c.Store.LockTimeout = 0 }, true},
		{"nonsense confidence out of range", func(c *Config) { c.Workflow.NonsenseConfidence = 1.5 }, true},
		{"deposit rate out of range", func(c *Config) { c.Offer.DepositRate = -0.1 }, true},
		{"step iterations below one", func(c *Config) { c.Workflow.MaxStepIterations = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.mutate(cfg)

			err = cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
