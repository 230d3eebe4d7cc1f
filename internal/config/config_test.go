package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port == "" {
		t.Error("expected a default port")
	}
	if cfg.RateLimitRPS <= 0 {
		t.Error("expected a default rate limit")
	}
	if cfg.UsePostgres() && cfg.DatabaseURL == "" {
		t.Error("UsePostgres without DATABASE_URL")
	}
}

func TestValidateRequiresSigningKeyOutsideDev(t *testing.T) {
	cfg := &Config{Env: "production"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing JWT_SIGNING_KEY in production")
	}
	cfg.JWTSigningKey = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateDevNeedsNoKey(t *testing.T) {
	cfg := &Config{Env: "development"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
