package config

import (
	"strings"
	"testing"
	"time"
)

// setRequired sets the minimum environment a successful Load needs.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("REGISTRY_URL", "http://registry.local")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 30s", cfg.Server.ReadTimeout)
	}
	if cfg.Matching.BatchSize != 10 {
		t.Errorf("Matching.BatchSize = %d, want 10", cfg.Matching.BatchSize)
	}
	if cfg.Matching.BatchPause != 100*time.Millisecond {
		t.Errorf("Matching.BatchPause = %v, want 100ms", cfg.Matching.BatchPause)
	}
	if cfg.Matching.IdentifierFormat != "standard" {
		t.Errorf("Matching.IdentifierFormat = %q, want standard", cfg.Matching.IdentifierFormat)
	}
	if cfg.Email.Port != 587 {
		t.Errorf("Email.Port = %d, want 587", cfg.Email.Port)
	}
	if !cfg.Rate.Enabled || cfg.Rate.RequestsPerMinute != 100 {
		t.Errorf("Rate = %+v", cfg.Rate)
	}
	if cfg.Security.MaxUploadSize != 52428800 {
		t.Errorf("Security.MaxUploadSize = %d", cfg.Security.MaxUploadSize)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Retention.Days != 180 || cfg.Retention.CheckInterval != 24*time.Hour {
		t.Errorf("Retention = %+v", cfg.Retention)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("MATCH_BATCH_SIZE", "25")
	t.Setenv("MATCH_BATCH_PAUSE", "250ms")
	t.Setenv("IDENTIFIER_FORMAT", "legacy")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("API_KEYS", "key-one, key-two,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Matching.BatchSize != 25 || cfg.Matching.BatchPause != 250*time.Millisecond {
		t.Errorf("Matching = %+v", cfg.Matching)
	}
	if cfg.Matching.IdentifierFormat != "legacy" {
		t.Errorf("IdentifierFormat = %q", cfg.Matching.IdentifierFormat)
	}
	if cfg.Rate.Enabled {
		t.Error("Rate.Enabled = true, want false")
	}
	if len(cfg.Security.APIKeys) != 2 || cfg.Security.APIKeys[0] != "key-one" || cfg.Security.APIKeys[1] != "key-two" {
		t.Errorf("APIKeys = %v", cfg.Security.APIKeys)
	}
}

func TestLoadDatabaseURLAlternate(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_URL", "postgres://localhost/runs")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.URL != "postgres://localhost/runs" {
		t.Errorf("Database.URL = %q", cfg.Database.URL)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("REGISTRY_URL", "")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "REGISTRY_URL") {
		t.Errorf("expected REGISTRY_URL error, got %v", err)
	}
}

func TestLoadInvalidValue(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_PORT", "not-a-port")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "SERVER_PORT") {
		t.Errorf("expected SERVER_PORT error, got %v", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_PORT", "70000")
	t.Setenv("IDENTIFIER_FORMAT", "modern")
	t.Setenv("LOG_LEVEL", "loud")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"SERVER_PORT", "IDENTIFIER_FORMAT", "LOG_LEVEL"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %s: %v", want, err)
		}
	}
}

func TestValidateAPIKeyRequirement(t *testing.T) {
	setRequired(t)
	t.Setenv("REQUIRE_API_KEY", "true")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "API_KEYS") {
		t.Errorf("expected API_KEYS error, got %v", err)
	}

	t.Setenv("API_KEYS", "k1")
	if _, err := Load(); err != nil {
		t.Errorf("Load with key configured failed: %v", err)
	}
}

func TestValidateEmailNeedsSender(t *testing.T) {
	setRequired(t)
	t.Setenv("SMTP_HOST", "smtp.local")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "SMTP_FROM") {
		t.Errorf("expected SMTP_FROM error, got %v", err)
	}

	t.Setenv("SMTP_USERNAME", "reports@agrikit.ph")
	if _, err := Load(); err != nil {
		t.Errorf("Load with username failed: %v", err)
	}
}

func TestServerAddr(t *testing.T) {
	cfg := ServerConfig{Host: "0.0.0.0", Port: 8080}
	if got := cfg.Addr(); got != "0.0.0.0:8080" {
		t.Errorf("Addr = %q", got)
	}
	empty := ServerConfig{Port: 9000}
	if got := empty.Addr(); got != ":9000" {
		t.Errorf("Addr = %q", got)
	}
}

func TestStringMasksDatabaseURL(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_URL", "postgres://user:hunter2@db/runs")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	s := cfg.String()
	if strings.Contains(s, "hunter2") {
		t.Error("String leaks the database credentials")
	}
	if !strings.Contains(s, "[MASKED]") {
		t.Errorf("String = %s", s)
	}
}
