package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8090" {
		t.Errorf("expected default port 8090, got %s", cfg.Port)
	}
	if cfg.Server.Timeout != 10*time.Second {
		t.Errorf("expected default timeout 10s, got %s", cfg.Server.Timeout)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected wildcard origins to count as development")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("CTFD_URL", "https://ctf.example.org/")
	t.Setenv("CTFD_SCRIPT_ROOT", "ctf/")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("ALLOWED_ORIGINS", "https://admin.example.org, https://ops.example.org")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := cfg.Server.BaseURL(); got != "https://ctf.example.org/ctf" {
		t.Errorf("unexpected base URL %q", got)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("expected cache ttl 30s, got %s", cfg.CacheTTL)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("expected 2 origins, got %v", cfg.AllowedOrigins)
	}
	if cfg.IsDevelopment() {
		t.Error("explicit remote origins should not be development")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"non numeric port", "PORT", "http"},
		{"bad url", "CTFD_URL", "ftp://ctf"},
		{"zero backlog", "NOTIFY_BACKLOG", "0"},
		{"empty db path", "DB_PATH", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.val)
			}
		})
	}
}
