// Package config provides application configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config holds all application configuration.
type Config struct {
	Port           string        `validate:"required,numeric"`
	DBPath         string        `validate:"required"`
	AllowedOrigins []string      `validate:"min=1"`
	CacheTTL       time.Duration `validate:"gt=0"`
	SessionTTL     time.Duration `validate:"gt=0"`
	NotifyBacklog  int           `validate:"gt=0"`
	TUILogPath     string        `validate:"required"`
	Server         ServerConfig
}

// ServerConfig describes how to reach the CTF server.
type ServerConfig struct {
	URL        string        `validate:"required,url"`
	ScriptRoot string        // path prefix, e.g. "/ctf"
	Session    string        // admin session cookie forwarded to the server
	Nonce      string        // static nonce; scraped from the admin page when empty
	Timeout    time.Duration `validate:"gt=0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8090"),
		DBPath:         getEnv("DB_PATH", "./data/console.db"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		CacheTTL:       getEnvDuration("CACHE_TTL", 2*time.Minute),
		SessionTTL:     getEnvDuration("EDITOR_SESSION_TTL", 60*time.Minute),
		NotifyBacklog:  getEnvInt("NOTIFY_BACKLOG", 50),
		TUILogPath:     getEnv("TUI_LOG_PATH", "./data/console-tui.log"),
		Server: ServerConfig{
			URL:        getEnv("CTFD_URL", "http://127.0.0.1:4000"),
			ScriptRoot: normalizeScriptRoot(getEnv("CTFD_SCRIPT_ROOT", "")),
			Session:    getEnv("CTFD_SESSION", ""),
			Nonce:      getEnv("CTFD_NONCE", ""),
			Timeout:    getEnvDuration("CTFD_TIMEOUT", 10*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	u, err := url.Parse(c.Server.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("CTFD_URL must be an http(s) URL")
	}
	return nil
}

// BaseURL returns the server origin joined with the script root.
func (s ServerConfig) BaseURL() string {
	return strings.TrimRight(s.URL, "/") + s.ScriptRoot
}

// IsDevelopment returns true when the console only accepts local origins.
func (c *Config) IsDevelopment() bool {
	for _, o := range c.AllowedOrigins {
		if o == "*" || strings.Contains(o, "localhost") || strings.Contains(o, "127.0.0.1") {
			return true
		}
	}
	return false
}

func normalizeScriptRoot(root string) string {
	root = strings.Trim(strings.TrimSpace(root), "/")
	if root == "" {
		return ""
	}
	return "/" + root
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
