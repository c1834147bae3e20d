// Package config loads service configuration from defaults, an optional YAML
// file and the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config holds all application configuration
type Config struct {
	Port     int    `koanf:"port"`
	Env      string `koanf:"app_env"`
	LogLevel string `koanf:"log_level"`

	DBPath         string `koanf:"db_path"`
	SQLitePath     string `koanf:"sqlite_path"`
	UploadDir      string `koanf:"upload_dir"`
	UploadMaxBytes int64  `koanf:"upload_max_bytes"`
	CORSOrigin     string `koanf:"cors_origin"`
	TrustedProxies string `koanf:"trusted_proxies"`

	SMTPHost       string `koanf:"smtp_host"`
	SMTPPort       int    `koanf:"smtp_port"`
	SMTPUser       string `koanf:"smtp_user"`
	SMTPPass       string `koanf:"smtp_pass"`
	RecipientEmail string `koanf:"recipient_email"`

	AdminPassword     string        `koanf:"admin_password"`
	AdminPasswordHash string        `koanf:"admin_password_hash"`
	SessionTTL        time.Duration `koanf:"session_ttl"`

	AnalyticsSalt      string        `koanf:"analytics_salt"`
	AnalyticsRetention time.Duration `koanf:"analytics_retention"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:               3001,
		Env:                EnvProduction,
		LogLevel:           "info",
		DBPath:             "data/db.json",
		SQLitePath:         "data/portfolio.sqlite",
		UploadDir:          "uploads",
		UploadMaxBytes:     5 << 20,
		CORSOrigin:         "http://localhost:5173",
		TrustedProxies:     "127.0.0.1,::1",
		SMTPHost:           "smtp.mail.ru",
		SMTPPort:           465,
		SessionTTL:         24 * time.Hour,
		AnalyticsRetention: 365 * 24 * time.Hour,
	}
}

// keys lists every recognised setting. Environment variables are matched by
// lowercasing their name, so PORT maps to port and SMTP_HOST to smtp_host.
var keys = map[string]bool{
	"port": true, "app_env": true, "log_level": true,
	"db_path": true, "sqlite_path": true, "upload_dir": true, "upload_max_bytes": true,
	"cors_origin": true, "trusted_proxies": true,
	"smtp_host": true, "smtp_port": true, "smtp_user": true, "smtp_pass": true, "recipient_email": true,
	"admin_password": true, "admin_password_hash": true, "session_ttl": true,
	"analytics_salt": true, "analytics_retention": true,
}

// Load builds the configuration. Precedence, highest first: environment
// variables, the YAML file at path (skipped when path is empty), defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		key := strings.ToLower(s)
		if !keys[key] {
			return ""
		}
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration can be used to start the server.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	switch c.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("app_env must be one of development, production, test; got %q", c.Env)
	}
	if c.SMTPPort < 1 || c.SMTPPort > 65535 {
		return fmt.Errorf("smtp_port must be between 1 and 65535, got %d", c.SMTPPort)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.SQLitePath == "" {
		return fmt.Errorf("sqlite_path is required")
	}
	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("upload_max_bytes must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive")
	}
	if c.AnalyticsRetention <= 0 {
		return fmt.Errorf("analytics_retention must be positive")
	}
	for _, origin := range c.CORSOrigins() {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("cors_origin entries must start with http:// or https://, got %q", origin)
		}
	}
	return nil
}

// IsDevelopment reports whether error details may be exposed to clients.
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Recipient returns where contact messages are delivered.
func (c *Config) Recipient() string {
	if c.RecipientEmail != "" {
		return c.RecipientEmail
	}
	return c.SMTPUser
}

// CORSOrigins splits the comma-separated origin allow-list.
func (c *Config) CORSOrigins() []string {
	return splitList(c.CORSOrigin)
}

// TrustedProxyList splits the comma-separated proxy list used to resolve
// client IPs from forwarding headers.
func (c *Config) TrustedProxyList() []string {
	return splitList(c.TrustedProxies)
}

func splitList(list string) []string {
	parts := strings.Split(list, ",")
	out := make([]string, 0, len(parts))
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
