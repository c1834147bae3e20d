package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3001, cfg.Port)
	assert.Equal(t, EnvProduction, cfg.Env)
	assert.Equal(t, "smtp.mail.ru", cfg.SMTPHost)
	assert.Equal(t, 465, cfg.SMTPPort)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins())
	assert.Equal(t, []string{"127.0.0.1", "::1"}, cfg.TrustedProxyList())
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("APP_ENV", "development")
	t.Setenv("SMTP_USER", "me@mail.ru")
	t.Setenv("CORS_ORIGIN", "https://a.example, https://b.example")
	t.Setenv("SESSION_TTL", "2h")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins())
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "me@mail.ru", cfg.Recipient())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "port: 9000\nrecipient_email: inbox@example.com\ndb_path: /srv/db.json\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	t.Setenv("PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "/srv/db.json", cfg.DBPath)
	assert.Equal(t, "inbox@example.com", cfg.Recipient())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad port", func(c *Config) { c.Port = 0 }, "port must be"},
		{"bad env", func(c *Config) { c.Env = "staging" }, "app_env must be"},
		{"bad smtp port", func(c *Config) { c.SMTPPort = 70000 }, "smtp_port must be"},
		{"empty db path", func(c *Config) { c.DBPath = "" }, "db_path is required"},
		{"zero upload size", func(c *Config) { c.UploadMaxBytes = 0 }, "upload_max_bytes"},
		{"zero ttl", func(c *Config) { c.SessionTTL = 0 }, "session_ttl"},
		{"bad origin", func(c *Config) { c.CORSOrigin = "example.com" }, "cors_origin entries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	assert.NoError(t, Default().Validate())
}
