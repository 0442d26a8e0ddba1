package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Addr)
	require.Equal(t, "sqlite", cfg.StoreDriver)
	require.Equal(t, "memory", cfg.NotifyQueue)
	require.Equal(t, "log", cfg.Mailer)
	require.Equal(t, 5*time.Minute, cfg.OTPTTL)
	require.Equal(t, 60*time.Second, cfg.OTPCooldown)
	require.Equal(t, 7*24*time.Hour, cfg.QuoteTTL)
	require.Equal(t, 3, cfg.NotifyMaxAttempts)
	require.False(t, cfg.StrictTransitions)
	require.Empty(t, cfg.CORSAllowedOrigins)
	require.Equal(t, 5, cfg.RateLimits.Strict.RequestsPerWindow)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "Mongo")
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("TOKEN_TTL", "90")
	t.Setenv("SHIPMENT_STRICT_TRANSITIONS", "true")
	t.Setenv("NOTIFY_WORKERS", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("RATELIMIT_STRICT_REQUESTS", "50")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "mongo", cfg.StoreDriver)
	require.Equal(t, 90*time.Minute, cfg.TokenTTL)
	require.True(t, cfg.StrictTransitions)
	require.Equal(t, 2, cfg.NotifyWorkers)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	require.Equal(t, 50, cfg.RateLimits.Strict.RequestsPerWindow)
}

func TestLoadConfig_Files(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SUPPORT_EMAIL=desk@example.com\n"), 0o600))
	yamlPath := filepath.Join(dir, "freightdesk.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
log_level: debug
notify:
  queue: redis
  workers: 4
  max-attempts: 5
redis_url: redis://cache:6379/0
support_email: ignored@example.com
cors_allowed_origins:
  - https://ops.example
`), 0o600))

	t.Setenv("CONFIG_FILE", yamlPath)
	t.Setenv("LOG_LEVEL", "warn")
	// Keys the YAML sets are restored after the test.
	for _, k := range []string{"NOTIFY_QUEUE", "NOTIFY_WORKERS", "NOTIFY_MAX_ATTEMPTS", "REDIS_URL", "SUPPORT_EMAIL", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "warn", cfg.LogLevel, "environment wins over YAML")
	require.Equal(t, "desk@example.com", cfg.SupportEmail, ".env wins over YAML")
	require.Equal(t, "redis", cfg.NotifyQueue)
	require.Equal(t, 4, cfg.NotifyWorkers)
	require.Equal(t, 5, cfg.NotifyMaxAttempts)
	require.Equal(t, "redis://cache:6379/0", cfg.RedisURL)
	require.Equal(t, []string{"https://ops.example"}, cfg.CORSAllowedOrigins)
}

func TestConfigValidate(t *testing.T) {
	base := Config{StoreDriver: "sqlite", NotifyQueue: "memory", Mailer: "log", TokenTTL: time.Hour}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"mongo without uri", func(c *Config) { c.StoreDriver = "mongo" }, "MONGO_URI"},
		{"unknown driver", func(c *Config) { c.StoreDriver = "postgres" }, "STORE_DRIVER"},
		{"redis without url", func(c *Config) { c.NotifyQueue = "redis" }, "REDIS_URL"},
		{"ses without sender", func(c *Config) { c.Mailer = "ses" }, "MAIL_FROM"},
		{"zero token ttl", func(c *Config) { c.TokenTTL = 0 }, "TOKEN_TTL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}
