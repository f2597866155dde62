package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DRIVER", "DB_PATH", "MIGRATIONS", "LOG_LEVEL", "DB_DEBUG"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "invoices.db", cfg.Database.Path)
	assert.False(t, cfg.App.Migrations)
	assert.Equal(t, "info", cfg.Log.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_USER", "odo")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "odo")
	t.Setenv("MIGRATIONS", "yes")
	t.Setenv("SERVER_READ_TIMEOUT", "not-a-number")

	cfg := Load()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 15, cfg.Server.ReadTimeout)
	assert.True(t, cfg.App.Migrations)
	assert.Equal(t, "host=db port=6543 user=odo password=secret dbname=odo sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, "postgres://odo:secret@db:6543/odo?sslmode=disable", cfg.Database.URL())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"sqlite without path", func(c *Config) { c.Database.Driver = "sqlite"; c.Database.Path = "" }},
		{"postgres without host", func(c *Config) { c.Database.Driver = "postgres"; c.Database.Host = "" }},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"non numeric port", func(c *Config) { c.Server.Port = "http" }},
		{"zero timeout", func(c *Config) { c.Server.WriteTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
