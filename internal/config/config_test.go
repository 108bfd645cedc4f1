// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gatehouse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("defaults from flags alone", func(t *testing.T) {
		cfg, err := config.Load("", devFlags(t))
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Server.Addr)
		assert.True(t, cfg.Server.Dev)
		assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
		assert.Equal(t, "session_id", cfg.Session.CookieName)
		assert.Equal(t, 10*time.Minute, cfg.Session.SweepInterval)
		assert.Equal(t, "json", cfg.Log.Format)
		assert.Empty(t, cfg.Metrics.Addr)
	})

	t.Run("file settings override flag defaults", func(t *testing.T) {
		path := writeConfigFile(t, `
server:
  addr: ":9090"
  dev: true
session:
  ttl: 1h
  cookie_name: gh_session
log:
  format: text
`)
		cfg, err := config.Load(path, config.Flags())
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.Server.Addr)
		assert.Equal(t, time.Hour, cfg.Session.TTL)
		assert.Equal(t, "gh_session", cfg.Session.CookieName)
		assert.Equal(t, "text", cfg.Log.Format)
	})

	t.Run("explicit flags override file settings", func(t *testing.T) {
		path := writeConfigFile(t, `
server:
  addr: ":9090"
  dev: true
`)
		flags := config.Flags()
		require.NoError(t, flags.Parse([]string{"--server.addr", ":7070"}))

		cfg, err := config.Load(path, flags)
		require.NoError(t, err)
		assert.Equal(t, ":7070", cfg.Server.Addr)
	})

	t.Run("missing file fails", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"), config.Flags())
		require.Error(t, err)
	})

	t.Run("DATABASE_URL fills empty database.url", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost:5432/gatehouse")

		cfg, err := config.Load("", config.Flags())
		require.NoError(t, err)
		assert.Equal(t, "postgres://localhost:5432/gatehouse", cfg.Database.URL)
	})
}

func TestValidate(t *testing.T) {
	base := func() *config.Config {
		return &config.Config{
			Server:  config.ServerConfig{Addr: ":8080", Dev: true},
			Session: config.SessionConfig{TTL: time.Hour, CookieName: "session_id"},
			Log:     config.LogConfig{Format: "json"},
		}
	}

	t.Run("valid dev config passes", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("requires database url outside dev mode", func(t *testing.T) {
		cfg := base()
		cfg.Server.Dev = false
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.url")
	})

	t.Run("rejects non-positive session ttl", func(t *testing.T) {
		cfg := base()
		cfg.Session.TTL = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects empty cookie name", func(t *testing.T) {
		cfg := base()
		cfg.Session.CookieName = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects unknown log format", func(t *testing.T) {
		cfg := base()
		cfg.Log.Format = "xml"
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects empty server addr", func(t *testing.T) {
		cfg := base()
		cfg.Server.Addr = ""
		assert.Error(t, cfg.Validate())
	})
}

// devFlags returns the standard flag set with dev mode switched on, so no
// database URL is needed.
func devFlags(t *testing.T) *pflag.FlagSet {
	t.Helper()
	flags := config.Flags()
	require.NoError(t, flags.Parse([]string{"--server.dev"}))
	return flags
}
