// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package config loads service configuration from an optional YAML file and
// command-line flags. Flags that were explicitly set override the file;
// flag defaults fill whatever neither provided.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config is the full service configuration, immutable after Load.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Session  SessionConfig  `koanf:"session"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `koanf:"addr"`
	// Dev runs entirely on in-memory stores, no database required.
	Dev bool `koanf:"dev"`
}

// DatabaseConfig configures PostgreSQL connectivity.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// SessionConfig configures session lifetime and the client cookie.
type SessionConfig struct {
	TTL           time.Duration `koanf:"ttl"`
	CookieName    string        `koanf:"cookie_name"`
	CookieSecure  bool          `koanf:"cookie_secure"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// LogConfig configures structured logging output.
type LogConfig struct {
	Format string `koanf:"format"` // "json" or "text"
}

// MetricsConfig configures the observability listener.
type MetricsConfig struct {
	Addr string `koanf:"addr"` // empty disables the listener
}

// Flags returns the pflag set whose defaults double as configuration
// defaults. Flag names mirror the koanf key paths.
func Flags() *pflag.FlagSet {
	f := pflag.NewFlagSet("gatehouse", pflag.ContinueOnError)
	f.String("server.addr", ":8080", "HTTP listen address")
	f.Bool("server.dev", false, "run with in-memory stores (no database)")
	f.String("database.url", "", "PostgreSQL connection URL (defaults to DATABASE_URL)")
	f.Duration("session.ttl", 24*time.Hour, "session lifetime")
	f.String("session.cookie_name", "session_id", "session cookie name")
	f.Bool("session.cookie_secure", false, "set the Secure attribute on the session cookie")
	f.Duration("session.sweep_interval", 10*time.Minute, "expired-session sweep interval (0 disables)")
	f.String("log.format", "json", "log format (json or text)")
	f.String("metrics.addr", "", "metrics/health HTTP address (empty = disabled)")
	return f
}

// Load reads configuration from the given YAML file (optional; empty path
// skips it) and the flag set, then validates the result.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	// posflag skips unchanged flags for keys the file already set, so
	// explicit flags win and flag defaults only fill gaps.
	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_PARSE_FAILED").Wrap(err)
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("server.addr is required")
	}
	if !c.Server.Dev && c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url (or DATABASE_URL) is required unless server.dev is set")
	}
	if c.Session.TTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("session.ttl must be positive")
	}
	if c.Session.CookieName == "" {
		return oops.Code("CONFIG_INVALID").Errorf("session.cookie_name is required")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	return nil
}
