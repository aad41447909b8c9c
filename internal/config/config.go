// Package config handles rbrowse configuration using Viper.
//
// Configuration sources (in priority order):
//  1. Command line flags bound with BindFlag
//  2. Environment variables (RBROWSE_*)
//  3. Config file (<user config dir>/rbrowse/config.toml)
//  4. Built-in defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kk-code-lab/rbrowse/internal/identity"
	"github.com/kk-code-lab/rbrowse/internal/listing"
	"github.com/kk-code-lab/rbrowse/internal/observability"
	"github.com/kk-code-lab/rbrowse/internal/paths"
)

const (
	// DefaultServerURL is the address of a server started with default settings.
	DefaultServerURL = "http://localhost:8080"
	// DefaultReconnectDelay is the fixed pause between connection attempts.
	DefaultReconnectDelay = 3 * time.Second
)

// Keys.
const (
	KeyServerURL       = "server.url"
	KeyReconnectDelay  = "session.reconnect_delay"
	KeyStartPath       = "session.start_path"
	KeyIdentityBackend = "identity.backend"
	KeyLogLevel        = "log.level"
	KeyLogFormat       = "log.format"
	KeyLogFile         = "log.file"
	KeyLogStderr       = "log.stderr"
	KeyMetricsAddr     = "metrics.addr"
)

// Settings is the file representation of the configuration.
type Settings struct {
	Server   ServerSettings   `toml:"server"`
	Session  SessionSettings  `toml:"session"`
	Identity IdentitySettings `toml:"identity"`
	Log      LogSettings      `toml:"log"`
	Metrics  MetricsSettings  `toml:"metrics"`
}

type ServerSettings struct {
	URL string `toml:"url"`
}

type SessionSettings struct {
	ReconnectDelay string `toml:"reconnect_delay"`
	StartPath      string `toml:"start_path"`
}

type IdentitySettings struct {
	Backend string `toml:"backend"`
}

type LogSettings struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
	Stderr string `toml:"stderr"`
}

type MetricsSettings struct {
	Addr string `toml:"addr"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		Server:   ServerSettings{URL: DefaultServerURL},
		Session:  SessionSettings{ReconnectDelay: DefaultReconnectDelay.String(), StartPath: listing.Root},
		Identity: IdentitySettings{Backend: identity.BackendKeyring},
		Log:      LogSettings{Level: "info", Format: "json", Stderr: "auto"},
	}
}

// Config holds the rbrowse configuration.
type Config struct {
	v    *viper.Viper
	file string
}

// Load reads configuration from all sources. An empty file selects the
// default location; a missing file is not an error.
func Load(file string) (*Config, error) {
	v := viper.New()

	d := Defaults()
	v.SetDefault(KeyServerURL, d.Server.URL)
	v.SetDefault(KeyReconnectDelay, d.Session.ReconnectDelay)
	v.SetDefault(KeyStartPath, d.Session.StartPath)
	v.SetDefault(KeyIdentityBackend, d.Identity.Backend)
	v.SetDefault(KeyLogLevel, d.Log.Level)
	v.SetDefault(KeyLogFormat, d.Log.Format)
	v.SetDefault(KeyLogFile, d.Log.File)
	v.SetDefault(KeyLogStderr, d.Log.Stderr)
	v.SetDefault(KeyMetricsAddr, d.Metrics.Addr)

	v.SetEnvPrefix("RBROWSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file == "" {
		var err error
		if file, err = paths.ConfigFile(); err != nil {
			return nil, fmt.Errorf("resolve config file: %w", err)
		}
	}

	if _, err := os.Stat(file); err == nil {
		v.SetConfigFile(file)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat config file: %w", err)
	}

	return &Config{v: v, file: file}, nil
}

// File returns the config file location, whether or not it exists.
func (c *Config) File() string {
	return c.file
}

// BindFlag lets a command line flag override key.
func (c *Config) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("bind %s: flag not defined", key)
	}
	return c.v.BindPFlag(key, flag)
}

// Set overrides key for the rest of the process.
func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
}

// ServerURL returns the server base address.
func (c *Config) ServerURL() string {
	return strings.TrimSpace(c.v.GetString(KeyServerURL))
}

// ReconnectDelay returns the pause between connection attempts.
func (c *Config) ReconnectDelay() (time.Duration, error) {
	raw := strings.TrimSpace(c.v.GetString(KeyReconnectDelay))
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", KeyReconnectDelay, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", KeyReconnectDelay, raw)
	}
	return d, nil
}

// StartPath returns the normalized directory opened on first connect.
func (c *Config) StartPath() string {
	return listing.NormalizePath(c.v.GetString(KeyStartPath))
}

func (c *Config) IdentityBackend() string { return c.v.GetString(KeyIdentityBackend) }
func (c *Config) LogLevel() string        { return c.v.GetString(KeyLogLevel) }
func (c *Config) LogFormat() string       { return c.v.GetString(KeyLogFormat) }
func (c *Config) LogFile() string         { return c.v.GetString(KeyLogFile) }
func (c *Config) LogStderr() string       { return c.v.GetString(KeyLogStderr) }
func (c *Config) MetricsAddr() string     { return c.v.GetString(KeyMetricsAddr) }

// Validate checks values that are parsed lazily.
func (c *Config) Validate() error {
	if _, err := c.ReconnectDelay(); err != nil {
		return err
	}
	if _, err := observability.ParseLevel(c.LogLevel()); err != nil {
		return err
	}
	switch strings.ToLower(c.IdentityBackend()) {
	case identity.BackendKeyring, identity.BackendFile, identity.BackendEphemeral:
	default:
		return fmt.Errorf("%s: unknown backend %q", KeyIdentityBackend, c.IdentityBackend())
	}
	return nil
}

// Settings returns the effective configuration.
func (c *Config) Settings() Settings {
	return Settings{
		Server:   ServerSettings{URL: c.ServerURL()},
		Session:  SessionSettings{ReconnectDelay: c.v.GetString(KeyReconnectDelay), StartPath: c.StartPath()},
		Identity: IdentitySettings{Backend: c.IdentityBackend()},
		Log:      LogSettings{Level: c.LogLevel(), Format: c.LogFormat(), File: c.LogFile(), Stderr: c.LogStderr()},
		Metrics:  MetricsSettings{Addr: c.MetricsAddr()},
	}
}

// Encode renders settings as TOML.
func Encode(s Settings) ([]byte, error) {
	out, err := toml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return out, nil
}

// WriteDefaults writes the built-in settings to file. An existing file is
// only replaced when force is set.
func WriteDefaults(file string, force bool) error {
	if !force {
		if _, err := os.Stat(file); err == nil {
			return fmt.Errorf("config file %s already exists", file)
		}
	}
	data, err := Encode(Defaults())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(file, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
