// Package config loads noticepanel settings from a YAML file with
// NOTICEPANEL_* environment overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix marks environment overrides. NOTICEPANEL_SERVER__DB_PATH sets
// server.db_path: a double underscore separates sections.
const EnvPrefix = "NOTICEPANEL_"

// Config is the whole file.
type Config struct {
	Log     LogConfig     `koanf:"log" yaml:"log"`
	Server  ServerConfig  `koanf:"server" yaml:"server"`
	Panel   PanelConfig   `koanf:"panel" yaml:"panel"`
	Browser BrowserConfig `koanf:"browser" yaml:"browser"`
	Bridge  BridgeConfig  `koanf:"bridge" yaml:"bridge"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level" yaml:"level"`
}

// ServerConfig drives "noticepanel serve".
type ServerConfig struct {
	Addr   string `koanf:"addr" yaml:"addr"`
	DBPath string `koanf:"db_path" yaml:"db_path"`
	// Secret signs session tokens and nonces. At least 32 bytes.
	Secret string `koanf:"secret" yaml:"secret"`
	// RESTURL is advertised in bootstrap payloads. Empty derives it from
	// the request.
	RESTURL string `koanf:"rest_url" yaml:"rest_url"`
	// MCP makes "watch" listen on Addr and serve the panel tools on /mcp.
	MCP bool `koanf:"mcp" yaml:"mcp"`
}

// PanelConfig seeds panel settings when no bootstrap supplies them.
type PanelConfig struct {
	AutoOpenCritical bool          `koanf:"auto_open_critical" yaml:"auto_open_critical"`
	IncludeUpdateNag bool          `koanf:"include_update_nag" yaml:"include_update_nag"`
	FiltersEnabled   bool          `koanf:"filters_enabled" yaml:"filters_enabled"`
	Highlight        time.Duration `koanf:"highlight" yaml:"highlight"`
	Root             string        `koanf:"root" yaml:"root"`
}

type BrowserConfig struct {
	// RemoteURL connects to a running Chrome instead of launching one.
	RemoteURL string `koanf:"remote_url" yaml:"remote_url"`
	Headful   bool   `koanf:"headful" yaml:"headful"`
}

// BridgeConfig tells "watch" where the persistence service lives.
type BridgeConfig struct {
	BootstrapURL  string `koanf:"bootstrap_url" yaml:"bootstrap_url"`
	BootstrapFile string `koanf:"bootstrap_file" yaml:"bootstrap_file"`
	// Token is the session JWT sent when fetching the bootstrap.
	Token string `koanf:"token" yaml:"token"`
	// Screen is passed as ?screen= to the bootstrap endpoint.
	Screen string `koanf:"screen" yaml:"screen"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	c := &Config{
		Panel: PanelConfig{
			AutoOpenCritical: true,
			FiltersEnabled:   true,
		},
	}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8420"
	}
	if c.Server.DBPath == "" {
		c.Server.DBPath = "noticepanel.db"
	}
	if c.Panel.Highlight <= 0 {
		c.Panel.Highlight = 2 * time.Second
	}
	if c.Panel.Root == "" {
		c.Panel.Root = "#wpbody-content"
	}
}

// Load reads path, then overlays NOTICEPANEL_* variables. A missing file
// is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: stat %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: env overrides: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes c to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Server.Secret != "" && len(c.Server.Secret) < 32 {
		return fmt.Errorf("config: server.secret must be at least 32 bytes")
	}
	if c.Bridge.BootstrapURL != "" && c.Bridge.BootstrapFile != "" {
		return fmt.Errorf("config: bridge.bootstrap_url and bridge.bootstrap_file are exclusive")
	}
	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("config: unknown log level %q", s)
}
