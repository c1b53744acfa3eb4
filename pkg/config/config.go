// Package config loads sitenav settings: defaults, then the project's
// .sitenav/config.yaml, then SITENAV_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// DirName is the per-project directory holding config and state.
const DirName = ".sitenav"

// FileName is the config file inside DirName.
const FileName = "config.yaml"

// Config is the top-level sitenav configuration.
type Config struct {
	NavFile     string          `yaml:"nav_file" koanf:"nav_file"`
	Database    string          `yaml:"database,omitempty" koanf:"database"`
	Active      string          `yaml:"active,omitempty" koanf:"active"` // "type:id"
	Collapsible bool            `yaml:"collapsible" koanf:"collapsible"`
	StateDir    string          `yaml:"state_dir" koanf:"state_dir"`
	Server      ServerConfig    `yaml:"server" koanf:"server"`
	Embed       EmbedConfig     `yaml:"embed" koanf:"embed"`
	Log         LogConfig       `yaml:"log" koanf:"log"`
	Discovery   DiscoveryConfig `yaml:"discovery" koanf:"discovery"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string `yaml:"addr" koanf:"addr"`
	AllowAllOrigins bool   `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// EmbedConfig holds embed loader settings.
type EmbedConfig struct {
	Timeout time.Duration `yaml:"timeout" koanf:"timeout"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `yaml:"level" koanf:"level"`
	File  string `yaml:"file,omitempty" koanf:"file"`
}

// DiscoveryConfig controls scanning for other sitenav projects.
type DiscoveryConfig struct {
	ScanPaths []string `yaml:"scan_paths,omitempty" koanf:"scan_paths"`
	MaxDepth  int      `yaml:"max_depth" koanf:"max_depth"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		NavFile:     "nav.yaml",
		Collapsible: true,
		StateDir:    DirName,
		Server:      ServerConfig{Addr: ":8080"},
		Embed:       EmbedConfig{Timeout: 15 * time.Second},
		Log:         LogConfig{Level: "info"},
		Discovery:   DiscoveryConfig{MaxDepth: 3},
	}
}

// Path returns the config file location for a project root.
func Path(root string) string {
	return filepath.Join(root, DirName, FileName)
}

// Load reads configuration from the given YAML file (if present), then
// overlays environment variables: SITENAV_NAV_FILE -> nav_file,
// SITENAV_SERVER__ADDR -> server.addr.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider("SITENAV_", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, "SITENAV_"))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks values that would otherwise fail later and obscurely.
func (c *Config) Validate() error {
	if c.NavFile == "" && c.Database == "" {
		return fmt.Errorf("config: one of nav_file or database is required")
	}
	if c.Embed.Timeout < 0 {
		return fmt.Errorf("config: embed.timeout cannot be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid log level %q", c.Log.Level)
	}
	return nil
}

// Resolve makes relative paths absolute against root.
func (c *Config) Resolve(root string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) || strings.HasPrefix(p, "file:") {
			return p
		}
		return filepath.Join(root, p)
	}
	c.NavFile = resolve(c.NavFile)
	c.Database = resolve(c.Database)
	c.StateDir = resolve(c.StateDir)
	c.Log.File = resolve(c.Log.File)
}

// Save writes the configuration as YAML, creating the directory.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}
