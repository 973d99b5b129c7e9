package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

const appName = "toydb"

// Config holds all application configuration.
type Config struct {
	Theme   string        `yaml:"theme"` // "default", "light" or "plain"
	Store   StoreConfig   `yaml:"store"`
	Log     LogConfig     `yaml:"log"`
	History HistoryConfig `yaml:"history"`
	Audit   AuditConfig   `yaml:"audit"`
}

// StoreConfig selects the catalog backend.
type StoreConfig struct {
	Dialect string `yaml:"dialect"`
	DSN     string `yaml:"dsn,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
	File   string `yaml:"file,omitempty"`
}

// HistoryConfig holds statement history settings.
type HistoryConfig struct {
	Enabled     bool `yaml:"enabled"`
	RecallLimit int  `yaml:"recall_limit"`
}

// AuditConfig holds audit log settings.
type AuditConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path,omitempty"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Theme: "default",
		Store: StoreConfig{
			Dialect: "sqlite",
		},
		Log: LogConfig{
			Level:  "error",
			Format: "console",
		},
		History: HistoryConfig{
			Enabled:     true,
			RecallLimit: 500,
		},
		Audit: AuditConfig{
			MaxSizeMB: 10,
		},
	}
}

// ConfigDir returns the toydb configuration directory path, typically
// ~/.config/toydb/.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "config dir")
	}
	return filepath.Join(base, appName), nil
}

// DefaultPath returns ConfigDir()/config.yaml.
func DefaultPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads a Config from the YAML file at path. If the file does not exist,
// it returns DefaultConfig without error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrap(err, "read config")
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// LoadDefault loads configuration from DefaultPath.
func LoadDefault() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Validate checks the values that have a fixed set of choices.
func (c *Config) Validate() error {
	switch c.Theme {
	case "default", "light", "plain":
	default:
		return errors.WithHint(errors.Newf("unknown theme %q", c.Theme), "use default, light or plain")
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return errors.WithHint(errors.Newf("unknown log format %q", c.Log.Format), "use console or json")
	}
	if c.History.RecallLimit < 0 {
		return errors.Newf("history.recall_limit must not be negative, got %d", c.History.RecallLimit)
	}
	if c.Audit.MaxSizeMB < 0 {
		return errors.Newf("audit.max_size_mb must not be negative, got %d", c.Audit.MaxSizeMB)
	}
	return nil
}

// Save writes the Config to the YAML file at path, creating any necessary
// parent directories.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "create config dir")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(err, "write config")
	}
	return nil
}

// StoreDSN returns the configured DSN, falling back to dir/catalog.db for
// the sqlite dialect.
func (c *Config) StoreDSN(dir string) string {
	if c.Store.DSN != "" {
		return c.Store.DSN
	}
	if strings.EqualFold(c.Store.Dialect, "sqlite") {
		return filepath.Join(dir, "catalog.db")
	}
	return ""
}

// AuditPath returns the audit log path, defaulting to dir/audit.jsonl.
func (c *Config) AuditPath(dir string) string {
	if c.Audit.Path != "" {
		return c.Audit.Path
	}
	return filepath.Join(dir, "audit.jsonl")
}

// LogPath returns the log file path. An empty result means stderr.
// Interactive sessions default to dir/toydb.log so log lines do not draw
// over the terminal UI.
func (c *Config) LogPath(dir string, interactive bool) string {
	if c.Log.File != "" {
		return c.Log.File
	}
	if interactive {
		return filepath.Join(dir, appName+".log")
	}
	return ""
}
