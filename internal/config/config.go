// Package config loads the bankd configuration from defaults, an
// optional TOML file and BANKD_-prefixed environment variables.
package config

import "time"

// Config is the complete bankd configuration.
type Config struct {
	Server      ServerConfig      `toml:"server" mapstructure:"server"`
	Database    DatabaseConfig    `toml:"database" mapstructure:"database"`
	Approval    ApprovalConfig    `toml:"approval" mapstructure:"approval"`
	Audit       AuditConfig       `toml:"audit" mapstructure:"audit"`
	DecisionLog DecisionLogConfig `toml:"decision_log" mapstructure:"decision_log"`

	configPath string `toml:"-" mapstructure:"-"`
}

// ServerConfig controls the TCP listener.
type ServerConfig struct {
	Host string `toml:"host" mapstructure:"host"`
	Port int    `toml:"port" mapstructure:"port"`
}

// DatabaseConfig controls snapshot persistence. SpoolPath holds the
// plaintext verification queue; the settings file lives next to Path
// with a ".settings" suffix.
type DatabaseConfig struct {
	Path      string `toml:"path" mapstructure:"path"`
	SpoolPath string `toml:"spool_path" mapstructure:"spool_path"`
}

// ApprovalConfig controls the operator approval rendezvous.
type ApprovalConfig struct {
	WaitTimeout time.Duration `toml:"wait_timeout" mapstructure:"wait_timeout"`
}

// AuditConfig controls the optional SQLite transaction index.
type AuditConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Path    string `toml:"path" mapstructure:"path"`
}

// DecisionLogConfig controls the optional operator-decision archive.
type DecisionLogConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Path    string `toml:"path" mapstructure:"path"`
}

// GetConfigPath returns the path of the file the config was loaded
// from, or "" when running on defaults and environment only.
func (c *Config) GetConfigPath() string {
	return c.configPath
}
