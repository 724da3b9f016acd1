// Package config provides configuration loading and hot reload. Only
// runtime-safe settings (the log level) take effect on reload; the
// extension set is fixed until the process restarts.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from yaml scalars in
// time.ParseDuration syntax ("5s", "1m30s") as well as integer nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Extensions ExtensionsConfig `yaml:"extensions"`
	Logging    LoggingConfig    `yaml:"logging"`
	Otel       OtelConfig       `yaml:"otel"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
}

// ExtensionsConfig configures discovery and the load/resolve policy.
type ExtensionsConfig struct {
	// Dir is scanned for extension bundles at startup.
	Dir string `yaml:"dir"`
	// DataDir holds one database file per extension.
	DataDir string `yaml:"data_dir"`
	// FailFast aborts startup on the first failing extension instead of
	// skipping it with a warning.
	FailFast bool `yaml:"fail_fast"`
	// ResolveTimeout bounds each field resolution call. Zero disables it.
	ResolveTimeout Duration `yaml:"resolve_timeout"`
	// LoadTimeout bounds each lifecycle call during loading.
	LoadTimeout Duration `yaml:"load_timeout"`
	// Debug raises the sandbox handshake logger to debug level.
	Debug bool `yaml:"debug"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type OtelConfig struct {
	Endpoint string `yaml:"endpoint"`
	Service  string `yaml:"service"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  Duration(10 * time.Second),
			WriteTimeout: Duration(30 * time.Second),
		},
		Extensions: ExtensionsConfig{
			Dir:            "extensions",
			DataDir:        "data",
			ResolveTimeout: Duration(5 * time.Second),
			LoadTimeout:    Duration(30 * time.Second),
		},
		Logging: LoggingConfig{Level: "info"},
		Otel:    OtelConfig{Service: "forgext"},
	}
}

// Load reads and validates a config file, applying defaults for anything
// unset.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that would otherwise fail obscurely later.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Extensions.Dir == "" {
		return fmt.Errorf("extensions.dir must not be empty")
	}
	if c.Extensions.DataDir == "" {
		return fmt.Errorf("extensions.data_dir must not be empty")
	}
	if c.Extensions.ResolveTimeout < 0 || c.Extensions.LoadTimeout < 0 {
		return fmt.Errorf("extension timeouts must not be negative")
	}
	return nil
}
