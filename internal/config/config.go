// Package config loads composer server configuration from flags,
// environment variables, and an optional YAML file.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"pgcomposer/internal/logging"
	"pgcomposer/internal/schemafilter"
	"pgcomposer/internal/tlscert"
)

// Config holds the application configuration.
type Config struct {
	Server  ServerConfig   `mapstructure:"server"`
	Schema  SchemaConfig   `mapstructure:"schema"`
	Logging logging.Config `mapstructure:"logging"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	ListenAddr      string         `mapstructure:"listen_addr"`
	ReadTimeout     time.Duration  `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration  `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration  `mapstructure:"shutdown_timeout"`
	TLS             tlscert.Config `mapstructure:"tls"`
}

// SchemaConfig selects the schema source: a schema document on disk or
// a PostgreSQL DSN to introspect at startup. Filters hide tables and
// columns from the composer in either case. Background refresh polls
// the database for structural changes and only applies to DSN sources.
type SchemaConfig struct {
	File               string              `mapstructure:"file"`
	DSN                string              `mapstructure:"dsn"`
	Filters            schemafilter.Config `mapstructure:"filters"`
	RefreshEnabled     bool                `mapstructure:"refresh_enabled"`
	RefreshMinInterval time.Duration       `mapstructure:"refresh_min_interval"`
	RefreshMaxInterval time.Duration       `mapstructure:"refresh_max_interval"`
}

var defineFlagsOnce sync.Once

// Load loads configuration with the following precedence:
// 1. Command line flags
// 2. Environment variables (PGCOMPOSER_ prefix)
// 3. Config file
// 4. Default values
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	defineFlags()
	if !pflag.Parsed() {
		pflag.Parse()
	}

	cfgPath, _ := pflag.CommandLine.GetString("config")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.SetConfigName("pgcomposer")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/pgcomposer/")
		v.AddConfigPath("$HOME/.pgcomposer")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if cfgPath != "" {
			return nil, fmt.Errorf("failed to read config file %q: %w", cfgPath, err)
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Canonical keys use dot + snake_case; env vars look like
	// PGCOMPOSER_SERVER_LISTEN_ADDR.
	v.SetEnvPrefix("PGCOMPOSER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	bindChangedFlagsToViper(v)

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	))); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr must not be empty")
	}
	if c.Schema.File == "" && c.Schema.DSN == "" {
		return fmt.Errorf("one of schema.file or schema.dsn must be configured")
	}
	if c.Schema.File != "" && c.Schema.DSN != "" {
		return fmt.Errorf("schema.file and schema.dsn are mutually exclusive")
	}
	if c.Schema.RefreshEnabled && c.Schema.DSN == "" {
		return fmt.Errorf("schema.refresh_enabled requires schema.dsn")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.tls.enabled", false)
	v.SetDefault("server.tls.mode", string(tlscert.ModeFile))
	v.SetDefault("schema.file", "")
	v.SetDefault("schema.dsn", "")
	v.SetDefault("schema.refresh_enabled", false)
	v.SetDefault("schema.refresh_min_interval", 30*time.Second)
	v.SetDefault("schema.refresh_max_interval", 5*time.Minute)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func defineFlags() {
	defineFlagsOnce.Do(func() {
		pflag.String("config", "", "Path to config file")
		pflag.String("listen-addr", "", "HTTP listen address")
		pflag.String("schema-file", "", "Path to schema document (YAML or JSON)")
		pflag.String("schema-dsn", "", "PostgreSQL DSN to introspect at startup")
		pflag.String("log-level", "", "Log level (debug, info, warn, error)")
		pflag.String("log-format", "", "Log format (json, text)")
	})
}

func bindChangedFlagsToViper(v *viper.Viper) {
	flagToKey := map[string]string{
		"listen-addr": "server.listen_addr",
		"schema-file": "schema.file",
		"schema-dsn":  "schema.dsn",
		"log-level":   "logging.level",
		"log-format":  "logging.format",
	}
	pflag.CommandLine.Visit(func(f *pflag.Flag) {
		if key, ok := flagToKey[f.Name]; ok {
			v.Set(key, f.Value.String())
		}
	})
}
