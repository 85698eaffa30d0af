// Package config provides configuration management for the compiler and
// dev server using Viper for flexible loading from files, environment
// variables and command-line flags.
//
// Configuration is read from .ausfc.yml with AUSFC_-prefixed environment
// variable overrides. The serialized configuration participates in cache
// key derivation, so loading must be deterministic.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Reload notification policies for hot updates.
const (
	ReloadPolicyFirst = "first"
	ReloadPolicyAll   = "all"
)

// Viper decodes through mapstructure, so every field carries both tag sets:
// mapstructure for loading, yaml for the fingerprint serialization.
type Config struct {
	Root          string           `mapstructure:"root" yaml:"root"`
	Include       []string         `mapstructure:"include" yaml:"include"`
	Exclude       []string         `mapstructure:"exclude" yaml:"exclude"`
	ReloadPolicy  string           `mapstructure:"reload_policy" yaml:"reload_policy"`
	CacheCapacity int              `mapstructure:"cache_capacity" yaml:"cache_capacity"`
	Server        ServerConfig     `mapstructure:"server" yaml:"server"`
	Style         StyleConfig      `mapstructure:"style" yaml:"style"`
	TypeScript    TypeScriptConfig `mapstructure:"typescript" yaml:"typescript"`
	LogLevel      string           `mapstructure:"log_level" yaml:"log_level"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

type StyleConfig struct {
	// PreprocessorOptions is handed to style preprocessors and engines.
	PreprocessorOptions map[string]interface{} `mapstructure:"preprocessor_options" yaml:"preprocessor_options"`
}

type TypeScriptConfig struct {
	Target                 string `mapstructure:"target" yaml:"target"`
	ExperimentalDecorators bool   `mapstructure:"experimental_decorators" yaml:"experimental_decorators"`
	Minify                 bool   `mapstructure:"minify" yaml:"minify"`
	Sourcemap              bool   `mapstructure:"sourcemap" yaml:"sourcemap"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Root:          ".",
		ReloadPolicy:  ReloadPolicyAll,
		CacheCapacity: 200,
		Server: ServerConfig{
			Host: "localhost",
			Port: 9000,
		},
		TypeScript: TypeScriptConfig{
			Target:                 "esnext",
			ExperimentalDecorators: true,
			Sourcemap:              true,
		},
		LogLevel: "info",
	}
}

// Load builds a Config from viper's merged sources over the defaults.
func Load() (*Config, error) {
	config := Default()

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Viper zeroes booleans that are absent from every source; restore the
	// defaults unless the user set them explicitly.
	if !viper.IsSet("typescript.experimental_decorators") {
		config.TypeScript.ExperimentalDecorators = true
	}
	if !viper.IsSet("typescript.sourcemap") {
		config.TypeScript.Sourcemap = true
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.ReloadPolicy {
	case "", ReloadPolicyFirst, ReloadPolicyAll:
	default:
		return fmt.Errorf("invalid reload_policy %q (want %q or %q)",
			c.ReloadPolicy, ReloadPolicyFirst, ReloadPolicyAll)
	}

	if c.CacheCapacity < 0 {
		return fmt.Errorf("cache_capacity must not be negative, got %d", c.CacheCapacity)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}

	return nil
}

// Fingerprint deterministically serializes the configuration for cache key
// derivation. yaml.Marshal emits struct fields in declaration order and
// sorts map keys, so equal configurations always produce equal bytes.
func (c *Config) Fingerprint() []byte {
	out, err := yaml.Marshal(c)
	if err != nil {
		// Config is plain data; marshaling cannot fail in practice. Fall
		// back to an empty fingerprint rather than poisoning the cache key.
		return nil
	}
	return out
}

// AbsRoot resolves the configured root directory.
func (c *Config) AbsRoot() (string, error) {
	root := c.Root
	if root == "" {
		root = "."
	}
	return filepath.Abs(root)
}
