package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "RESOURCE_CACHE_"

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Cache   CacheConfig   `yaml:"cache"`
	Network NetworkConfig `yaml:"network"`
	Log     LogConfig     `yaml:"log"`
	Rules   RulesConfig   `yaml:"rules"`
}

// ServerConfig contains proxy server configuration
type ServerConfig struct {
	Port  int         `yaml:"port" env:"PORT"`
	HTTPS HTTPSConfig `yaml:"https" envPrefix:"HTTPS_"`
}

// HTTPSConfig holds the CA used to intercept CONNECT requests
type HTTPSConfig struct {
	CACertFile string `yaml:"ca_cert_file" env:"CA_CERT_FILE"`
	CAKeyFile  string `yaml:"ca_key_file" env:"CA_KEY_FILE"`
}

// CacheConfig contains cache-related configuration
type CacheConfig struct {
	Folder   string `yaml:"folder" env:"FOLDER"`
	Coalesce bool   `yaml:"coalesce" env:"COALESCE"`
}

// NetworkConfig configures the HTTP engine
type NetworkConfig struct {
	Timeout   string `yaml:"timeout" env:"TIMEOUT"`
	UserAgent string `yaml:"user_agent" env:"USER_AGENT"`
}

// LogConfig configures logging output
type LogConfig struct {
	Level      string `yaml:"level" env:"LEVEL"`
	Format     string `yaml:"format" env:"FORMAT"` // "text" or "json"
	File       string `yaml:"file" env:"FILE"`
	MaxSize    int    `yaml:"max_size" env:"MAX_SIZE"` // megabytes
	MaxBackups int    `yaml:"max_backups" env:"MAX_BACKUPS"`
	Compress   bool   `yaml:"compress" env:"COMPRESS"`
}

// RulesConfig contains the rules deciding which proxied requests go through the cache
type RulesConfig struct {
	Mode  string      `yaml:"mode"` // "whitelist" or "blacklist"
	Rules []CacheRule `yaml:"rules"`
}

// CacheRule defines a caching rule
type CacheRule struct {
	BaseURI string   `yaml:"base_uri"`
	Methods []string `yaml:"methods"`
}

// Load reads configuration from a YAML file, applies environment overrides
// and fills in defaults. An empty path skips the file.
func Load(path string) (*Config, error) {
	var config Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("parsing config YAML: %w", err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if err := config.setDefaults(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Rules are left out, they only come from the file
func (c *Config) applyEnv() error {
	sections := []struct {
		prefix string
		target any
	}{
		{"SERVER_", &c.Server},
		{"CACHE_", &c.Cache},
		{"NETWORK_", &c.Network},
		{"LOG_", &c.Log},
	}
	for _, s := range sections {
		if err := env.ParseWithOptions(s.target, env.Options{Prefix: EnvPrefix + s.prefix}); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) setDefaults() error {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Cache.Folder == "" {
		folder, err := DefaultCacheFolder()
		if err != nil {
			return err
		}
		c.Cache.Folder = folder
	}
	if c.Network.Timeout == "" {
		c.Network.Timeout = "30s"
	}
	if c.Network.UserAgent == "" {
		c.Network.UserAgent = "resource-cache"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.MaxSize == 0 {
		c.Log.MaxSize = 30
	}
	if c.Rules.Mode == "" {
		c.Rules.Mode = "blacklist"
	}
	return nil
}

// DefaultCacheFolder returns the per-user directory used when no folder is configured
func DefaultCacheFolder() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locating user cache directory: %w", err)
	}
	return filepath.Join(base, "resource-cache"), nil
}

// GetTimeout parses and returns the network timeout
func (c *Config) GetTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Network.Timeout)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if (c.Server.HTTPS.CACertFile == "") != (c.Server.HTTPS.CAKeyFile == "") {
		return fmt.Errorf("https CA certificate and key must be configured together")
	}

	if c.Cache.Folder == "" {
		return fmt.Errorf("cache folder is required")
	}

	timeout, err := c.GetTimeout()
	if err != nil {
		return fmt.Errorf("invalid network timeout format: %w", err)
	}
	if timeout <= 0 {
		return fmt.Errorf("network timeout must be positive, got: %s", c.Network.Timeout)
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log format must be 'text' or 'json', got: %s", c.Log.Format)
	}

	if c.Rules.Mode != "whitelist" && c.Rules.Mode != "blacklist" {
		return fmt.Errorf("rules mode must be 'whitelist' or 'blacklist', got: %s", c.Rules.Mode)
	}

	return nil
}
