package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"launchpad/storage"
)

type Config struct {
	ListenAddress  string `toml:"ListenAddress" yaml:"listen"`
	DataDir        string `toml:"DataDir" yaml:"data_dir"`
	StorageBackend string `toml:"StorageBackend" yaml:"storage_backend"`

	Index     IndexConfig     `toml:"index" yaml:"index"`
	Logging   LoggingConfig   `toml:"logging" yaml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry" yaml:"telemetry"`
	Auth      AuthConfig      `toml:"auth" yaml:"auth"`
	RateLimit RateLimitConfig `toml:"rate_limit" yaml:"rate_limit"`
	Genesis   GenesisConfig   `toml:"genesis" yaml:"genesis"`
}

// IndexConfig selects the relational event index. An empty driver
// disables it.
type IndexConfig struct {
	Driver string `toml:"Driver" yaml:"driver"`
	DSN    string `toml:"DSN" yaml:"dsn"`
}

type LoggingConfig struct {
	Env        string `toml:"Env" yaml:"env"`
	Level      string `toml:"Level" yaml:"level"`
	File       string `toml:"File" yaml:"file"`
	MaxSizeMB  int    `toml:"MaxSizeMB" yaml:"max_size_mb"`
	MaxBackups int    `toml:"MaxBackups" yaml:"max_backups"`
	MaxAgeDays int    `toml:"MaxAgeDays" yaml:"max_age_days"`
}

type TelemetryConfig struct {
	Endpoint string            `toml:"Endpoint" yaml:"endpoint"`
	Insecure bool              `toml:"Insecure" yaml:"insecure"`
	Headers  map[string]string `toml:"Headers" yaml:"headers"`
	Metrics  bool              `toml:"Metrics" yaml:"metrics"`
	Traces   bool              `toml:"Traces" yaml:"traces"`
}

// AuthConfig configures HMAC signed bearer tokens. The token subject is the
// caller address.
type AuthConfig struct {
	HMACSecret       string `toml:"HMACSecret" yaml:"hmac_secret"`
	HMACSecretEnv    string `toml:"HMACSecretEnv" yaml:"hmac_secret_env"`
	Issuer           string `toml:"Issuer" yaml:"issuer"`
	Audience         string `toml:"Audience" yaml:"audience"`
	ClockSkewSeconds int    `toml:"ClockSkewSeconds" yaml:"clock_skew_seconds"`
}

// Secret resolves the signing secret, preferring the environment.
func (a AuthConfig) Secret() string {
	if env := strings.TrimSpace(a.HMACSecretEnv); env != "" {
		if value := strings.TrimSpace(os.Getenv(env)); value != "" {
			return value
		}
	}
	return strings.TrimSpace(a.HMACSecret)
}

type RateLimitConfig struct {
	BuyPerMinute float64 `toml:"BuyPerMinute" yaml:"buy_per_minute"`
	Burst        int     `toml:"Burst" yaml:"burst"`
}

// Load reads the configuration at path. TOML is the default format; files
// ending in .yaml or .yml are decoded as YAML. A missing file is created with
// defaults.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg, err := createDefault(path)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("wrote default config to %s, edit it before starting: %w", path, err)
		}
		return cfg, nil
	} else if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if isYAML(path) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	} else {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config: unknown field %s in %s", undecoded[0], path)
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Default returns the configuration written for a fresh install.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8545"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./launchpad-data"
	}
	if strings.TrimSpace(c.StorageBackend) == "" {
		c.StorageBackend = storage.BackendLevelDB
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.RateLimit.BuyPerMinute <= 0 {
		c.RateLimit.BuyPerMinute = 120
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 10
	}
	if c.Auth.ClockSkewSeconds <= 0 {
		c.Auth.ClockSkewSeconds = 120
	}
	c.Genesis.applyDefaults()
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case storage.BackendMemory, storage.BackendLevelDB, storage.BackendBolt:
	default:
		return fmt.Errorf("config: unsupported StorageBackend %q", c.StorageBackend)
	}
	switch strings.ToLower(c.Index.Driver) {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported index Driver %q", c.Index.Driver)
	}
	if c.Index.Driver != "" && strings.TrimSpace(c.Index.DSN) == "" {
		return fmt.Errorf("config: index DSN required for driver %s", c.Index.Driver)
	}
	if c.Auth.Secret() == "" {
		return fmt.Errorf("config: auth HMACSecret or HMACSecretEnv required")
	}
	if _, err := c.Genesis.Parse(); err != nil {
		return err
	}
	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if isYAML(path) {
		enc := yaml.NewEncoder(f)
		defer enc.Close()
		return enc.Encode(cfg)
	}
	return toml.NewEncoder(f).Encode(cfg)
}
