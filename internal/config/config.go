package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Backend  BackendConfig  `yaml:"backend" envPrefix:"BACKEND_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DB_"`
	HTTP     HTTPConfig     `yaml:"http" envPrefix:"HTTP_"`
	GRPC     GRPCConfig     `yaml:"grpc" envPrefix:"GRPC_"`
	Auth     AuthConfig     `yaml:"auth" envPrefix:"AUTH_"`
	Scanner  ScannerConfig  `yaml:"scanner" envPrefix:"SCANNER_"`
	Logging  LoggingConfig  `yaml:"logging" envPrefix:"LOG_"`
}

// BackendConfig points at the ticketing REST backend.
type BackendConfig struct {
	BaseURL string        `yaml:"base_url" env:"URL"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Path string `yaml:"path" env:"PATH"` // SQLite database file path
}

// HTTPConfig contains the local web UI listener.
type HTTPConfig struct {
	Address string `yaml:"address" env:"ADDRESS"`
}

// GRPCConfig contains scan-feed server settings. An empty address disables it.
type GRPCConfig struct {
	Address string `yaml:"address" env:"ADDRESS"`
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	DeviceSecret string `yaml:"device_secret" env:"DEVICE_SECRET"` // HS256 secret for decoder device tokens
}

// ScannerConfig tunes the scan screen.
type ScannerConfig struct {
	ResetAfter time.Duration `yaml:"reset_after" env:"RESET_AFTER"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" env:"FORMAT"` // json, text
	Output string `yaml:"output" env:"OUTPUT"` // stdout, stderr
}

// envPrefix namespaces every environment variable, e.g. TICKETDESK_BACKEND_URL.
const envPrefix = "TICKETDESK_"

func defaults() *Config {
	return &Config{
		Backend:  BackendConfig{BaseURL: "http://localhost:3000", Timeout: 10 * time.Second},
		Database: DatabaseConfig{Path: "ticketdesk.db"},
		HTTP:     HTTPConfig{Address: "127.0.0.1:8080"},
		GRPC:     GRPCConfig{Address: ""},
		Scanner:  ScannerConfig{ResetAfter: 3 * time.Second},
		Logging:  LoggingConfig{Level: "info", Format: "text", Output: "stderr"},
	}
}

// Load reads defaults, then the optional YAML file at path, then environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithDefaults is like Load but fills a development device secret when the
// scan feed is enabled without one.
// WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if cfg.GRPC.Address != "" && cfg.Auth.DeviceSecret == "" {
		cfg.Auth.DeviceSecret = "dev-secret-change-me"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings every deployment needs.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		errs = append(errs, errors.New("backend.base_url is required"))
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, errors.New("backend.timeout must be positive"))
	}
	if c.HTTP.Address == "" {
		errs = append(errs, errors.New("http.address is required"))
	}
	if c.Scanner.ResetAfter <= 0 {
		errs = append(errs, errors.New("scanner.reset_after must be positive"))
	}
	if c.GRPC.Address != "" && c.Auth.DeviceSecret == "" {
		errs = append(errs, fmt.Errorf("%sAUTH_DEVICE_SECRET is not set; required when the scan feed is enabled", envPrefix))
	}
	return errors.Join(errs...)
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	grpcAddr := c.GRPC.Address
	if grpcAddr == "" {
		grpcAddr = "disabled"
	}
	return fmt.Sprintf("Config{Backend: %s, DB: %s, HTTP: %s, gRPC: %s, Auth: *** (masked) ***}",
		c.Backend.BaseURL, c.Database.Path, c.HTTP.Address, grpcAddr)
}
