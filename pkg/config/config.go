// Package config loads courtflow configuration from a YAML file with
// ${VAR} environment expansion.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete courtflow configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Occupancy OccupancyConfig `yaml:"occupancy"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// DatabaseConfig configures the database connection.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// AuthConfig configures identity resolution.
type AuthConfig struct {
	JWT JWTAuthConfig `yaml:"jwt"`
	QR  QRAuthConfig  `yaml:"qr"`
}

// JWTAuthConfig configures the bearer-token resolver.
type JWTAuthConfig struct {
	// Secret is the HMAC signing key. Required unless QR-only operation
	// is intended.
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// QRAuthConfig configures the QR token resolver.
type QRAuthConfig struct {
	Enabled bool `yaml:"enabled"`
}

// OccupancyConfig configures the occupancy core.
type OccupancyConfig struct {
	// SessionTimeout is how long a session may stay active before the
	// expiry sweep closes it.
	SessionTimeout time.Duration `yaml:"session_timeout"`

	// SweepInterval is the period of the background expiry sweep.
	// Zero disables the routine; operations still sweep inline.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// Load reads configuration from a file.
// The path is expected to come from command line arguments, controlled by the operator.
func Load(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// applyDefaults applies default values to the config.
func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Occupancy.SessionTimeout == 0 {
		cfg.Occupancy.SessionTimeout = 2 * time.Hour
	}
}
