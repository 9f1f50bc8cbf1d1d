package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "gymnexus.config"

const (
	ChannelBackendPostgres = "postgres"
	ChannelBackendMemory   = "memory"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type Config struct {
	BindAddr         string `yaml:"bindAddr"         split_words:"true"`
	MembershipPort   uint   `yaml:"membershipPort"   split_words:"true"`
	RegistrationPort uint   `yaml:"registrationPort" split_words:"true"`
	GatewayPort      uint   `yaml:"gatewayPort"      split_words:"true"`
	MetricsPort      uint   `yaml:"metricsPort"      split_words:"true"`
	// Upstreams used by the gateway and the chaos drills
	MembershipURL   string `yaml:"membershipUrl"   envconfig:"MEMBERSHIP_URL"`
	RegistrationURL string `yaml:"registrationUrl" envconfig:"REGISTRATION_URL"`

	DatabaseURL     string        `yaml:"databaseUrl"     envconfig:"DATABASE_URL"`
	MaxOpenConns    int           `yaml:"maxOpenConns"    split_words:"true"`
	MaxIdleConns    int           `yaml:"maxIdleConns"    split_words:"true"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime" split_words:"true"`

	ChannelBackend string        `yaml:"channelBackend" split_words:"true"`
	PollInterval   time.Duration `yaml:"pollInterval"   split_words:"true"`
	ConsumeWait    time.Duration `yaml:"consumeWait"    split_words:"true"`
	ConsumerGroup  string        `yaml:"consumerGroup"  split_words:"true"`

	// Create endpoints, requests per second with burst
	RateLimit float64 `yaml:"rateLimit" split_words:"true"`
	RateBurst int     `yaml:"rateBurst" split_words:"true"`

	Tracing         bool          `yaml:"tracing"`
	ServiceName     string        `yaml:"serviceName"     split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" split_words:"true"`
}

var defaultConfig = Config{
	BindAddr:         "0.0.0.0",
	MembershipPort:   8083,
	RegistrationPort: 8084,
	GatewayPort:      8080,
	MetricsPort:      9090,
	MembershipURL:    "http://localhost:8083",
	RegistrationURL:  "http://localhost:8084",
	MaxOpenConns:     25,
	MaxIdleConns:     5,
	ConnMaxLifetime:  5 * time.Minute,
	ChannelBackend:   ChannelBackendPostgres,
	PollInterval:     250 * time.Millisecond,
	ConsumeWait:      5 * time.Second,
	ConsumerGroup:    "gymnexus",
	RateLimit:        20,
	RateBurst:        40,
	ServiceName:      "gymnexus",
	ShutdownTimeout:  30 * time.Second,
}

// Default returns a copy of the built-in defaults.
func Default() *Config {
	cfg := defaultConfig
	return &cfg
}

// LoadConfig builds the configuration from the defaults, an optional YAML
// file and GYMNEXUS_* environment variables, in that order of precedence.
// When configFile is empty, ~/.gymnexus/gymnexus.yaml and then
// /etc/gymnexus/gymnexus.yaml are tried.
func LoadConfig(configFile string) (*Config, error) {
	cfg := Default()
	if configFile == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".gymnexus", "gymnexus.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
		if configFile == "" {
			systemPath := "/etc/gymnexus/gymnexus.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if err := envconfig.Process("gymnexus", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.ChannelBackend {
	case ChannelBackendPostgres, ChannelBackendMemory:
	default:
		return fmt.Errorf(
			"invalid channelBackend: %q (must be %q or %q)",
			c.ChannelBackend,
			ChannelBackendPostgres,
			ChannelBackendMemory,
		)
	}
	if c.ConsumeWait <= 0 {
		return errors.New("consumeWait must be positive")
	}
	if c.RateLimit < 0 || c.RateBurst < 0 {
		return errors.New("rateLimit and rateBurst must not be negative")
	}
	return nil
}

func (c *Config) MembershipAddr() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.MembershipPort)
}

func (c *Config) RegistrationAddr() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.RegistrationPort)
}

func (c *Config) GatewayAddr() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.GatewayPort)
}

func (c *Config) MetricsAddr() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.MetricsPort)
}
