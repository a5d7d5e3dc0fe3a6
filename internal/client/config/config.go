package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds runtime settings for the qfin client.
type Config struct {
	IdentityServiceURL string        `env:"QFIN_IDENTITY_URL"`
	DataServiceURL     string        `env:"QFIN_DATA_URL"`
	IdentityTimeout    time.Duration `env:"QFIN_IDENTITY_TIMEOUT"`
	DataTimeout        time.Duration `env:"QFIN_DATA_TIMEOUT"`
	SessionDSN         string        `env:"QFIN_SESSION_DSN"`
	LogLevel           string        `env:"QFIN_LOG_LEVEL"`
	// OtelEndpoint enables trace export when set. It is the full URL of an
	// OTLP/HTTP collector, e.g. http://localhost:4318.
	OtelEndpoint string `env:"QFIN_OTEL_ENDPOINT"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.IdentityServiceURL = "http://localhost:8080/api"
	c.DataServiceURL = "http://localhost:5000/api"
	c.IdentityTimeout = 10 * time.Second
	c.DataTimeout = 0
	c.SessionDSN = "session.db"
	c.LogLevel = "info"
	c.OtelEndpoint = ""
}

// Validate checks the values that would otherwise fail late.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{
		"identity service url": c.IdentityServiceURL,
		"data service url":     c.DataServiceURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid %s %q", name, raw)
		}
	}
	if c.OtelEndpoint != "" {
		u, err := url.Parse(c.OtelEndpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid otel endpoint %q: want a URL such as http://localhost:4318", c.OtelEndpoint)
		}
	}
	if c.IdentityTimeout < 0 || c.DataTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.SessionDSN == "" {
		return fmt.Errorf("session dsn is empty")
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig(args []string, environ map[string]string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, environ); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
