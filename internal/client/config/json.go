package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/qfin/internal/flagx"
	"github.com/dmitrijs2005/qfin/internal/timex"
)

// JSONConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields tell "absent" from "empty", so a file that sets only some keys
// leaves the rest of Config alone.
type JSONConfig struct {
	IdentityServiceURL *string         `json:"identity_service_url"`
	DataServiceURL     *string         `json:"data_service_url"`
	IdentityTimeout    *timex.Duration `json:"identity_timeout"`
	DataTimeout        *timex.Duration `json:"data_timeout"`
	SessionDSN         *string         `json:"session_dsn"`
	LogLevel           *string         `json:"log_level"`
	OtelEndpoint       *string         `json:"otel_endpoint"`
}

// parseJSON overlays cfg with the file named by -c / -config in args.
// No flag means no file.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigFilePath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var jc JSONConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.IdentityServiceURL, jc.IdentityServiceURL)
	setString(&cfg.DataServiceURL, jc.DataServiceURL)
	setString(&cfg.SessionDSN, jc.SessionDSN)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.OtelEndpoint, jc.OtelEndpoint)
	if jc.IdentityTimeout != nil {
		cfg.IdentityTimeout = jc.IdentityTimeout.Duration
	}
	if jc.DataTimeout != nil {
		cfg.DataTimeout = jc.DataTimeout.Duration
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
