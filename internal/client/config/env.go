package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// parseEnv overlays cfg with QFIN_* variables. Unset variables leave the
// field alone. A nil environ means the process environment.
func parseEnv(cfg *Config, environ map[string]string) error {
	opts := env.Options{Environment: environ}
	if environ == nil {
		opts.Environment = envMap(os.Environ())
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func envMap(kv []string) map[string]string {
	m := make(map[string]string, len(kv))
	for _, e := range kv {
		if k, v, ok := strings.Cut(e, "="); ok {
			m[k] = v
		}
	}
	return m
}
