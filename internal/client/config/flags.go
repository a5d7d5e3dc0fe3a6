package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/qfin/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// args are filtered to the flags handled here with flagx.FilterArgs, so
// flags meant for other components do not break parsing.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-i", "-d", "-s", "-l", "-t", "-data-timeout"})

	fs := flag.NewFlagSet("qfin", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.IdentityServiceURL, "i", cfg.IdentityServiceURL, "identity service base URL")
	fs.StringVar(&cfg.DataServiceURL, "d", cfg.DataServiceURL, "data service base URL")
	fs.StringVar(&cfg.SessionDSN, "s", cfg.SessionDSN, "session database DSN")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.DurationVar(&cfg.IdentityTimeout, "t", cfg.IdentityTimeout, "identity request timeout")
	fs.DurationVar(&cfg.DataTimeout, "data-timeout", cfg.DataTimeout, "data request timeout (0 means none)")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
