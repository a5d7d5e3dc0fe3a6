// Package config loads runtime configuration for the qfin client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via flags: -c or -config.
//  3. Environment variables (QFIN_*).
//  4. Command-line flags, which override everything before them.
//
// Supported flags
//
//	-i string              base URL of the identity service
//	-d string              base URL of the data service
//	-s string              session database DSN
//	-l string              log level (debug, info, warn, error)
//	-t duration            identity request timeout
//	-data-timeout duration data request timeout (0 means none)
//
// # JSON schema
//
// Durations use timex.Duration, so they can be strings like "10s" or
// integer nanoseconds:
//
//	{
//	  "identity_service_url": "http://localhost:8080/api",
//	  "data_service_url": "http://localhost:5000/api",
//	  "identity_timeout": "10s",
//	  "data_timeout": "0s",
//	  "session_dsn": "session.db",
//	  "log_level": "info"
//	}
package config
