// Package config loads runtime configuration for the CreditKeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "500ms" or
// integer nanoseconds:
//
//	{
//	  "database_dsn": "credits.db",
//	  "store_endpoint_addr": "127.0.0.1:50061",
//	  "validation_enabled": true,
//	  "poll_interval": "500ms",
//	  "poll_budget": "5s",
//	  "s3_bucket": "audit"
//	}
package config
