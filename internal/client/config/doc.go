// Package config loads runtime configuration for the client.
//
// Sources, in increasing precedence:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. An optional file selected with -c or -config: JSON, or TOML when the
//     name ends in .toml. A leading ~ is the home directory.
//  3. Command-line flags (see parseFlags).
//
// # JSON schema
//
// Durations accept strings like "60s" or integer nanoseconds:
//
//	{
//	  "api_base_url": "https://api.omg.lol",
//	  "store_driver": "sqlite",
//	  "store_dsn": "omgclient.db",
//	  "key_file": "~/.config/omgclient/key",
//	  "reload_interval": "60s",
//	  "request_timeout": "15s",
//	  "client_id": "...",
//	  "s3": {"bucket": "drafts", "region": "eu-central-1"}
//	}
//
// The same keys work in TOML, where durations must be strings and the S3
// settings go in an [s3] table.
//
// Environment variables are not read; the S3 backend still picks up the
// usual AWS environment through the SDK when no keys are configured.
package config
