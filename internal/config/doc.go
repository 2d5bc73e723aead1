// Package config loads runtime configuration for dbkeeper.
//
// Sources & precedence
//
//  1. Built-in defaults (see Default).
//  2. Optional JSON file selected with -c or -config (see parseJSON).
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-d string   data directory holding the vault and the journal
//	-b string   vault backend: file, s3 or memory
//	-H string   docker daemon host, e.g. unix:///var/run/docker.sock
//	-l string   log level: debug, info, warn, error
//
// # JSON schema
//
// Durations use timex.Duration, so "2s" and integer nanoseconds both work.
// Only keys present in the file override defaults:
//
//	{
//	  "data_dir": "/home/me/.config/dbkeeper",
//	  "vault_backend": "file",
//	  "log_format": "zap",
//	  "stop_timeout": "10s",
//	  "kdf": {"time": 3, "memory_kib": 65536, "threads": 4, "key_len": 32},
//	  "s3": {"bucket": "ops", "key": "dbkeeper/vault.json", "region": "eu-north-1"},
//	  "health": {
//	    "mysql": {"attempts": 60, "interval": "2s", "timeout": "3m", "backoff": "exponential"}
//	  }
//	}
//
// The package does not read environment variables; the AWS SDK still
// consults its own credential chain when no static keys are configured.
package config
