// Package config provides centralized configuration management for the
// license gate service.
//
// # Configuration Sources
//
// Configuration is layered in the following order, later sources winning:
//
//	1. Default values
//	2. A YAML configuration file
//	3. Environment variables
//
// The file is taken from LICENSEGATE_CONFIG when set, otherwise the first
// of licensegate.yaml, config.yaml or configs/licensegate.yaml that exists.
//
// # Environment Variables
//
// All environment variables follow the pattern LICENSEGATE_<SECTION>_<KEY>:
//
//	LICENSEGATE_SERVER_PORT=8080
//	LICENSEGATE_LOGGING_LEVEL=debug
//	LICENSEGATE_LICENSE_SECRET_HEX=000102030405060708090a0b0c0d0e0f
//	LICENSEGATE_LICENSE_SESSION_TTL=30m
//	LICENSEGATE_TELEMETRY_TRACE_EXPORTER=stdout
//
// # Validation
//
// Load rejects out-of-range ports and timeouts, a secret_hex that does not
// decode to a 16-byte key, and unknown trace exporters. Logging format is
// always forced to json.
//
// # Testing
//
// Use Default() for a configuration that needs no environment or files.
package config
