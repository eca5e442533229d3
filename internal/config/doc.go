// Package config loads, normalizes, and validates stemsplit configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads .env files, and honours environment
// fallbacks such as STEMSPLIT_UPLOAD_ACCESS_KEY. The Config type centralizes
// every knob the CLI and the interactive surface need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
