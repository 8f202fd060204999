// Package config loads and validates the daemon configuration. Settings come
// from a TOML file with environment variable overrides (DEBRIEF_ prefix)
// layered on top, so containerized deployments can run without a config file.
package config
