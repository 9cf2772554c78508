// Package config loads, normalizes, and validates glossmerge configuration
// from TOML. Defaults live in defaults.go; Load layers a config file over
// them, expands paths, and validates the result so downstream packages can
// assume a usable configuration.
package config
