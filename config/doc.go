// Package config loads the application configuration from YAML or TOML and
// the environment, failing fast when the database engine is incomplete.
package config
