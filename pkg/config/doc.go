// Package config loads YAML configuration with ${VAR} environment expansion
// and duration-string parsing.
package config
