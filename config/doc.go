// Package config loads the service configuration.
//
// Configuration is read from a YAML file over built-in defaults, overridden
// by AISTRACK_* environment variables and validated with struct tags.
package config
