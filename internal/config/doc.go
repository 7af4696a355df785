// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// Every field is optional; missing values fall back to the defaults in defaults.go.
package config
