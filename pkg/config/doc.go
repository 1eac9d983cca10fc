// Package config defines the service configuration: a YAML file merged with
// defaults and overridden by ARBITER_* environment variables, validated
// before the service starts. The gate's provenance token is the one setting
// with no default; startup fails without it.
package config
