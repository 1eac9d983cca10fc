package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file, applies defaults, and validates
// the result. Environment variables are not consulted; use LoadWithEnv for
// that.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadWithEnv loads configuration from a YAML file and applies environment
// variable overrides. Variables follow the convention ARBITER_SECTION_FIELD
// (e.g. ARBITER_SERVER_LISTEN_ADDRESS) and always take precedence over the
// file.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

// Default returns the default configuration with no file involved. The
// provenance token still has to come from the environment.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("ARBITER_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("ARBITER_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("ARBITER_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if val := os.Getenv("ARBITER_SERVER_REQUEST_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.RequestTimeout = d
		}
	}

	if val := os.Getenv("ARBITER_GATE_PROVENANCE_TOKEN"); val != "" {
		cfg.Gate.ProvenanceToken = val
	}

	if val := os.Getenv("ARBITER_CACHE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Cache.Enabled = b
		}
	}
	if val := os.Getenv("ARBITER_CACHE_MAX_ENTRIES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Cache.MaxEntries = i
		}
	}
	if val := os.Getenv("ARBITER_CACHE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Cache.TTL = d
		}
	}

	if val := os.Getenv("ARBITER_POLICY_DIR"); val != "" {
		cfg.Policy.Dir = val
	}
	if val := os.Getenv("ARBITER_POLICY_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Policy.Watch = b
		}
	}
	if val := os.Getenv("ARBITER_POLICY_REGISTRY_PATH"); val != "" {
		cfg.Policy.RegistryPath = val
	}

	if val := os.Getenv("ARBITER_REASONING_TIMEOUT_HEADROOM"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Reasoning.TimeoutHeadroom = f
		}
	}
	for i := range cfg.Reasoning.Tiers {
		if val := os.Getenv("ARBITER_REASONING_" + cfg.Reasoning.Tiers[i].Tier + "_URL"); val != "" {
			cfg.Reasoning.Tiers[i].URL = val
		}
	}

	if val := os.Getenv("ARBITER_AUDIT_BACKEND"); val != "" {
		cfg.Audit.Backend = val
	}
	if val := os.Getenv("ARBITER_AUDIT_SQLITE_PATH"); val != "" {
		cfg.Audit.SQLitePath = val
	}
	if val := os.Getenv("ARBITER_AUDIT_RETENTION_SCHEDULE"); val != "" {
		cfg.Audit.Retention.Schedule = val
	}

	if val := os.Getenv("ARBITER_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("ARBITER_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("ARBITER_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
}
