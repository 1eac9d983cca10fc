package config

import (
	"fmt"

	"arbiter-hq/arbiter/pkg/tiers"
)

// Validate checks the configuration for consistency. It is called after
// defaults and again after environment overrides.
func Validate(cfg *Config) error {
	if cfg.Gate.ProvenanceToken == "" {
		return fmt.Errorf("gate.provenance_token is required")
	}

	if cfg.Server.ListenAddress == "" {
		return fmt.Errorf("server.listen_address is required")
	}

	if cfg.Cache.Enabled && cfg.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be positive when the cache is enabled")
	}

	if cfg.Reasoning.TimeoutHeadroom < 1.0 {
		return fmt.Errorf("reasoning.timeout_headroom must be at least 1.0, got %v", cfg.Reasoning.TimeoutHeadroom)
	}

	seen := make(map[string]bool, len(cfg.Reasoning.Tiers))
	for i, tc := range cfg.Reasoning.Tiers {
		if _, err := tiers.Parse(tc.Tier); err != nil {
			return fmt.Errorf("reasoning.tiers[%d]: %w", i, err)
		}
		if seen[tc.Tier] {
			return fmt.Errorf("reasoning.tiers: duplicate tier %s", tc.Tier)
		}
		seen[tc.Tier] = true
		if tc.LatencyTarget <= 0 {
			return fmt.Errorf("reasoning.tiers[%d]: latency_target must be positive", i)
		}
	}

	switch cfg.Audit.Backend {
	case "sqlite":
		if cfg.Audit.SQLitePath == "" {
			return fmt.Errorf("audit.sqlite_path is required for the sqlite backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown audit backend %q", cfg.Audit.Backend)
	}

	return nil
}
