package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const minimalYAML = `
gate:
  provenance_token: test-token
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ListenAddress != ":8090" {
		t.Errorf("ListenAddress = %q, want :8090", cfg.Server.ListenAddress)
	}
	if cfg.Cache.MaxEntries != 10000 {
		t.Errorf("MaxEntries = %d, want 10000", cfg.Cache.MaxEntries)
	}
	if cfg.Reasoning.TimeoutHeadroom != 1.5 {
		t.Errorf("TimeoutHeadroom = %v, want 1.5", cfg.Reasoning.TimeoutHeadroom)
	}
	if len(cfg.Reasoning.Tiers) != 4 {
		t.Fatalf("got %d tiers, want 4", len(cfg.Reasoning.Tiers))
	}
	if cfg.Reasoning.Tiers[3].LatencyTarget != 8*time.Second {
		t.Errorf("T3 LatencyTarget = %v, want 8s", cfg.Reasoning.Tiers[3].LatencyTarget)
	}
	if cfg.Audit.Backend != "sqlite" {
		t.Errorf("Audit.Backend = %q, want sqlite", cfg.Audit.Backend)
	}
}

func TestLoad_ExplicitValuesKept(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
gate:
  provenance_token: test-token
server:
  listen_address: ":9000"
cache:
  enabled: true
  max_entries: 500
  ttl: 30s
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ListenAddress != ":9000" {
		t.Errorf("ListenAddress = %q, want :9000", cfg.Server.ListenAddress)
	}
	if !cfg.Cache.Enabled || cfg.Cache.MaxEntries != 500 || cfg.Cache.TTL != 30*time.Second {
		t.Errorf("cache config not honored: %+v", cfg.Cache)
	}
}

func TestLoad_MissingProvenanceToken(t *testing.T) {
	if _, err := Load(writeConfig(t, "server:\n  listen_address: \":8090\"\n")); err == nil {
		t.Fatal("Load() accepted a configuration without a provenance token")
	}
}

func TestLoadWithEnv_Overrides(t *testing.T) {
	t.Setenv("ARBITER_SERVER_LISTEN_ADDRESS", ":7777")
	t.Setenv("ARBITER_GATE_PROVENANCE_TOKEN", "env-token")
	t.Setenv("ARBITER_CACHE_ENABLED", "true")
	t.Setenv("ARBITER_REASONING_T3_URL", "http://t3.internal/evaluate")

	cfg, err := LoadWithEnv(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("LoadWithEnv() error = %v", err)
	}

	if cfg.Server.ListenAddress != ":7777" {
		t.Errorf("ListenAddress = %q, want :7777", cfg.Server.ListenAddress)
	}
	if cfg.Gate.ProvenanceToken != "env-token" {
		t.Errorf("ProvenanceToken = %q, want env-token", cfg.Gate.ProvenanceToken)
	}
	if !cfg.Cache.Enabled {
		t.Error("Cache.Enabled not overridden")
	}
	if cfg.Reasoning.Tiers[3].URL != "http://t3.internal/evaluate" {
		t.Errorf("T3 URL = %q, not overridden", cfg.Reasoning.Tiers[3].URL)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty provenance token", func(c *Config) { c.Gate.ProvenanceToken = "" }},
		{"unknown audit backend", func(c *Config) { c.Audit.Backend = "postgres" }},
		{"unknown tier name", func(c *Config) { c.Reasoning.Tiers[0].Tier = "T9" }},
		{"duplicate tier", func(c *Config) { c.Reasoning.Tiers[1].Tier = "T0" }},
		{"headroom below 1", func(c *Config) { c.Reasoning.TimeoutHeadroom = 0.5 }},
		{"zero latency target", func(c *Config) { c.Reasoning.Tiers[2].LatencyTarget = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			ApplyDefaults(&cfg)
			cfg.Gate.ProvenanceToken = "test-token"
			tt.mutate(&cfg)
			if err := Validate(&cfg); err == nil {
				t.Error("Validate() accepted an invalid configuration")
			}
		})
	}
}
