package config

import "time"

// ApplyDefaults fills unset fields with their default values. Explicitly set
// fields are never overwritten.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = ":8090"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	// Server.WriteTimeout stays 0: a server-wide write deadline would sever
	// long-lived NDJSON streams. Non-streaming routes are bounded by the
	// per-request timeout instead.
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 120 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 30 * time.Second
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = 1 << 20
	}

	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 10000
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 5 * time.Minute
	}

	if cfg.Policy.DebounceInterval == 0 {
		cfg.Policy.DebounceInterval = 100 * time.Millisecond
	}

	if cfg.Reasoning.TimeoutHeadroom == 0 {
		cfg.Reasoning.TimeoutHeadroom = 1.5
	}
	if len(cfg.Reasoning.Tiers) == 0 {
		cfg.Reasoning.Tiers = []ReasoningTierConfig{
			{Tier: "T0", LatencyTarget: 100 * time.Millisecond, RelativeCost: 1},
			{Tier: "T1", LatencyTarget: 500 * time.Millisecond, RelativeCost: 5},
			{Tier: "T2", LatencyTarget: 2 * time.Second, RelativeCost: 25},
			{Tier: "T3", LatencyTarget: 8 * time.Second, RelativeCost: 100},
		}
	}

	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = "sqlite"
	}
	if cfg.Audit.SQLitePath == "" {
		cfg.Audit.SQLitePath = "arbiter-audit.db"
	}
	if cfg.Audit.Buffer == 0 {
		cfg.Audit.Buffer = 1000
	}
	if cfg.Audit.WriteTimeout == 0 {
		cfg.Audit.WriteTimeout = 5 * time.Second
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = "/metrics"
	}
}
