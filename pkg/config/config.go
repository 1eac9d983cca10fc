package config

import (
	"time"
)

// Config is the root configuration for the arbiter service.
type Config struct {
	// Server configures the HTTP surface.
	Server ServerConfig `yaml:"server"`

	// Gate configures the compliance gate.
	Gate GateConfig `yaml:"gate"`

	// Cache configures the decision cache.
	Cache CacheConfig `yaml:"cache"`

	// Policy configures policy loading and the registry.
	Policy PolicyConfig `yaml:"policy"`

	// Reasoning configures the reasoning tier endpoints.
	Reasoning ReasoningConfig `yaml:"reasoning"`

	// Audit configures the audit sink.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains the HTTP server settings.
type ServerConfig struct {
	// ListenAddress is the address to bind (e.g. ":8090").
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response. It
	// defaults to 0 (no deadline) because it applies to the whole
	// connection and would cut off long-lived evaluation streams; set it
	// only on deployments that do not use /v1/evaluate/stream.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// RequestTimeout bounds a single evaluation request end to end.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MaxHeaderBytes limits request header size.
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// GateConfig contains the compliance gate settings.
type GateConfig struct {
	// ProvenanceToken is the system-wide reference value every request and
	// policy must carry. The service refuses to start without one.
	ProvenanceToken string `yaml:"provenance_token"`
}

// CacheConfig contains the decision cache settings.
type CacheConfig struct {
	// Enabled turns the decision cache on.
	Enabled bool `yaml:"enabled"`

	// MaxEntries is the maximum number of simultaneously live entries.
	MaxEntries int `yaml:"max_entries"`

	// TTL is the entry time-to-live.
	TTL time.Duration `yaml:"ttl"`

	// CleanupInterval is how often expired entries are swept.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// PolicyConfig contains policy loading settings.
type PolicyConfig struct {
	// Dir is the directory of YAML policy documents loaded at startup.
	// Empty disables directory loading.
	Dir string `yaml:"dir"`

	// Watch reloads the directory on change.
	Watch bool `yaml:"watch"`

	// DebounceInterval is the quiet period before a reload fires.
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// RegistryPath is the SQLite file persisting policies loaded over the
	// API. Empty disables persistence.
	RegistryPath string `yaml:"registry_path"`
}

// ReasoningConfig contains the reasoning tier client settings.
type ReasoningConfig struct {
	// TimeoutHeadroom scales each tier's latency target into its call
	// timeout (e.g. 1.5 gives a 12s timeout for an 8s target).
	TimeoutHeadroom float64 `yaml:"timeout_headroom"`

	// Tiers declares the four tier endpoints T0..T3.
	Tiers []ReasoningTierConfig `yaml:"tiers"`
}

// ReasoningTierConfig declares one reasoning tier endpoint.
type ReasoningTierConfig struct {
	// Tier is the tier name (T0..T3).
	Tier string `yaml:"tier"`

	// URL is the tier's evaluation endpoint.
	URL string `yaml:"url"`

	// LatencyTarget is the tier's declared latency target.
	LatencyTarget time.Duration `yaml:"latency_target"`

	// RelativeCost is the tier's declared relative cost.
	RelativeCost float64 `yaml:"relative_cost"`
}

// AuditConfig contains the audit sink settings.
type AuditConfig struct {
	// Backend selects the sink implementation ("sqlite" or "memory").
	Backend string `yaml:"backend"`

	// SQLitePath is the audit database file for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path"`

	// Buffer is the async write buffer size.
	Buffer int `yaml:"buffer"`

	// WriteTimeout bounds a single storage write.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// Retention configures scheduled pruning.
	Retention RetentionConfig `yaml:"retention"`
}

// RetentionConfig contains audit retention settings.
type RetentionConfig struct {
	// MaxAge removes records older than this (0 = keep forever).
	MaxAge time.Duration `yaml:"max_age"`

	// MaxRecords caps the total number of records (0 = unlimited).
	MaxRecords int64 `yaml:"max_records"`

	// Schedule is a cron expression for the pruning job.
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig contains observability settings.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	Format string `yaml:"format"`

	// AddSource includes file and line number in logs.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled exposes the metrics endpoint.
	Enabled bool `yaml:"enabled"`

	// Path is the metrics endpoint path.
	Path string `yaml:"path"`
}
