package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"arbiter-hq/arbiter/pkg/audit"
	"arbiter-hq/arbiter/pkg/cache"
	"arbiter-hq/arbiter/pkg/cli"
	"arbiter-hq/arbiter/pkg/config"
	"arbiter-hq/arbiter/pkg/gate"
	"arbiter-hq/arbiter/pkg/orchestrator"
	"arbiter-hq/arbiter/pkg/policy/compiled"
	"arbiter-hq/arbiter/pkg/policy/source"
	"arbiter-hq/arbiter/pkg/reasoning"
	"arbiter-hq/arbiter/pkg/server"
	"arbiter-hq/arbiter/pkg/telemetry/health"
	"arbiter-hq/arbiter/pkg/telemetry/logging"
	"arbiter-hq/arbiter/pkg/telemetry/metrics"
	"arbiter-hq/arbiter/pkg/tiers"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Arbiter evaluation service",
	Long: `Start the Arbiter evaluation service with the specified configuration.

The server listens on the configured address and evaluates policy requests
through the compliance gate, decision cache, compiled rule engine, and the
reasoning tier client, recording every decision in the audit trail.

Examples:
  # Start with default config
  arbiter run

  # Start with custom config
  arbiter run --config /etc/arbiter/config.yaml

  # Override listen address
  arbiter run --listen 0.0.0.0:8090

  # Validate config without starting server
  arbiter run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnv(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.Setup(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Arbiter v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	// Cancelled on SIGINT/SIGTERM; stops the watcher and retention scheduler
	// alongside the server.
	ctx := cli.SetupSignalHandler()

	// Compliance gate and compiled engine share the reference token.
	complianceGate, err := gate.New(cfg.Gate.ProvenanceToken)
	if err != nil {
		return cli.NewConfigError("gate.provenance_token", err.Error())
	}
	engine := compiled.New(cfg.Gate.ProvenanceToken, logger)

	// Policy registry: replay persisted policies, then load the directory so
	// files win over stale registry rows.
	var store *source.Store
	if cfg.Policy.RegistryPath != "" {
		store, err = source.NewStore(source.StoreConfig{DBPath: cfg.Policy.RegistryPath})
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to open policy registry: %w", err))
		}
		defer store.Close()

		persisted, err := store.LoadAll(ctx)
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to load policy registry: %w", err))
		}
		for _, p := range persisted {
			if err := engine.Load(p); err != nil {
				slog.Warn("skipping persisted policy", "policy_id", p.ID, "error", err)
			}
		}
	}

	if cfg.Policy.Dir != "" {
		if err := loadPolicyDir(engine, cfg.Policy.Dir); err != nil {
			return cli.NewCommandError("run", err)
		}

		if cfg.Policy.Watch {
			watcher, err := source.NewWatcher(&source.WatcherConfig{
				Path:             cfg.Policy.Dir,
				DebounceInterval: cfg.Policy.DebounceInterval,
			}, logger)
			if err != nil {
				return cli.NewCommandError("run", fmt.Errorf("failed to create policy watcher: %w", err))
			}
			go func() {
				if err := watcher.Watch(ctx, func() error {
					return loadPolicyDir(engine, cfg.Policy.Dir)
				}); err != nil {
					slog.Error("policy watcher stopped", "error", err)
				}
			}()
			defer watcher.Stop()
		}
	}
	fmt.Printf("✓ Policies loaded (%d policies)\n", len(engine.List()))

	// Decision cache (optional)
	var decisionCache *cache.DecisionCache
	if cfg.Cache.Enabled {
		decisionCache = cache.New(cache.Config{
			MaxEntries:      cfg.Cache.MaxEntries,
			TTL:             cfg.Cache.TTL,
			CleanupInterval: cfg.Cache.CleanupInterval,
		})
		defer decisionCache.Close()
	}

	// Reasoning tier client. Each tier's call timeout is its declared latency
	// target scaled by the configured headroom.
	endpoints := make(map[tiers.Tier]reasoning.Endpoint, len(cfg.Reasoning.Tiers))
	tierConfigs := make([]tiers.Config, 0, len(cfg.Reasoning.Tiers))
	for _, tc := range cfg.Reasoning.Tiers {
		tier, err := tiers.Parse(tc.Tier)
		if err != nil {
			return cli.NewConfigError("reasoning.tiers", err.Error())
		}
		endpoints[tier] = reasoning.Endpoint{
			URL:     tc.URL,
			Timeout: time.Duration(float64(tc.LatencyTarget) * cfg.Reasoning.TimeoutHeadroom),
		}
		tierConfigs = append(tierConfigs, tiers.Config{
			Tier:          tier,
			LatencyTarget: tc.LatencyTarget,
			RelativeCost:  tc.RelativeCost,
		})
	}
	reasoningClient, err := reasoning.NewHTTPClient(reasoning.HTTPConfig{Endpoints: endpoints}, logger)
	if err != nil {
		return cli.NewConfigError("reasoning.tiers", err.Error())
	}
	defer reasoningClient.Close()

	// Audit trail
	var sink audit.Sink
	switch cfg.Audit.Backend {
	case "sqlite":
		sink, err = audit.NewSQLiteSink(&audit.SQLiteConfig{Path: cfg.Audit.SQLitePath})
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to open audit database: %w", err))
		}
	case "memory":
		sink = audit.NewMemorySink()
	default:
		return cli.NewConfigError("audit.backend", fmt.Sprintf("unsupported backend: %s", cfg.Audit.Backend))
	}
	defer sink.Close()

	writer := audit.NewWriter(sink, &audit.WriterConfig{
		Buffer:       cfg.Audit.Buffer,
		WriteTimeout: cfg.Audit.WriteTimeout,
	})
	defer writer.Close()

	if cfg.Audit.Retention.Schedule != "" {
		pruner := audit.NewPruner(sink, audit.RetentionConfig{
			MaxAge:     cfg.Audit.Retention.MaxAge,
			MaxRecords: cfg.Audit.Retention.MaxRecords,
			Schedule:   cfg.Audit.Retention.Schedule,
		})
		scheduler := audit.NewScheduler(pruner)
		if err := scheduler.Start(ctx); err != nil {
			slog.Warn("failed to start retention scheduler", "error", err)
		} else {
			defer scheduler.Stop()
		}
	}
	fmt.Printf("✓ Audit trail initialized (%s)\n", cfg.Audit.Backend)

	// Telemetry
	registry := metrics.NewRegistry()
	var evalMetrics *metrics.EvaluationMetrics
	if cfg.Telemetry.Metrics.Enabled {
		evalMetrics = metrics.NewEvaluationMetrics(registry)
	}

	checker := health.New(5 * time.Second)
	checker.Register("audit", sink.Ping)
	if store != nil {
		checker.Register("policy_registry", store.Ping)
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Gate:        complianceGate,
		Cache:       decisionCache,
		Engine:      engine,
		Reasoning:   reasoningClient,
		Audit:       writer,
		Metrics:     evalMetrics,
		TierConfigs: tierConfigs,
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	srv := server.New(&cfg.Server, &cfg.Telemetry.Metrics, server.Dependencies{
		Orchestrator: orch,
		Engine:       engine,
		Store:        store,
		Cache:        decisionCache,
		AuditSink:    sink,
		Health:       checker,
		Registry:     registry,
	})

	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/health\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Start blocks until a signal, context cancellation, or listener error.
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Println("✓ Server stopped")
	return nil
}

// loadPolicyDir loads every policy document in dir into the engine. Load
// replaces by ID, so reloading after a change is a plain re-walk.
func loadPolicyDir(engine *compiled.Engine, dir string) error {
	policies, err := source.LoadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to load policy directory: %w", err)
	}
	for _, p := range policies {
		if err := engine.Load(p); err != nil {
			return fmt.Errorf("failed to load policy %q: %w", p.ID, err)
		}
	}
	return nil
}
