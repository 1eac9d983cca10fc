package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RetentionConfig controls audit retention pruning. Zero values disable the
// corresponding limit.
type RetentionConfig struct {
	// MaxAge removes records older than this.
	MaxAge time.Duration

	// MaxRecords caps the total number of records.
	MaxRecords int64

	// Schedule is a standard cron expression (e.g. "0 3 * * *" for daily
	// at 3 AM). Empty disables scheduled pruning.
	Schedule string
}

// Pruner removes audit records past the retention limits.
type Pruner struct {
	sink   Sink
	config RetentionConfig
	logger *slog.Logger
}

// NewPruner creates a pruner for the given sink.
func NewPruner(sink Sink, config RetentionConfig) *Pruner {
	return &Pruner{
		sink:   sink,
		config: config,
		logger: slog.Default().With("component", "audit.retention"),
	}
}

// Run performs one pruning pass and returns the number of records removed.
func (p *Pruner) Run(ctx context.Context) (int64, error) {
	cutoff := time.Time{}
	if p.config.MaxAge > 0 {
		cutoff = time.Now().UTC().Add(-p.config.MaxAge)
	}

	pruned, err := p.sink.Prune(ctx, cutoff, p.config.MaxRecords)
	if err != nil {
		return pruned, fmt.Errorf("retention pruning failed: %w", err)
	}

	if pruned > 0 {
		p.logger.Info("audit records pruned",
			"pruned", pruned,
			"max_age", p.config.MaxAge.String(),
			"max_records", p.config.MaxRecords,
		)
	}
	return pruned, nil
}

// Scheduler runs the pruner on the configured cron schedule.
type Scheduler struct {
	pruner  *Pruner
	cron    *cron.Cron
	mu      sync.Mutex
	running bool
	logger  *slog.Logger
}

// NewScheduler creates a retention scheduler.
func NewScheduler(pruner *Pruner) *Scheduler {
	return &Scheduler{
		pruner: pruner,
		cron:   cron.New(),
		logger: slog.Default().With("component", "audit.scheduler"),
	}
}

// Start begins scheduled pruning. If no schedule is configured it does
// nothing. The scheduler stops when the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule := s.pruner.config.Schedule
	if schedule == "" {
		s.logger.Info("retention schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}

	_, err := s.cron.AddFunc(schedule, func() {
		if _, err := s.pruner.Run(ctx); err != nil {
			s.logger.Error("scheduled pruning failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("retention scheduler started",
		"schedule", schedule,
		"max_age", s.pruner.config.MaxAge.String(),
		"max_records", s.pruner.config.MaxRecords,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.running = false

	s.logger.Info("retention scheduler stopped")
}
