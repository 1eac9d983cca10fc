package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"arbiter-hq/arbiter/pkg/audit"
	"arbiter-hq/arbiter/pkg/cache"
	"arbiter-hq/arbiter/pkg/evaluation"
	"arbiter-hq/arbiter/pkg/gate"
	"arbiter-hq/arbiter/pkg/policy/compiled"
	"arbiter-hq/arbiter/pkg/reasoning"
	"arbiter-hq/arbiter/pkg/telemetry/metrics"
	"arbiter-hq/arbiter/pkg/tiers"
)

// compiledComplexityLimit is the highest complexity the compiled path accepts.
const compiledComplexityLimit = 0.7

// Config wires the orchestrator's collaborators. Gate, Engine, Reasoning and
// Audit are required; Cache and Metrics may be nil (nil cache means every
// lookup misses).
type Config struct {
	Gate      *gate.Gate
	Cache     *cache.DecisionCache
	Engine    *compiled.Engine
	Reasoning reasoning.Client
	Audit     *audit.Writer
	Metrics   *metrics.EvaluationMetrics

	// TierConfigs declares the latency target and relative cost per tier.
	// Defaults to tiers.DefaultConfigs when empty.
	TierConfigs []tiers.Config
}

// Orchestrator composes the gate, cache, engines and audit sink into the
// evaluation pipeline. It is constructed once at process start and shared by
// reference; each Evaluate call is independent and holds no orchestrator-wide
// lock.
type Orchestrator struct {
	gate      *gate.Gate
	cache     *cache.DecisionCache
	engine    *compiled.Engine
	reasoning reasoning.Client
	audit     *audit.Writer
	metrics   *metrics.EvaluationMetrics
	tierCfgs  []tiers.Config
	stats     *Stats
	logger    *slog.Logger
}

// New creates an orchestrator from the configuration.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Gate == nil {
		return nil, fmt.Errorf("gate is required")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("compiled engine is required")
	}
	if cfg.Reasoning == nil {
		return nil, fmt.Errorf("reasoning client is required")
	}
	if cfg.Audit == nil {
		return nil, fmt.Errorf("audit writer is required")
	}

	tierCfgs := cfg.TierConfigs
	if len(tierCfgs) == 0 {
		tierCfgs = tiers.DefaultConfigs()
	}

	return &Orchestrator{
		gate:      cfg.Gate,
		cache:     cfg.Cache,
		engine:    cfg.Engine,
		reasoning: cfg.Reasoning,
		audit:     cfg.Audit,
		metrics:   cfg.Metrics,
		tierCfgs:  tierCfgs,
		stats:     NewStats(),
		logger:    slog.Default().With("component", "orchestrator"),
	}, nil
}

// Stats returns the aggregate evaluation statistics.
func (o *Orchestrator) Stats() Snapshot {
	return o.stats.Snapshot()
}

// TierConfigs returns the declared tier configurations.
func (o *Orchestrator) TierConfigs() []tiers.Config {
	return o.tierCfgs
}

// Evaluate runs one request through the pipeline: gate, cache lookup,
// compiled or reasoning path, cache store, audit write, response.
//
// Gate rejections are not errors: they produce a deny decision with
// confidence 1.0 without touching the cache or either engine. A policy absent
// from the compiled table falls back to the reasoning path. A failed
// reasoning call returns *UnavailableError; a compiled engine fault returns
// *compiled.FaultError. Every outcome, errors included, is audited before it
// is returned.
func (o *Orchestrator) Evaluate(ctx context.Context, req *evaluation.PolicyRequest, cc evaluation.ConstitutionalContext) (*evaluation.Decision, error) {
	start := time.Now()

	validation := o.gate.Validate(cc)
	if !validation.IsCompliant {
		return o.denied(ctx, req, validation, start)
	}

	// Cache lookup. Key derivation failure degrades to a forced miss;
	// the cache is best-effort and must never block evaluation.
	cacheKey := ""
	if req.CacheEnabled && o.cache != nil {
		key, err := cache.Key(req.PolicyID, req.Input)
		if err != nil {
			o.logger.Warn("cache key derivation failed, forcing miss",
				"request_id", req.ID,
				"error", err,
			)
		} else {
			cacheKey = key
			if hit, ok := o.cache.Get(key); ok {
				return o.fromCache(ctx, req, hit, validation, start)
			}
		}
	}
	if req.CacheEnabled && o.cache != nil {
		o.stats.RecordCacheMiss()
		if o.metrics != nil {
			o.metrics.RecordCacheMiss()
		}
	}

	decision, err := o.dispatch(ctx, req, validation, start)
	if err != nil {
		o.stats.RecordFailure()
		o.writeAudit(ctx, req, nil, err, time.Since(start))
		return nil, err
	}

	if req.CacheEnabled && o.cache != nil && cacheKey != "" {
		o.cache.Put(cacheKey, decision)
	}

	if err := o.writeAudit(ctx, req, decision, nil, decision.Latency); err != nil {
		return nil, err
	}

	o.observe(req, decision)
	return decision, nil
}

// dispatch runs the eligibility test and the selected engine.
func (o *Orchestrator) dispatch(ctx context.Context, req *evaluation.PolicyRequest, validation evaluation.ConstitutionalValidation, start time.Time) (*evaluation.Decision, error) {
	eligible := !req.RequiresReasoning &&
		req.Complexity <= compiledComplexityLimit &&
		o.engine.Loaded(req.PolicyID)

	if eligible {
		decision, err := o.evaluateCompiled(req, validation, start)
		var notFound *compiled.NotFoundError
		if err == nil {
			return decision, nil
		}
		if !errors.As(err, &notFound) {
			return nil, err
		}
		// The policy was unloaded between the eligibility check and the
		// evaluation. Not compiled yet means not eligible, not an error.
	}

	return o.evaluateReasoning(ctx, req, validation, start)
}

func (o *Orchestrator) evaluateCompiled(req *evaluation.PolicyRequest, validation evaluation.ConstitutionalValidation, start time.Time) (*evaluation.Decision, error) {
	result, err := o.engine.Evaluate(req.PolicyID, req.Input)
	if err != nil {
		return nil, err
	}

	return &evaluation.Decision{
		RequestID:   req.ID,
		PolicyID:    req.PolicyID,
		Value:       result.Value,
		Confidence:  1.0,
		Reasons:     result.Reasons,
		Engine:      evaluation.CompiledOutcome(),
		Latency:     time.Since(start),
		Validation:  validation,
		CacheStatus: evaluation.CacheMiss,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (o *Orchestrator) evaluateReasoning(ctx context.Context, req *evaluation.PolicyRequest, validation evaluation.ConstitutionalValidation, start time.Time) (*evaluation.Decision, error) {
	tier := tiers.Select(req.Category, req.Complexity, req.Urgency)
	if o.metrics != nil {
		o.metrics.RecordTierSelection(tier.String())
	}

	result, err := o.reasoning.Evaluate(ctx, tier, &reasoning.Request{
		RequestID:     req.ID,
		PolicyID:      req.PolicyID,
		Category:      req.Category,
		PromptContext: req.Metadata["prompt_context"],
		Input:         req.Input,
	})
	if err != nil {
		if o.metrics != nil {
			o.metrics.RecordReasoningFailure(tier.String())
		}
		return nil, &UnavailableError{Tier: tier.String(), Cause: err}
	}

	return &evaluation.Decision{
		RequestID:   req.ID,
		PolicyID:    req.PolicyID,
		Value:       result.Value,
		Confidence:  result.Confidence,
		Reasons:     result.Reasoning,
		Engine:      evaluation.ReasoningOutcome(tier.String()),
		Latency:     time.Since(start),
		Validation:  validation,
		CacheStatus: evaluation.CacheMiss,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// denied handles a gate rejection: a deny decision with confidence 1.0,
// audited, with the cache and both engines untouched.
func (o *Orchestrator) denied(ctx context.Context, req *evaluation.PolicyRequest, validation evaluation.ConstitutionalValidation, start time.Time) (*evaluation.Decision, error) {
	decision := &evaluation.Decision{
		RequestID:   req.ID,
		PolicyID:    req.PolicyID,
		Value:       evaluation.DecisionDeny,
		Confidence:  1.0,
		Reasons:     validation.Violations,
		Latency:     time.Since(start),
		Validation:  validation,
		CacheStatus: evaluation.CacheMiss,
		CreatedAt:   time.Now().UTC(),
	}

	if err := o.writeAudit(ctx, req, decision, nil, decision.Latency); err != nil {
		return nil, err
	}

	o.stats.RecordGateDenial(decision.Latency)
	if o.metrics != nil {
		o.metrics.RecordGateDenial()
		o.metrics.RecordEvaluation(string(req.Category), "gate", string(decision.Value), decision.Latency)
	}

	o.logger.Info("request denied by compliance gate",
		"request_id", req.ID,
		"policy_id", req.PolicyID,
		"violations", len(validation.Violations),
	)
	return decision, nil
}

// fromCache serves a cache hit. The stored decision is rebound to the current
// request and its validation outcome.
func (o *Orchestrator) fromCache(ctx context.Context, req *evaluation.PolicyRequest, hit *evaluation.Decision, validation evaluation.ConstitutionalValidation, start time.Time) (*evaluation.Decision, error) {
	hit.RequestID = req.ID
	hit.Validation = validation
	hit.Latency = time.Since(start)

	if err := o.writeAudit(ctx, req, hit, nil, hit.Latency); err != nil {
		return nil, err
	}

	o.stats.RecordCacheHit(hit.Latency)
	if o.metrics != nil {
		o.metrics.RecordCacheHit()
		o.metrics.RecordEvaluation(string(req.Category), hit.Engine.String(), string(hit.Value), hit.Latency)
	}
	return hit, nil
}

// observe updates stats and metrics for a freshly computed decision.
func (o *Orchestrator) observe(req *evaluation.PolicyRequest, decision *evaluation.Decision) {
	if decision.Engine.Kind == evaluation.EngineCompiled {
		o.stats.RecordCompiled(decision.Latency)
	} else {
		o.stats.RecordTier(decision.Engine.Tier, decision.Latency)
	}
	if o.metrics != nil {
		o.metrics.RecordEvaluation(string(req.Category), decision.Engine.String(), string(decision.Value), decision.Latency)
	}
}

// writeAudit records the outcome. Compliance-critical categories are written
// durably before the response leaves; a durable write failure withholds the
// decision.
func (o *Orchestrator) writeAudit(ctx context.Context, req *evaluation.PolicyRequest, decision *evaluation.Decision, evalErr error, latency time.Duration) error {
	record := audit.NewRecord(req)
	record.Latency = latency

	if decision != nil {
		record.Decision = decision.Value
		record.Confidence = decision.Confidence
		record.Engine = decision.Engine.String()
		record.CacheStatus = decision.CacheStatus
		record.Compliant = decision.Validation.IsCompliant
	}
	if evalErr != nil {
		record.Error = evalErr.Error()
		record.Compliant = true
	}

	durable := req.Category.Critical()
	if err := o.audit.Write(ctx, record, durable); err != nil {
		if durable {
			return &AuditError{Cause: err}
		}
		o.logger.Error("audit write failed",
			"request_id", req.ID,
			"error", err,
		)
	}
	return nil
}
