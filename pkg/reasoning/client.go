package reasoning

import (
	"context"
	"time"

	"arbiter-hq/arbiter/pkg/evaluation"
	"arbiter-hq/arbiter/pkg/tiers"
)

// Request is the evaluation request sent to a reasoning tier.
type Request struct {
	// RequestID correlates the tier call with the originating request.
	RequestID string `json:"request_id"`

	// PolicyID is the policy the caller asked about.
	PolicyID string `json:"policy_id"`

	// Category is the policy domain of the request.
	Category evaluation.PolicyCategory `json:"category"`

	// PromptContext is the free-form context framing the evaluation.
	PromptContext string `json:"prompt_context,omitempty"`

	// Input is the structured payload under evaluation.
	Input map[string]any `json:"input"`
}

// Result is a reasoning tier's answer.
type Result struct {
	// Value is the decision outcome.
	Value evaluation.DecisionValue `json:"decision"`

	// Confidence is the tier's self-reported confidence in [0,1].
	Confidence float64 `json:"confidence"`

	// Reasoning is the ordered list of reasoning steps.
	Reasoning []string `json:"reasoning"`

	// Latency is the observed round-trip latency.
	Latency time.Duration `json:"-"`
}

// Client invokes an externally hosted reasoning tier. Implementations are
// thin, stateless adapters: they apply a per-tier timeout, translate every
// transport failure into *UnavailableError, and never substitute a default
// decision on failure.
type Client interface {
	// Evaluate sends the request to the given tier and returns its decision.
	Evaluate(ctx context.Context, tier tiers.Tier, req *Request) (*Result, error)

	// Close releases client resources.
	Close() error
}
