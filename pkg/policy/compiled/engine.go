package compiled

import (
	"crypto/subtle"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"arbiter-hq/arbiter/pkg/evaluation"
)

// Result is the outcome of evaluating one request against a compiled policy.
type Result struct {
	// Value is the decision outcome.
	Value evaluation.DecisionValue

	// Rule is the name of the rule that fired, or empty if the policy
	// default applied.
	Rule string

	// Reasons is the ordered list of human-readable reasons.
	Reasons []string
}

// Engine evaluates statically compiled policies in near-constant time. The
// policy table is read-mostly: evaluations read a copy-on-write snapshot and
// never block on a concurrent Load, and a Load of an existing identifier is
// published atomically.
type Engine struct {
	// reference is the provenance value every loaded policy must carry.
	reference string

	// table is the copy-on-write policy table. Readers load the pointer
	// without locks; loadMu serializes writers.
	table  atomic.Pointer[map[string]*CompiledPolicy]
	loadMu sync.Mutex

	logger *slog.Logger
}

// New creates an engine that accepts only policies carrying the given
// reference provenance value.
func New(reference string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		reference: reference,
		logger:    logger.With("component", "policy.compiled"),
	}
	empty := make(map[string]*CompiledPolicy)
	e.table.Store(&empty)
	return e
}

// Load validates and publishes a policy. Loading rejects policies whose
// provenance token does not match the reference value. Re-loading the same
// identifier and version is a no-op; a new version replaces the entry
// atomically, so readers see either the fully-old or fully-new policy.
func (e *Engine) Load(p *CompiledPolicy) error {
	if p == nil {
		return &ValidationError{Message: "policy is nil"}
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(p.ProvenanceToken), []byte(e.reference)) != 1 {
		return &ProvenanceError{PolicyID: p.ID}
	}

	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	current := *e.table.Load()
	if existing, ok := current[p.ID]; ok && existing.Version == p.Version {
		e.logger.Debug("policy already loaded, skipping",
			"policy_id", p.ID,
			"version", p.Version,
		)
		return nil
	}

	next := make(map[string]*CompiledPolicy, len(current)+1)
	for id, policy := range current {
		next[id] = policy
	}
	next[p.ID] = p
	e.table.Store(&next)

	e.logger.Info("policy loaded",
		"policy_id", p.ID,
		"version", p.Version,
		"category", p.Category,
		"rules", len(p.Rules),
	)
	return nil
}

// Loaded reports whether a policy identifier is present in the table.
func (e *Engine) Loaded(id string) bool {
	_, ok := (*e.table.Load())[id]
	return ok
}

// Get returns a loaded policy by identifier.
func (e *Engine) Get(id string) (*CompiledPolicy, bool) {
	p, ok := (*e.table.Load())[id]
	return p, ok
}

// List returns all loaded policies sorted by identifier.
func (e *Engine) List() []*CompiledPolicy {
	table := *e.table.Load()
	out := make([]*CompiledPolicy, 0, len(table))
	for _, p := range table {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Evaluate runs the compiled policy against the input. Rules are evaluated in
// order; the first rule whose conditions all match decides. If no rule
// matches, the policy default applies (deny when unset).
//
// Returns *NotFoundError if the identifier was never loaded and *FaultError
// on an internal evaluation failure.
func (e *Engine) Evaluate(policyID string, input map[string]any) (*Result, error) {
	policy, ok := e.Get(policyID)
	if !ok {
		return nil, &NotFoundError{PolicyID: policyID}
	}

	for i := range policy.Rules {
		rule := &policy.Rules[i]

		matched, err := matchRule(rule, input)
		if err != nil {
			return nil, &FaultError{PolicyID: policyID, RuleName: rule.Name, Cause: err}
		}
		if !matched {
			continue
		}

		reason := rule.Reason
		if reason == "" {
			reason = "rule " + rule.Name + " matched"
		}
		return &Result{
			Value:   rule.Effect,
			Rule:    rule.Name,
			Reasons: []string{reason},
		}, nil
	}

	def := policy.Default
	if def == "" {
		def = evaluation.DecisionDeny
	}
	return &Result{
		Value:   def,
		Reasons: []string{"no rule matched; policy default applied"},
	}, nil
}
