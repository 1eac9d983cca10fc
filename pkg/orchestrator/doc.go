// Package orchestrator composes the evaluation pipeline. Each request moves
// through a fixed sequence: compliance gate, cache lookup, an eligibility
// test that routes it to the compiled engine or a selected reasoning tier,
// cache store, audit write, response.
//
// The gate runs first and fails closed; a rejection becomes a deny decision
// without invoking either engine. The cache is best-effort and degrades to a
// forced miss. Every outcome, including terminal errors, produces exactly one
// audit record before it is returned, and compliance-critical categories are
// audited durably.
package orchestrator
