// Package evaluation defines the domain types shared by the policy
// evaluation pipeline: requests, constitutional contexts, decisions, and the
// engine provenance attached to every decision.
//
// The types in this package are plain values. Components that act on them
// (gate, cache, compiled engine, reasoning client, orchestrator) live in
// their own packages and depend on this one; this package depends on nothing
// but the standard library.
package evaluation
