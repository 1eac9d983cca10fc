// Package gate implements the constitutional compliance gate.
//
// Every request carries a provenance token that must exactly equal the single
// system-wide reference value. The gate is the first thing the orchestrator
// runs; a failed check short-circuits the entire pipeline into a deny
// decision without touching the cache or either engine.
package gate
