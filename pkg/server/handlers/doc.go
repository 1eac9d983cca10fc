// Package handlers implements the HTTP API: evaluation (single and
// streaming), policy management, diagnostics (tiers, stats, audit trail), and
// health probes.
package handlers
