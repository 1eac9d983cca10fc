// Arbiter is a tiered policy evaluation service.
//
// It evaluates governance policy requests through a two-stage pipeline: a
// compiled rule engine for simple, latency-sensitive policies and a set of
// externally hosted reasoning tiers for everything else. Every decision is
// gated on constitutional provenance and recorded in an audit trail.
//
// Usage:
//
//	# Start the service with default configuration
//	arbiter run
//
//	# Start with a custom configuration file
//	arbiter run --config /etc/arbiter/config.yaml
//
//	# Show version information
//	arbiter version
//
//	# Validate policy documents
//	arbiter policy lint --dir policies/
package main

func main() {
	Execute()
}
