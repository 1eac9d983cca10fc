// Package health aggregates component health checks behind liveness and
// readiness probes. Liveness only confirms the process is up; readiness runs
// the registered checks (audit sink, policy registry) with a per-check
// timeout.
package health
