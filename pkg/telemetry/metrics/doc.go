// Package metrics exposes Prometheus instrumentation for the evaluation
// pipeline. All metrics share the "arbiter" namespace and are registered on a
// dedicated registry rather than the global default so tests can create
// isolated instances.
package metrics
