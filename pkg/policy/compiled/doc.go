// Package compiled implements the compiled policy engine: a table of
// pre-loaded, statically evaluable rule sets executed deterministically and
// without external calls.
//
// Policies are authored as YAML documents (see ParseYAML) and loaded through
// Engine.Load, which enforces the same fail-closed provenance rule as the
// request gate. The table is copy-on-write: evaluations read a snapshot
// without taking locks, and a load publishes a complete new table in one
// atomic pointer store.
package compiled
