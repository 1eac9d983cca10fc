// Package cache implements the bounded decision cache.
//
// The cache is keyed by a hash of (policy identifier, canonicalized input
// payload) and holds up to a configured number of simultaneously live
// entries. Entries expire by TTL first; under capacity pressure the least
// recently used entry is evicted. A background sweep reclaims expired
// entries between accesses.
//
// The cache is strictly best-effort: every failure mode degrades to a miss,
// never to an error that blocks evaluation.
package cache
