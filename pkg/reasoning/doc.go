// Package reasoning implements the client for externally hosted reasoning
// tiers.
//
// The client is a thin, stateless adapter: each call runs under a per-tier
// timeout derived from the tier's declared latency target, and every failure
// mode (transport error, timeout, non-success status, unusable body) is
// translated into *UnavailableError. The client never substitutes a default
// decision on failure and never retries; retrying a correctness-sensitive
// policy decision is the caller's call to make.
package reasoning
