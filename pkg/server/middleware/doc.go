// Package middleware provides the HTTP middleware chain: panic recovery,
// request ID propagation, structured request logging, and per-request
// timeouts.
package middleware
