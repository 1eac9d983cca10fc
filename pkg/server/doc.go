// Package server provides the HTTP surface of the evaluation service:
// routing, the middleware chain, graceful startup and shutdown.
package server
