// Package audit implements the append-only audit sink.
//
// Every decision returned to a caller, including gate denials and terminal
// errors, produces exactly one audit record. The Writer buffers non-critical
// writes on a background worker and falls back to synchronous writes rather
// than dropping records; compliance-critical categories bypass the buffer
// entirely so the record is durable before the response leaves the process.
//
// Two Sink backends are provided: SQLite (WAL mode, the production default)
// and an in-memory sink for tests. Retention pruning is the only sanctioned
// deletion path and runs on a cron schedule.
package audit
