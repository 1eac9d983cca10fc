package audit

import (
	"context"
	"fmt"
	"time"
)

// Sink is a durable, append-only store of audit records.
type Sink interface {
	// Append persists one record.
	Append(ctx context.Context, record *Record) error

	// QueryByRequestID returns all records for a request id, oldest first.
	QueryByRequestID(ctx context.Context, requestID string) ([]*Record, error)

	// Count returns the total number of stored records.
	Count(ctx context.Context) (int64, error)

	// Prune removes records older than the cutoff and, when maxRecords > 0,
	// trims the store down to the newest maxRecords entries. It returns the
	// number of records removed. Retention pruning is the only sanctioned
	// deletion path.
	Prune(ctx context.Context, olderThan time.Time, maxRecords int64) (int64, error)

	// Ping verifies the sink is reachable.
	Ping(ctx context.Context) error

	// Close releases sink resources.
	Close() error
}

// StorageError wraps a sink backend failure with the backend and operation.
type StorageError struct {
	Backend string
	Op      string
	Cause   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("audit storage %s: %s failed: %v", e.Backend, e.Op, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}
