package audit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemorySink implements Sink in memory. All records are lost when the
// process exits; it backs tests and ephemeral deployments.
type MemorySink struct {
	mu      sync.RWMutex
	records []*Record
	closed  bool
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append persists one record.
func (s *MemorySink) Append(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return &StorageError{Backend: "memory", Op: "append", Cause: context.Canceled}
	}

	stored := *record
	s.records = append(s.records, &stored)
	return nil
}

// QueryByRequestID returns all records for a request id, oldest first.
func (s *MemorySink) QueryByRequestID(_ context.Context, requestID string) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Record
	for _, record := range s.records {
		if record.RequestID == requestID {
			copied := *record
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Count returns the total number of stored records.
func (s *MemorySink) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

// Prune removes records older than the cutoff and trims the store down to
// the newest maxRecords entries.
func (s *MemorySink) Prune(_ context.Context, olderThan time.Time, maxRecords int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	for _, record := range s.records {
		if !record.Timestamp.Before(olderThan) {
			kept = append(kept, record)
		}
	}
	pruned := int64(len(s.records) - len(kept))
	s.records = kept

	if maxRecords > 0 && int64(len(s.records)) > maxRecords {
		sort.Slice(s.records, func(i, j int) bool {
			return s.records[i].Timestamp.Before(s.records[j].Timestamp)
		})
		drop := int64(len(s.records)) - maxRecords
		s.records = append([]*Record(nil), s.records[drop:]...)
		pruned += drop
	}

	return pruned, nil
}

// Ping always succeeds while the sink is open.
func (s *MemorySink) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return &StorageError{Backend: "memory", Op: "ping", Cause: context.Canceled}
	}
	return nil
}

// Close marks the sink closed.
func (s *MemorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
