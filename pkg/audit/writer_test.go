package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"arbiter-hq/arbiter/pkg/evaluation"
)

func testRecord(requestID string) *Record {
	return NewRecord(&evaluation.PolicyRequest{
		ID:       requestID,
		PolicyID: "p1",
		Category: evaluation.CategoryAccessControl,
	})
}

func TestWriter_DurableWrite(t *testing.T) {
	sink := NewMemorySink()
	w := NewWriter(sink, nil)
	defer w.Close()

	if err := w.Write(context.Background(), testRecord("req-1"), true); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	// A durable write is visible immediately, before any worker runs.
	records, err := sink.QueryByRequestID(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("QueryByRequestID() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
}

func TestWriter_AsyncWriteDrainsOnClose(t *testing.T) {
	sink := NewMemorySink()
	w := NewWriter(sink, &WriterConfig{Buffer: 100, WriteTimeout: time.Second})

	for i := 0; i < 20; i++ {
		if err := w.Write(context.Background(), testRecord(fmt.Sprintf("req-%d", i)), false); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	count, _ := sink.Count(context.Background())
	if count != 20 {
		t.Errorf("Count() = %d after Close, want 20", count)
	}
}

func TestWriter_FullBufferFallsBackToSync(t *testing.T) {
	sink := NewMemorySink()
	w := NewWriter(sink, &WriterConfig{Buffer: 1, WriteTimeout: time.Second})
	defer w.Close()

	// Overfill the buffer; no record may be dropped.
	for i := 0; i < 50; i++ {
		if err := w.Write(context.Background(), testRecord(fmt.Sprintf("req-%d", i)), false); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	w.Close()

	count, _ := sink.Count(context.Background())
	if count != 50 {
		t.Errorf("Count() = %d, want 50 (writer dropped records)", count)
	}
}

func TestPruner_Run(t *testing.T) {
	sink := NewMemorySink()

	old := testRecord("req-old")
	old.Timestamp = time.Now().UTC().Add(-48 * time.Hour)
	recent := testRecord("req-recent")

	sink.Append(context.Background(), old)
	sink.Append(context.Background(), recent)

	pruner := NewPruner(sink, RetentionConfig{MaxAge: 24 * time.Hour})
	pruned, err := pruner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if pruned != 1 {
		t.Errorf("Run() pruned = %d, want 1", pruned)
	}

	remaining, _ := sink.QueryByRequestID(context.Background(), "req-recent")
	if len(remaining) != 1 {
		t.Error("recent record was pruned")
	}
}

func TestPruner_MaxRecords(t *testing.T) {
	sink := NewMemorySink()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 10; i++ {
		record := testRecord(fmt.Sprintf("req-%d", i))
		record.Timestamp = base.Add(time.Duration(i) * time.Minute)
		sink.Append(context.Background(), record)
	}

	pruner := NewPruner(sink, RetentionConfig{MaxRecords: 3})
	pruned, err := pruner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if pruned != 7 {
		t.Errorf("Run() pruned = %d, want 7", pruned)
	}

	count, _ := sink.Count(context.Background())
	if count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}

	// The newest records survive.
	newest, _ := sink.QueryByRequestID(context.Background(), "req-9")
	if len(newest) != 1 {
		t.Error("newest record did not survive pruning")
	}
}

func TestMemorySink_RecordsAreCopied(t *testing.T) {
	sink := NewMemorySink()

	record := testRecord("req-1")
	sink.Append(context.Background(), record)
	record.Error = "mutated after append"

	stored, _ := sink.QueryByRequestID(context.Background(), "req-1")
	if stored[0].Error != "" {
		t.Error("sink stored a reference to the caller's record")
	}
}
