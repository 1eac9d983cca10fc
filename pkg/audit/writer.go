package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// WriterConfig contains configuration for the audit writer.
type WriterConfig struct {
	// Buffer is the size of the async write channel.
	// Default: 1000
	Buffer int

	// WriteTimeout is the timeout for a single storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultWriterConfig returns the default writer configuration.
func DefaultWriterConfig() *WriterConfig {
	return &WriterConfig{
		Buffer:       1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Writer front-ends a Sink with an async buffer. Non-durable writes are
// enqueued and drained by a background worker; durable writes (required for
// compliance-critical categories) go straight to storage so the record is
// persisted before the caller responds.
//
// The writer never drops a record: when the buffer is full the write falls
// back to the synchronous path, trading latency for the one-record-per-
// decision invariant.
type Writer struct {
	sink   Sink
	config *WriterConfig

	recordChan chan *Record
	done       chan struct{}
	closeOnce  sync.Once
	wg         sync.WaitGroup
	logger     *slog.Logger
}

// NewWriter creates a writer and starts its background worker.
func NewWriter(sink Sink, config *WriterConfig) *Writer {
	if config == nil {
		config = DefaultWriterConfig()
	}
	if config.Buffer <= 0 {
		config.Buffer = DefaultWriterConfig().Buffer
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriterConfig().WriteTimeout
	}

	w := &Writer{
		sink:       sink,
		config:     config,
		recordChan: make(chan *Record, config.Buffer),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "audit.writer"),
	}

	w.wg.Add(1)
	go w.worker()

	return w
}

// Write records one audit entry. When durable is true the record is written
// synchronously and the error, if any, is the storage error; otherwise the
// record is enqueued and the write error is only logged.
func (w *Writer) Write(ctx context.Context, record *Record, durable bool) error {
	if durable {
		return w.writeRecord(ctx, record)
	}

	select {
	case w.recordChan <- record:
		return nil
	case <-w.done:
		// Shutting down; persist directly rather than dropping.
		return w.writeRecord(ctx, record)
	default:
		// Buffer full. Fall back to the synchronous path so the record
		// is never lost.
		w.logger.Warn("audit buffer full, writing synchronously",
			"record_id", record.ID,
			"buffer", w.config.Buffer,
		)
		return w.writeRecord(ctx, record)
	}
}

// Close drains the buffer and stops the worker.
func (w *Writer) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)
	})
	w.wg.Wait()
	return nil
}

// worker drains the record channel until Close.
func (w *Writer) worker() {
	defer w.wg.Done()

	for {
		select {
		case record := <-w.recordChan:
			if err := w.writeRecord(context.Background(), record); err != nil {
				w.logger.Error("failed to write audit record",
					"record_id", record.ID,
					"request_id", record.RequestID,
					"error", err,
				)
			}

		case <-w.done:
			for {
				select {
				case record := <-w.recordChan:
					if err := w.writeRecord(context.Background(), record); err != nil {
						w.logger.Error("failed to write audit record during drain",
							"record_id", record.ID,
							"error", err,
						)
					}
				default:
					return
				}
			}
		}
	}
}

// writeRecord writes a single record under the configured timeout.
func (w *Writer) writeRecord(ctx context.Context, record *Record) error {
	writeCtx, cancel := context.WithTimeout(ctx, w.config.WriteTimeout)
	defer cancel()

	return w.sink.Append(writeCtx, record)
}
