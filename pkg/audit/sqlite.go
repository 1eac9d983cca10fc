package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"arbiter-hq/arbiter/pkg/evaluation"
)

// SQLiteConfig contains configuration for the SQLite audit backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteSink implements Sink on SQLite.
type SQLiteSink struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteSink opens (or creates) the audit database and initializes the
// schema.
func NewSQLiteSink(config *SQLiteConfig) (*SQLiteSink, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "audit.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "open", Cause: err}
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteSink{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("audit storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)

	return s, nil
}

// initialize applies pragmas and creates the schema.
func (s *SQLiteSink) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return &StorageError{Backend: "sqlite", Op: "enable_wal", Cause: err}
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return &StorageError{Backend: "sqlite", Op: "set_busy_timeout", Cause: err}
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return &StorageError{Backend: "sqlite", Op: "create_schema", Cause: err}
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return &StorageError{Backend: "sqlite", Op: "insert_schema_version", Cause: err}
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil && err != sql.ErrNoRows {
		return &StorageError{Backend: "sqlite", Op: "get_schema_version", Cause: err}
	}
	if version != SchemaVersion {
		return &StorageError{Backend: "sqlite", Op: "schema_version_mismatch",
			Cause: fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version)}
	}

	return nil
}

// Append persists one record.
func (s *SQLiteSink) Append(ctx context.Context, record *Record) error {
	var metadata any
	if len(record.Metadata) > 0 {
		raw, err := json.Marshal(record.Metadata)
		if err != nil {
			return &StorageError{Backend: "sqlite", Op: "marshal_metadata", Cause: err}
		}
		metadata = string(raw)
	}

	var decision, engine, cacheStatus, errText any
	if record.Decision != "" {
		decision = string(record.Decision)
	}
	if record.Engine != "" {
		engine = record.Engine
	}
	if record.CacheStatus != "" {
		cacheStatus = string(record.CacheStatus)
	}
	if record.Error != "" {
		errText = record.Error
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_records (
			id, request_id, policy_id, category, decision, confidence,
			engine, cache_status, latency_us, compliant, error, metadata, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.RequestID,
		record.PolicyID,
		string(record.Category),
		decision,
		record.Confidence,
		engine,
		cacheStatus,
		record.Latency.Microseconds(),
		boolToInt(record.Compliant),
		errText,
		metadata,
		record.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return &StorageError{Backend: "sqlite", Op: "append", Cause: err}
	}

	return nil
}

// QueryByRequestID returns all records for a request id, oldest first.
func (s *SQLiteSink) QueryByRequestID(ctx context.Context, requestID string) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, policy_id, category, decision, confidence,
		       engine, cache_status, latency_us, compliant, error, metadata, timestamp
		FROM audit_records
		WHERE request_id = ?
		ORDER BY timestamp ASC
	`, requestID)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "query", Cause: err}
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, &StorageError{Backend: "sqlite", Op: "scan", Cause: err}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "iterate", Cause: err}
	}

	return records, nil
}

// Count returns the total number of stored records.
func (s *SQLiteSink) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_records`).Scan(&count); err != nil {
		return 0, &StorageError{Backend: "sqlite", Op: "count", Cause: err}
	}
	return count, nil
}

// Prune removes records older than the cutoff and trims the store down to
// the newest maxRecords entries.
func (s *SQLiteSink) Prune(ctx context.Context, olderThan time.Time, maxRecords int64) (int64, error) {
	var pruned int64

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM audit_records WHERE timestamp < ?`,
		olderThan.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, &StorageError{Backend: "sqlite", Op: "prune_age", Cause: err}
	}
	if n, err := result.RowsAffected(); err == nil {
		pruned += n
	}

	if maxRecords > 0 {
		result, err := s.db.ExecContext(ctx, `
			DELETE FROM audit_records WHERE id NOT IN (
				SELECT id FROM audit_records ORDER BY timestamp DESC LIMIT ?
			)
		`, maxRecords)
		if err != nil {
			return pruned, &StorageError{Backend: "sqlite", Op: "prune_count", Cause: err}
		}
		if n, err := result.RowsAffected(); err == nil {
			pruned += n
		}
	}

	return pruned, nil
}

// Ping verifies the database is reachable.
func (s *SQLiteSink) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &StorageError{Backend: "sqlite", Op: "ping", Cause: err}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// scanRecord scans one row into a Record.
func scanRecord(rows *sql.Rows) (*Record, error) {
	var (
		record                        Record
		category                      string
		decision, engine, cacheStatus sql.NullString
		errText, metadata, timestamp  sql.NullString
		latencyUS                     int64
		compliant                     int
	)

	err := rows.Scan(
		&record.ID,
		&record.RequestID,
		&record.PolicyID,
		&category,
		&decision,
		&record.Confidence,
		&engine,
		&cacheStatus,
		&latencyUS,
		&compliant,
		&errText,
		&metadata,
		&timestamp,
	)
	if err != nil {
		return nil, err
	}

	record.Category = evaluation.PolicyCategory(category)
	record.Latency = time.Duration(latencyUS) * time.Microsecond
	record.Compliant = compliant != 0
	if decision.Valid {
		record.Decision = evaluation.DecisionValue(decision.String)
	}
	if engine.Valid {
		record.Engine = engine.String
	}
	if cacheStatus.Valid {
		record.CacheStatus = evaluation.CacheStatus(cacheStatus.String)
	}
	if errText.Valid {
		record.Error = errText.String
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &record.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	if timestamp.Valid {
		ts, err := time.Parse(time.RFC3339Nano, timestamp.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}
		record.Timestamp = ts
	}

	return &record, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
