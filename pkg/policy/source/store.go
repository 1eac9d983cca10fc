package source

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"arbiter-hq/arbiter/pkg/policy/compiled"
)

// Store is the policy registry. Policies loaded over the API are persisted
// here as JSON documents so they survive restarts; LoadAll replays them into
// the engine at startup. Policies from the watched directory are not
// persisted, the directory itself is their source of truth.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	saveStmt   *sql.Stmt
	deleteStmt *sql.Stmt
}

// StoreConfig configures the policy registry.
type StoreConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewStore opens the registry database, creating the schema if needed.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open policy registry: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{
		db:     db,
		logger: slog.Default().With("component", "policy.store"),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize policy registry schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare policy registry statements: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS policies (
		id TEXT NOT NULL PRIMARY KEY,
		version TEXT NOT NULL,
		category TEXT NOT NULL,
		document TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_policies_category ON policies(category);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) prepareStatements() error {
	var err error

	s.saveStmt, err = s.db.Prepare(`
		INSERT INTO policies (id, version, category, document, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			version = excluded.version,
			category = excluded.category,
			document = excluded.document,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare save statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`DELETE FROM policies WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	return nil
}

// Save persists one policy, replacing any previous version.
func (s *Store) Save(ctx context.Context, policy *compiled.CompiledPolicy) error {
	document, err := json.Marshal(policy)
	if err != nil {
		return fmt.Errorf("failed to serialize policy %q: %w", policy.ID, err)
	}

	_, err = s.saveStmt.ExecContext(ctx,
		policy.ID,
		policy.Version,
		string(policy.Category),
		string(document),
		time.Now().UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to persist policy %q: %w", policy.ID, err)
	}
	return nil
}

// Delete removes one policy from the registry.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.deleteStmt.ExecContext(ctx, id); err != nil {
		return fmt.Errorf("failed to delete policy %q: %w", id, err)
	}
	return nil
}

// LoadAll returns every persisted policy, oldest update first.
func (s *Store) LoadAll(ctx context.Context) ([]*compiled.CompiledPolicy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document FROM policies ORDER BY updated_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query policy registry: %w", err)
	}
	defer rows.Close()

	var policies []*compiled.CompiledPolicy
	for rows.Next() {
		var id, document string
		if err := rows.Scan(&id, &document); err != nil {
			return nil, fmt.Errorf("failed to scan policy row: %w", err)
		}

		var policy compiled.CompiledPolicy
		if err := json.Unmarshal([]byte(document), &policy); err != nil {
			// A corrupt row must not keep the rest of the registry from
			// loading.
			s.logger.Error("skipping corrupt policy registry row",
				"policy_id", id,
				"error", err,
			)
			continue
		}
		policies = append(policies, &policy)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate policy registry: %w", err)
	}

	return policies, nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases prepared statements and the connection.
func (s *Store) Close() error {
	if s.saveStmt != nil {
		s.saveStmt.Close()
	}
	if s.deleteStmt != nil {
		s.deleteStmt.Close()
	}
	return s.db.Close()
}
