package audit

// SchemaVersion is the current audit schema version.
const SchemaVersion = 1

// Schema creates the audit tables and indexes.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_records (
	id           TEXT PRIMARY KEY,
	request_id   TEXT NOT NULL,
	policy_id    TEXT NOT NULL,
	category     TEXT NOT NULL,
	decision     TEXT,
	confidence   REAL NOT NULL DEFAULT 0,
	engine       TEXT,
	cache_status TEXT,
	latency_us   INTEGER NOT NULL DEFAULT 0,
	compliant    INTEGER NOT NULL DEFAULT 0,
	error        TEXT,
	metadata     TEXT,
	timestamp    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_request_id ON audit_records(request_id);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_records(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_policy_id ON audit_records(policy_id);

CREATE TABLE IF NOT EXISTS schema_version (
	version     INTEGER PRIMARY KEY,
	applied_at  TEXT NOT NULL DEFAULT (datetime('now'))
);
`

// InsertSchemaVersion records the schema version, once.
const InsertSchemaVersion = `
INSERT OR IGNORE INTO schema_version (version) VALUES (?);
`

// GetSchemaVersion reads the highest applied schema version.
const GetSchemaVersion = `
SELECT MAX(version) FROM schema_version;
`
