package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS inbox_emails (
	position        INTEGER PRIMARY KEY,
	id              TEXT NOT NULL,
	sender          TEXT NOT NULL DEFAULT '',
	subject         TEXT,
	timestamp       TEXT NOT NULL DEFAULT '',
	has_attachments INTEGER NOT NULL DEFAULT 0,
	attachments     TEXT NOT NULL DEFAULT '[]',
	fetched_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_inbox_emails_id ON inbox_emails(id);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
