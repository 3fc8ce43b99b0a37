package artifact

// schemaVersion is the current index schema.
const schemaVersion = 1

// schema is the index DDL. The artifacts table is the sidecar fingerprint
// record; payloads live as files next to it under the figures dir.
var schema = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS artifacts (
	name        TEXT PRIMARY KEY,
	path        TEXT NOT NULL,
	format      TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	produced_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS builds (
	id          TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	status      TEXT NOT NULL,
	generated   INTEGER NOT NULL DEFAULT 0,
	reused      INTEGER NOT NULL DEFAULT 0,
	output      TEXT
);
`
