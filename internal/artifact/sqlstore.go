package artifact

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// nowUTC returns the current UTC time as an ISO 8601 string.
func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

// nullStr converts a sql.NullString to a plain string (empty if null).
func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// SqlStore implements Store with a SQLite index and figure payloads on disk.
type SqlStore struct {
	db  *sql.DB
	dir string
}

// Open opens or creates the SQLite index at dbPath and ensures the figures
// dir exists. Creates parent directories (e.g. .quire) as needed.
func Open(dbPath, dir string) (*SqlStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create figures dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SqlStore{db: db, dir: dir}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SqlStore) Close() error { return s.db.Close() }

// Dir returns the figures directory.
func (s *SqlStore) Dir() string { return s.dir }

func (s *SqlStore) migrate() error {
	var tableCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableCount == 0 {
		if _, err := s.db.Exec(schema); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	}
	var v int
	err = s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		v = schemaVersion
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", v); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
	}
	if v != schemaVersion {
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

func (s *SqlStore) Get(name string) (*Artifact, error) {
	row := s.db.QueryRow(
		"SELECT name, path, format, fingerprint, produced_at FROM artifacts WHERE name = ?", name)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact %s: %w", name, err)
	}
	return a, nil
}

// Put writes data to a temp file in the figures dir, renames it over the
// final payload path, then upserts the index row. A failure before the
// rename leaves the previous artifact (file and row) untouched.
func (s *SqlStore) Put(name string, data []byte, format, fingerprint string) (*Artifact, error) {
	if name == "" {
		return nil, errors.New("artifact: name is empty")
	}
	if format == "" {
		format = "bin"
	}
	final := filepath.Join(s.dir, name+"."+format)

	prev, err := s.Get(name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return nil, fmt.Errorf("temp payload for %s: %w", name, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("write payload for %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("close payload for %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("publish payload for %s: %w", name, err)
	}

	producedAt := nowUTC()
	_, err = s.db.Exec(`
		INSERT INTO artifacts(name, path, format, fingerprint, produced_at)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			path = excluded.path,
			format = excluded.format,
			fingerprint = excluded.fingerprint,
			produced_at = excluded.produced_at`,
		name, final, format, fingerprint, producedAt)
	if err != nil {
		return nil, fmt.Errorf("index artifact %s: %w", name, err)
	}

	// A format change moves the payload path; drop the superseded file so
	// it cannot linger outside the index.
	if prev != nil && prev.Path != final {
		_ = os.Remove(prev.Path)
	}

	t, _ := time.Parse(time.RFC3339, producedAt)
	return &Artifact{Name: name, Path: final, Format: format, Fingerprint: fingerprint, ProducedAt: t}, nil
}

func (s *SqlStore) IsStale(name, fingerprint string) bool {
	a, err := s.Get(name)
	if err != nil {
		return true
	}
	return a.Fingerprint != fingerprint
}

func (s *SqlStore) List() ([]*Artifact, error) {
	rows, err := s.db.Query(
		"SELECT name, path, format, fingerprint, produced_at FROM artifacts ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()
	var out []*Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Clean drops every index row and removes payload files under the managed
// figures dir. Files outside the dir are never touched.
func (s *SqlStore) Clean() error {
	arts, err := s.List()
	if err != nil {
		return err
	}
	for _, a := range arts {
		rel, err := filepath.Rel(s.dir, a.Path)
		if err != nil || filepath.IsAbs(rel) || strings.HasPrefix(rel, "..") {
			continue
		}
		if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove payload %s: %w", a.Path, err)
		}
	}
	if _, err := s.db.Exec("DELETE FROM artifacts"); err != nil {
		return fmt.Errorf("clean index: %w", err)
	}
	return nil
}

func (s *SqlStore) SaveBuild(b *BuildRecord) error {
	if b == nil {
		return errors.New("artifact: build record is nil")
	}
	finished := ""
	if !b.FinishedAt.IsZero() {
		finished = b.FinishedAt.UTC().Format(time.RFC3339)
	}
	_, err := s.db.Exec(`
		INSERT INTO builds(id, started_at, finished_at, status, generated, reused, output)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			status = excluded.status,
			generated = excluded.generated,
			reused = excluded.reused,
			output = excluded.output`,
		b.ID, b.StartedAt.UTC().Format(time.RFC3339), finished, b.Status, b.Generated, b.Reused, b.Output)
	if err != nil {
		return fmt.Errorf("save build %s: %w", b.ID, err)
	}
	return nil
}

func (s *SqlStore) ListBuilds(limit int) ([]*BuildRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, status, generated, reused, output
		FROM builds ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	defer rows.Close()
	var out []*BuildRecord
	for rows.Next() {
		var b BuildRecord
		var started, finished, output sql.NullString
		if err := rows.Scan(&b.ID, &started, &finished, &b.Status, &b.Generated, &b.Reused, &output); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		b.StartedAt, _ = time.Parse(time.RFC3339, nullStr(started))
		if f := nullStr(finished); f != "" {
			b.FinishedAt, _ = time.Parse(time.RFC3339, f)
		}
		b.Output = nullStr(output)
		out = append(out, &b)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row rowScanner) (*Artifact, error) {
	var a Artifact
	var produced string
	if err := row.Scan(&a.Name, &a.Path, &a.Format, &a.Fingerprint, &produced); err != nil {
		return nil, err
	}
	a.ProducedAt, _ = time.Parse(time.RFC3339, produced)
	return &a, nil
}
