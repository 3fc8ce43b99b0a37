// Package artifact owns the generated-figure store: the mapping from a
// logical figure name to a file on disk plus the fingerprint record that
// makes staleness checks possible across process restarts.
package artifact

import (
	"errors"
	"time"
)

// DefaultDBPath is the default relative path for the SQLite index (per-report).
// Resolve against cwd or the report root; Open() creates the parent dir.
const DefaultDBPath = ".quire/quire.db"

// DefaultDir is the default directory for generated figure files.
const DefaultDir = ".quire/figures"

// ErrNotFound is returned by Get when no artifact exists under the name.
var ErrNotFound = errors.New("artifact: not found")

// Artifact is one generated figure on durable storage. Created and
// overwritten only through Store.Put; deleted only through Store.Clean.
type Artifact struct {
	Name        string
	Path        string
	Format      string // file extension without dot: png, svg, md, ...
	Fingerprint string
	ProducedAt  time.Time
}

// BuildRecord is one build invocation, kept for the status command.
type BuildRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string // ok or failed
	Generated  int
	Reused     int
	Output     string
}

// Store is the persistence facade for figure artifacts. The resolver and
// assembler use only this interface; implementation is SQLite-indexed files
// or in-memory.
type Store interface {
	// Get returns the artifact under name, or ErrNotFound.
	Get(name string) (*Artifact, error)
	// Put persists data as the artifact's payload and records the
	// fingerprint. The write is all-or-nothing: a failed Put leaves any
	// previous artifact untouched.
	Put(name string, data []byte, format, fingerprint string) (*Artifact, error)
	// IsStale reports whether the artifact is absent or its recorded
	// fingerprint differs from fingerprint.
	IsStale(name, fingerprint string) bool
	// List returns all artifacts sorted by name.
	List() ([]*Artifact, error)
	// Clean removes every artifact and its payload. The only deletion path.
	Clean() error

	// SaveBuild appends a build record; ListBuilds returns the most recent
	// limit records, newest first.
	SaveBuild(b *BuildRecord) error
	ListBuilds(limit int) ([]*BuildRecord, error)
}
