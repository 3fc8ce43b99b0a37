// Package manifest defines the report manifest: which chapters make up the
// report, which analysis routines produce its figures, and where artifacts
// live.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"quire/internal/artifact"
)

// Figure declares one analysis spec: a figure name, the routine kind that
// produces it, and the routine's parameter bag.
type Figure struct {
	Name    string         `json:"name" yaml:"name" toml:"name"`
	Routine string         `json:"routine" yaml:"routine" toml:"routine"`
	Inputs  map[string]any `json:"inputs,omitempty" yaml:"inputs,omitempty" toml:"inputs,omitempty"`
}

// Manifest is the report configuration file.
type Manifest struct {
	Title string `json:"title" yaml:"title" toml:"title"`

	// Chapters lists chapter sources in report order. ChaptersDir is the
	// alternative: every .md file in the dir, sorted by name.
	Chapters    []string `json:"chapters,omitempty" yaml:"chapters,omitempty" toml:"chapters,omitempty"`
	ChaptersDir string   `json:"chapters_dir,omitempty" yaml:"chapters_dir,omitempty" toml:"chapters_dir,omitempty"`

	Figures []Figure `json:"figures" yaml:"figures" toml:"figures"`

	DBPath     string `json:"db,omitempty" yaml:"db,omitempty" toml:"db,omitempty"`
	FiguresDir string `json:"figures_dir,omitempty" yaml:"figures_dir,omitempty" toml:"figures_dir,omitempty"`

	Workers int    `json:"workers,omitempty" yaml:"workers,omitempty" toml:"workers,omitempty"`
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout,omitempty"`

	Formats []string `json:"formats,omitempty" yaml:"formats,omitempty" toml:"formats,omitempty"`
	Output  string   `json:"output,omitempty" yaml:"output,omitempty" toml:"output,omitempty"`

	// dir is the manifest file's directory; relative paths resolve here.
	dir string
}

// Validate checks the structural invariants a build relies on.
func (m *Manifest) Validate() error {
	if len(m.Chapters) == 0 && m.ChaptersDir == "" {
		return fmt.Errorf("manifest: chapters or chapters_dir is required")
	}
	if len(m.Chapters) > 0 && m.ChaptersDir != "" {
		return fmt.Errorf("manifest: chapters and chapters_dir are mutually exclusive")
	}
	seen := make(map[string]struct{}, len(m.Figures))
	for _, f := range m.Figures {
		if f.Name == "" {
			return fmt.Errorf("manifest: figure with empty name")
		}
		if f.Routine == "" {
			return fmt.Errorf("manifest: figure %q has no routine", f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("manifest: figure %q declared twice", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	if m.Timeout != "" {
		if _, err := time.ParseDuration(m.Timeout); err != nil {
			return fmt.Errorf("manifest: bad timeout %q: %w", m.Timeout, err)
		}
	}
	return nil
}

// ChapterPaths returns the ordered chapter source paths, resolved against
// the manifest dir.
func (m *Manifest) ChapterPaths() ([]string, error) {
	if m.ChaptersDir != "" {
		dir := m.resolve(m.ChaptersDir)
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read chapters dir: %w", err)
		}
		var out []string
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
				continue
			}
			out = append(out, filepath.Join(dir, e.Name()))
		}
		sort.Strings(out)
		if len(out) == 0 {
			return nil, fmt.Errorf("no chapter sources in %s", dir)
		}
		return out, nil
	}
	out := make([]string, len(m.Chapters))
	for i, c := range m.Chapters {
		out[i] = m.resolve(c)
	}
	return out, nil
}

// ResolvedDBPath returns the store index path, honoring QUIRE_DB and the
// default.
func (m *Manifest) ResolvedDBPath() string {
	if m.DBPath != "" {
		return m.resolve(m.DBPath)
	}
	if env := os.Getenv("QUIRE_DB"); env != "" {
		return env
	}
	return m.resolve(artifact.DefaultDBPath)
}

// ResolvedFiguresDir returns the figure payload dir.
func (m *Manifest) ResolvedFiguresDir() string {
	if m.FiguresDir != "" {
		return m.resolve(m.FiguresDir)
	}
	return m.resolve(artifact.DefaultDir)
}

// GenerationTimeout returns the per-figure timeout, 0 when unset.
func (m *Manifest) GenerationTimeout() time.Duration {
	if m.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(m.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// ResolvePath resolves p against the manifest's directory, like the
// chapter and store paths. Absolute paths pass through. Routine inputs
// that name files (a tex source, an R script) go through here so a build
// works no matter which directory it is invoked from.
func (m *Manifest) ResolvePath(p string) string {
	return m.resolve(p)
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) || m.dir == "" {
		return p
	}
	return filepath.Join(m.dir, p)
}
