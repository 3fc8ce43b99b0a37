// Package assemble composes parsed chapters and resolved figures into one
// render-ready document.
package assemble

import (
	"fmt"
	"strings"

	"quire/internal/artifact"
	"quire/internal/chapter"
	"quire/internal/resolve"
)

// ComposedDocument is the fully resolved in-memory representation of an
// entire report. Transient: produced once per build, handed to a render
// backend, then discarded.
type ComposedDocument struct {
	Title           string
	Chapters        []*chapter.Chapter
	ResolvedFigures map[string]*artifact.Artifact
	// Report records what the resolver pass generated versus reused.
	Report *resolve.Report
}

// FigureNames returns the union of figure names across all chapters, in
// first-appearance order.
func (d *ComposedDocument) FigureNames() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, ch := range d.Chapters {
		for _, name := range ch.FigureNames() {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

// UnresolvedFigureError lists every figure still missing after the resolver
// pass — all of them, so one build reports every gap at once.
type UnresolvedFigureError struct {
	Names []string
}

func (e *UnresolvedFigureError) Error() string {
	return fmt.Sprintf("unresolved figures: %s", strings.Join(e.Names, ", "))
}
