package assemble

import (
	"context"
	"errors"
	"fmt"
	"os"

	"quire/internal/artifact"
	"quire/internal/chapter"
	"quire/internal/logging"
	"quire/internal/resolve"
)

// Assembler orders chapters, resolves their figure demand once, and emits a
// ComposedDocument. Ownership of the parsed chapters stays here for the
// duration of one build.
type Assembler struct {
	Store    artifact.Store
	Resolver *resolve.Resolver
	// Title is the report title; empty falls back to the first chapter's.
	Title string
}

// AssembleFiles reads and assembles the chapter sources at paths, in the
// given order.
func (a *Assembler) AssembleFiles(ctx context.Context, paths []string) (*ComposedDocument, error) {
	logger := logging.New("assembler")

	// Parse everything first: structural errors surface before any figure
	// generation is attempted, and all of them at once.
	var chapters []*chapter.Chapter
	var parseErrs []error
	for _, p := range paths {
		src, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read chapter %s: %w", p, err)
		}
		ch, err := chapter.ParseNamed(p, src)
		if err != nil {
			parseErrs = append(parseErrs, err)
			continue
		}
		chapters = append(chapters, ch)
	}
	if len(parseErrs) > 0 {
		return nil, errors.Join(parseErrs...)
	}
	if len(chapters) == 0 {
		return nil, fmt.Errorf("no chapters to assemble")
	}

	doc := &ComposedDocument{Title: a.Title, Chapters: chapters}
	if doc.Title == "" {
		doc.Title = chapters[0].Title
	}

	// One resolver pass over the union dedups figures shared across
	// chapters and avoids redundant regeneration.
	names := doc.FigureNames()
	report, err := a.Resolver.Resolve(ctx, names)
	if err != nil {
		return nil, err
	}

	resolved := make(map[string]*artifact.Artifact, len(names))
	var unresolved []string
	for _, name := range names {
		if contains(report.Missing, name) {
			unresolved = append(unresolved, name)
			continue
		}
		art, err := a.Store.Get(name)
		if err != nil {
			unresolved = append(unresolved, name)
			continue
		}
		resolved[name] = art
	}
	if len(unresolved) > 0 {
		return nil, &UnresolvedFigureError{Names: unresolved}
	}
	doc.ResolvedFigures = resolved
	doc.Report = report

	logger.Info("document composed",
		"chapters", len(chapters),
		"figures", len(resolved),
		"generated", len(report.Generated),
		"reused", len(report.Reused))
	return doc, nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
