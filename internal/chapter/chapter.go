// Package chapter parses one narrative document fragment into its
// structural representation: a title, ordered sections, prose, and figure
// references. Parsing is pure: bytes in, Chapter out, no side effects.
package chapter

import (
	"fmt"
	"path"
	"strings"
)

// FigureRef is one image reference inside a section. Name is the logical
// figure name (image path base without extension); Caption is the alt text.
type FigureRef struct {
	Name    string
	Caption string
}

// Section is one headed block of prose with zero or more figure references,
// in source order.
type Section struct {
	Heading    string
	Body       string
	FigureRefs []FigureRef
}

// Chapter is one parsed document fragment. Immutable after parsing.
type Chapter struct {
	Title    string
	Sections []Section
}

// FigureNames returns the chapter's figure names in first-appearance order.
func (c *Chapter) FigureNames() []string {
	var out []string
	for _, s := range c.Sections {
		for _, ref := range s.FigureRefs {
			out = append(out, ref.Name)
		}
	}
	return out
}

// MalformedChapterError reports a structural violation with its location.
type MalformedChapterError struct {
	Path   string // source path, empty when parsing raw bytes
	Line   int    // 1-based
	Reason string
}

func (e *MalformedChapterError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed chapter (line %d): %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("malformed chapter %s (line %d): %s", e.Path, e.Line, e.Reason)
}

// figureNameFromPath derives the logical figure name from an image path:
// the base name without extension. Empty when no name remains.
func figureNameFromPath(p string) string {
	base := path.Base(strings.TrimSpace(p))
	if base == "." || base == "/" {
		return ""
	}
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}
