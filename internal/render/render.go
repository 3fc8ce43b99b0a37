// Package render turns a composed document into final output bytes. The
// assembler guarantees every figure reference is resolved before a backend
// ever sees the document.
package render

import (
	"context"
	"fmt"

	"quire/internal/assemble"
)

// Format is a requested output format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
)

// Backend renders a composed document into one output format.
type Backend interface {
	Render(ctx context.Context, doc *assemble.ComposedDocument, format Format) ([]byte, error)
}

// RenderError reports a backend failure with enough context to act on:
// which format, and when known, which chapter and section.
type RenderError struct {
	Format  Format
	Chapter string
	Section string
	Err     error
}

func (e *RenderError) Error() string {
	where := ""
	if e.Chapter != "" {
		where = fmt.Sprintf(" (chapter %q", e.Chapter)
		if e.Section != "" {
			where += fmt.Sprintf(", section %q", e.Section)
		}
		where += ")"
	}
	return fmt.Sprintf("render %s%s: %v", e.Format, where, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Ext returns the file extension for a format.
func Ext(f Format) string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatHTML:
		return "html"
	case FormatPDF:
		return "pdf"
	default:
		return string(f)
	}
}

// ParseFormat validates a --out flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatMarkdown, FormatHTML, FormatPDF:
		return Format(s), nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown output format %q (markdown, html, pdf)", s)
	}
}
