package render

import (
	"context"
	"fmt"

	"quire/internal/assemble"
)

// backend is the default Backend: markdown and HTML composed in-process,
// PDF printed through headless Chrome.
type backend struct{}

// New returns the default render backend.
func New() Backend { return backend{} }

func (backend) Render(ctx context.Context, doc *assemble.ComposedDocument, format Format) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		return renderMarkdown(ctx, doc)
	case FormatHTML:
		return renderHTML(ctx, doc)
	case FormatPDF:
		return renderPDF(ctx, doc)
	default:
		return nil, &RenderError{Format: format, Err: fmt.Errorf("unsupported format")}
	}
}
