package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"quire/internal/assemble"
)

// renderMarkdown re-emits the composed document as a single markdown file
// with figure links into the artifact store and a provenance table at the
// end.
func renderMarkdown(_ context.Context, doc *assemble.ComposedDocument) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n", doc.Title)
	for _, ch := range doc.Chapters {
		fmt.Fprintf(&b, "\n# %s\n", ch.Title)
		for _, sec := range ch.Sections {
			fmt.Fprintf(&b, "\n## %s\n", sec.Heading)
			if sec.Body != "" {
				fmt.Fprintf(&b, "\n%s\n", sec.Body)
			}
			for _, ref := range sec.FigureRefs {
				art := doc.ResolvedFigures[ref.Name]
				fmt.Fprintf(&b, "\n![%s](%s)\n", ref.Caption, art.Path)
			}
		}
	}

	b.WriteString("\n---\n\n")
	b.WriteString(figureTable(doc))
	b.WriteString("\n")
	return []byte(b.String()), nil
}

// figureTable renders the resolved-figure provenance appendix.
func figureTable(doc *assemble.ComposedDocument) string {
	w := table.NewWriter()
	w.AppendHeader(table.Row{"Figure", "Path", "Fingerprint", "Produced"})
	for _, name := range doc.FigureNames() {
		art := doc.ResolvedFigures[name]
		w.AppendRow(table.Row{art.Name, art.Path, shortFingerprint(art.Fingerprint), art.ProducedAt.Format("2006-01-02 15:04:05")})
	}
	return w.RenderMarkdown()
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
