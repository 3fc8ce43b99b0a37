package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"html/template"
	"os"
	"strings"

	"quire/internal/assemble"
)

// htmlTemplate lays out the whole report as one self-contained page:
// figures are embedded as data URIs so the output renders without the
// artifact store present (and so the PDF backend can print it directly).
const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Georgia, serif; max-width: 50rem; margin: 2rem auto; padding: 0 1rem; color: #222; }
h1 { border-bottom: 2px solid #444; padding-bottom: .3rem; }
h2 { margin-top: 2rem; }
figure { margin: 1.5rem 0; text-align: center; }
figure img { max-width: 100%; }
figcaption { font-style: italic; font-size: .9rem; color: #555; margin-top: .5rem; }
pre.figure-fallback { background: #f6f6f6; padding: 1rem; overflow-x: auto; text-align: left; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Chapters}}
<section class="chapter">
<h1>{{.Title}}</h1>
{{range .Sections}}
<section>
<h2>{{.Heading}}</h2>
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}{{range .Figures}}<figure>
{{if .DataURI}}<img src="{{.DataURI}}" alt="{{.Caption}}">{{else}}<pre class="figure-fallback">{{.Text}}</pre>{{end}}
<figcaption>{{.Caption}}</figcaption>
</figure>
{{end}}</section>
{{end}}</section>
{{end}}
</body>
</html>
`

type htmlFigure struct {
	Caption string
	DataURI template.URL
	Text    string // inline fallback for textual artifacts (markdown tables)
}

type htmlSection struct {
	Heading    string
	Paragraphs []string
	Figures    []htmlFigure
}

type htmlChapter struct {
	Title    string
	Sections []htmlSection
}

type htmlDoc struct {
	Title    string
	Chapters []htmlChapter
}

var htmlTmpl = template.Must(template.New("report").Parse(htmlTemplate))

// renderHTML composes the document into a standalone HTML page.
func renderHTML(_ context.Context, doc *assemble.ComposedDocument) ([]byte, error) {
	view := htmlDoc{Title: doc.Title}
	for _, ch := range doc.Chapters {
		hc := htmlChapter{Title: ch.Title}
		for _, sec := range ch.Sections {
			hs := htmlSection{Heading: sec.Heading, Paragraphs: paragraphs(sec.Body)}
			for _, ref := range sec.FigureRefs {
				art := doc.ResolvedFigures[ref.Name]
				fig := htmlFigure{Caption: ref.Caption}
				payload, err := os.ReadFile(art.Path)
				if err != nil {
					return nil, &RenderError{Format: FormatHTML, Chapter: ch.Title, Section: sec.Heading, Err: err}
				}
				if mime := imageMIME(art.Format); mime != "" {
					fig.DataURI = template.URL("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(payload))
				} else {
					fig.Text = string(payload)
				}
				hs.Figures = append(hs.Figures, fig)
			}
			hc.Sections = append(hc.Sections, hs)
		}
		view.Chapters = append(view.Chapters, hc)
	}

	var buf bytes.Buffer
	if err := htmlTmpl.Execute(&buf, view); err != nil {
		return nil, &RenderError{Format: FormatHTML, Err: err}
	}
	return buf.Bytes(), nil
}

// paragraphs splits prose on blank lines.
func paragraphs(body string) []string {
	var out []string
	for _, p := range strings.Split(body, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// imageMIME maps artifact formats that can be embedded as <img> data URIs.
// Anything else falls back to inline text.
func imageMIME(format string) string {
	switch format {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "svg":
		return "image/svg+xml"
	default:
		return ""
	}
}
