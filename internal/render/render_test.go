package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"quire/internal/artifact"
	"quire/internal/assemble"
	"quire/internal/chapter"
)

// pngHeader is enough of a payload for embedding tests.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func testDoc(t *testing.T) *assemble.ComposedDocument {
	t.Helper()
	dir := t.TempDir()

	imgPath := filepath.Join(dir, "model_summary.png")
	if err := os.WriteFile(imgPath, pngHeader, 0644); err != nil {
		t.Fatal(err)
	}
	tblPath := filepath.Join(dir, "additional_metrics.md")
	if err := os.WriteFile(tblPath, []byte("| M | V |\n|---|---|\n| R2 | 0.91 |"), 0644); err != nil {
		t.Fatal(err)
	}

	produced := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	return &assemble.ComposedDocument{
		Title: "Model Comparison",
		Chapters: []*chapter.Chapter{
			{
				Title: "Model Comparison",
				Sections: []chapter.Section{
					{
						Heading:    "Model Summaries",
						Body:       "Coefficients and fit statistics.\n\nSecond paragraph.",
						FigureRefs: []chapter.FigureRef{{Name: "model_summary", Caption: "Model summary table"}},
					},
					{
						Heading:    "Additional Metrics",
						FigureRefs: []chapter.FigureRef{{Name: "additional_metrics", Caption: "Fit metrics"}},
					},
				},
			},
		},
		ResolvedFigures: map[string]*artifact.Artifact{
			"model_summary":      {Name: "model_summary", Path: imgPath, Format: "png", Fingerprint: "abcdef1234567890", ProducedAt: produced},
			"additional_metrics": {Name: "additional_metrics", Path: tblPath, Format: "md", Fingerprint: "fedcba0987654321", ProducedAt: produced},
		},
	}
}

func TestRenderMarkdown(t *testing.T) {
	out, err := New().Render(context.Background(), testDoc(t), FormatMarkdown)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	s := string(out)
	for _, want := range []string{
		"# Model Comparison",
		"## Model Summaries",
		"Coefficients and fit statistics.",
		"![Model summary table](",
		"model_summary.png",
		"| Figure",
		"abcdef123456", // shortened fingerprint in the provenance table
	} {
		if !strings.Contains(s, want) {
			t.Errorf("markdown output missing %q:\n%s", want, s)
		}
	}
}

func TestRenderHTML_EmbedsFigures(t *testing.T) {
	out, err := New().Render(context.Background(), testDoc(t), FormatHTML)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, "data:image/png;base64,") {
		t.Error("png figure not embedded as data URI")
	}
	if !strings.Contains(s, "figure-fallback") || !strings.Contains(s, "| R2 | 0.91 |") {
		t.Error("textual artifact not inlined as fallback")
	}
	if !strings.Contains(s, "<h2>Model Summaries</h2>") {
		t.Error("section heading missing")
	}
	if !strings.Contains(s, "<p>Second paragraph.</p>") {
		t.Error("prose paragraphs not split")
	}
	if !strings.Contains(s, "<figcaption>Model summary table</figcaption>") {
		t.Error("caption missing")
	}
}

func TestRenderHTML_MissingPayloadHasContext(t *testing.T) {
	doc := testDoc(t)
	doc.ResolvedFigures["model_summary"].Path = filepath.Join(t.TempDir(), "gone.png")

	_, err := New().Render(context.Background(), doc, FormatHTML)
	var rerr *RenderError
	if !errors.As(err, &rerr) {
		t.Fatalf("want RenderError, got %v", err)
	}
	if rerr.Chapter != "Model Comparison" || rerr.Section != "Model Summaries" {
		t.Errorf("missing chapter/section context: %+v", rerr)
	}
	if !strings.Contains(rerr.Error(), `chapter "Model Comparison"`) {
		t.Errorf("context not in message: %s", rerr.Error())
	}
}

func TestRender_UnknownFormat(t *testing.T) {
	_, err := New().Render(context.Background(), testDoc(t), Format("docx"))
	var rerr *RenderError
	if !errors.As(err, &rerr) {
		t.Fatalf("want RenderError, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"markdown": FormatMarkdown,
		"md":       FormatMarkdown,
		"html":     FormatHTML,
		"pdf":      FormatPDF,
	} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseFormat("docx"); err == nil {
		t.Error("ParseFormat(docx): expected error")
	}
}

func TestExt(t *testing.T) {
	if Ext(FormatMarkdown) != "md" || Ext(FormatHTML) != "html" || Ext(FormatPDF) != "pdf" {
		t.Error("Ext mapping wrong")
	}
}
