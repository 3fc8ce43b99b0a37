// Package texfig compiles a LaTeX table fragment into a PNG figure:
// pdflatex renders the fragment to PDF in a scratch dir, ImageMagick trims
// and rasterizes it. Fragments without a document environment get a
// standalone preamble wrapped around them; caption lines are stripped so
// the narrative text owns the captions.
package texfig

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"quire/internal/analysis"
)

const (
	defaultDensity = 300
	defaultQuality = 90
)

var captionLine = regexp.MustCompile(`(?m)^.*\\caption.*$`)

// preamble wraps bare table fragments (the usual output of model-summary
// exporters) into a compilable standalone document.
const preamble = `\documentclass{article}
\usepackage{dcolumn}
\usepackage{float}
\usepackage{booktabs}
\usepackage{graphicx}
\pagestyle{empty}
\begin{document}
`

// Routine is the LaTeX-to-image producer. Inputs: tex (path, required),
// density, quality.
type Routine struct {
	PdflatexBin string
	MagickBin   string
}

// New returns a Routine using pdflatex and magick from PATH.
func New() *Routine {
	return &Routine{PdflatexBin: "pdflatex", MagickBin: "magick"}
}

func (r *Routine) Kind() string { return "texfig" }

func (r *Routine) Produce(ctx context.Context, inputs map[string]any) (*analysis.Result, error) {
	texPath, err := analysis.StringInput(inputs, "tex")
	if err != nil {
		return nil, err
	}
	density, err := analysis.IntInput(inputs, "density", defaultDensity)
	if err != nil {
		return nil, err
	}
	quality, err := analysis.IntInput(inputs, "quality", defaultQuality)
	if err != nil {
		return nil, err
	}

	src, err := os.ReadFile(texPath)
	if err != nil {
		return nil, fmt.Errorf("read tex source: %w", err)
	}

	// Scratch dir keeps pdflatex aux droppings away from the source tree.
	work, err := os.MkdirTemp("", "texfig-*")
	if err != nil {
		return nil, fmt.Errorf("scratch dir: %w", err)
	}
	defer os.RemoveAll(work)

	doc := EnsureDocumentStructure(StripCaptions(string(src)))
	workTex := filepath.Join(work, "figure.tex")
	if err := os.WriteFile(workTex, []byte(doc), 0644); err != nil {
		return nil, fmt.Errorf("write working tex: %w", err)
	}

	cmd := exec.CommandContext(ctx, r.PdflatexBin,
		"-interaction=nonstopmode", "-halt-on-error",
		"-output-directory", work, workTex)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdflatex %s: %w\n%s", texPath, err, tail(out))
	}

	workPDF := filepath.Join(work, "figure.pdf")
	if _, err := os.Stat(workPDF); err != nil {
		return nil, fmt.Errorf("pdflatex produced no PDF for %s: %w", texPath, err)
	}

	outPNG := filepath.Join(work, "figure.png")
	cmd = exec.CommandContext(ctx, r.MagickBin,
		"-density", strconv.Itoa(density), workPDF,
		"-background", "white", "-alpha", "remove", "-alpha", "off",
		"-trim",
		"-quality", strconv.Itoa(quality), outPNG)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("magick %s: %w\n%s", texPath, err, tail(out))
	}

	data, err := os.ReadFile(outPNG)
	if err != nil {
		return nil, fmt.Errorf("read rendered image: %w", err)
	}
	return &analysis.Result{Data: data, Format: "png"}, nil
}

// StripCaptions removes \caption lines from a tex fragment.
func StripCaptions(src string) string {
	return captionLine.ReplaceAllString(src, "")
}

// EnsureDocumentStructure wraps a fragment in a standalone preamble when it
// has no document environment of its own.
func EnsureDocumentStructure(src string) string {
	if strings.Contains(src, `\begin{document}`) {
		return src
	}
	return preamble + src + "\n\\end{document}\n"
}

// tail returns the last few lines of tool output, where LaTeX and
// ImageMagick put their actual error.
func tail(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) > 12 {
		lines = lines[len(lines)-12:]
	}
	return strings.Join(lines, "\n")
}
