// Package tablefig renders tabular analysis results as textual figure
// artifacts, for summary tables that do not need a plotting toolchain.
package tablefig

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"quire/internal/analysis"
)

// Routine renders a table from inline data. Inputs: header (list of
// cells, required), rows (list of cell lists, required), style
// ("markdown" or "ascii", default markdown).
type Routine struct{}

func New() *Routine { return &Routine{} }

func (r *Routine) Kind() string { return "tablefig" }

func (r *Routine) Produce(_ context.Context, inputs map[string]any) (*analysis.Result, error) {
	header, err := cells(inputs, "header")
	if err != nil {
		return nil, err
	}
	rawRows, ok := inputs["rows"]
	if !ok {
		return nil, fmt.Errorf("input %q is required", "rows")
	}
	rowList, ok := rawRows.([]any)
	if !ok {
		return nil, fmt.Errorf("input %q must be a list of rows", "rows")
	}

	tw := table.NewWriter()
	tw.AppendHeader(header)
	for i, raw := range rowList {
		cs, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("row %d must be a list of cells", i)
		}
		if len(cs) != len(header) {
			return nil, fmt.Errorf("row %d has %d cells, header has %d", i, len(cs), len(header))
		}
		tw.AppendRow(table.Row(cs))
	}

	style := "markdown"
	if v, ok := inputs["style"]; ok {
		s, sok := v.(string)
		if !sok {
			return nil, fmt.Errorf("input %q must be a string", "style")
		}
		style = s
	}
	switch style {
	case "markdown":
		return &analysis.Result{Data: []byte(tw.RenderMarkdown()), Format: "md"}, nil
	case "ascii":
		return &analysis.Result{Data: []byte(tw.Render()), Format: "txt"}, nil
	default:
		return nil, fmt.Errorf("unknown table style %q", style)
	}
}

func cells(inputs map[string]any, key string) (table.Row, error) {
	raw, ok := inputs[key]
	if !ok {
		return nil, fmt.Errorf("input %q is required", key)
	}
	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		return nil, fmt.Errorf("input %q must be a non-empty list", key)
	}
	return table.Row(list), nil
}
