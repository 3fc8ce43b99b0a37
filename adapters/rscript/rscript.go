// Package rscript runs an R analysis script as a figure routine. The
// script gets its output path as the final argument and must write the
// figure there; anything it prints is kept for the failure report.
package rscript

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"quire/internal/analysis"
)

// Routine invokes Rscript. Inputs: script (path, required), args (list of
// strings), format (output extension, default png).
type Routine struct {
	Bin string
}

// New returns a Routine using Rscript from PATH.
func New() *Routine {
	return &Routine{Bin: "Rscript"}
}

func (r *Routine) Kind() string { return "rscript" }

func (r *Routine) Produce(ctx context.Context, inputs map[string]any) (*analysis.Result, error) {
	script, err := analysis.StringInput(inputs, "script")
	if err != nil {
		return nil, err
	}
	args, err := analysis.StringsInput(inputs, "args")
	if err != nil {
		return nil, err
	}
	format := "png"
	if v, ok := inputs["format"]; ok {
		s, sok := v.(string)
		if !sok || s == "" {
			return nil, fmt.Errorf("input %q must be a non-empty string", "format")
		}
		format = s
	}

	work, err := os.MkdirTemp("", "rscript-*")
	if err != nil {
		return nil, fmt.Errorf("scratch dir: %w", err)
	}
	defer os.RemoveAll(work)
	outPath := filepath.Join(work, "figure."+format)

	cmdArgs := append([]string{"--vanilla", script}, args...)
	cmdArgs = append(cmdArgs, outPath)
	cmd := exec.CommandContext(ctx, r.Bin, cmdArgs...)
	cmd.Env = append(os.Environ(), "QUIRE_OUT="+outPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("Rscript %s: %w\n%s", script, err, strings.TrimSpace(string(out)))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("script %s wrote no output: %w", script, err)
	}
	return &analysis.Result{Data: data, Format: format}, nil
}
