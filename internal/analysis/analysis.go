// Package analysis maps figure names to the routines that produce them.
// Routines are opaque producers (an R script, a LaTeX table compiler, a
// pure-Go table renderer); the registry only knows their kind and inputs
// and can fingerprint that pair deterministically.
package analysis

import (
	"context"
	"fmt"
)

// Result is the rendered output of one routine invocation.
type Result struct {
	Data   []byte
	Format string // file extension without dot: png, svg, md, ...
}

// Routine produces the data and rendering behind one figure. Routines must
// be pure over their inputs: same inputs, same figure.
type Routine interface {
	// Kind identifies the routine implementation. Part of the inputs
	// fingerprint, so renaming a kind invalidates its artifacts.
	Kind() string
	// Produce renders the figure. Must respect ctx cancellation.
	Produce(ctx context.Context, inputs map[string]any) (*Result, error)
}

// Spec binds a figure name to its routine and parameter bag. Immutable once
// registered.
type Spec struct {
	Name    string
	Routine Routine
	Inputs  map[string]any
}

// DuplicateNameError is returned when a name is re-registered with
// different inputs or a different routine kind.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("analysis: figure %q already registered with different inputs", e.Name)
}
