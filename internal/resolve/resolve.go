// Package resolve reconciles a report's figure demand against the artifact
// store: regenerate what is stale or absent, reuse what is fresh.
package resolve

import (
	"errors"
	"fmt"
)

// errEmptyResult marks a routine that returned no payload.
var errEmptyResult = errors.New("routine produced an empty result")

// UnknownFigureError reports a figure with no registered analysis spec.
// A configuration bug: the chapter references something nobody produces.
type UnknownFigureError struct {
	Name string
}

func (e *UnknownFigureError) Error() string {
	return fmt.Sprintf("unknown figure %q: no analysis registered", e.Name)
}

// FigureGenerationError reports a routine failure or timeout. Fatal for the
// whole build; the store keeps any previous artifact unchanged.
type FigureGenerationError struct {
	Name string
	Err  error
}

func (e *FigureGenerationError) Error() string {
	return fmt.Sprintf("generating figure %q: %v", e.Name, e.Err)
}

func (e *FigureGenerationError) Unwrap() error { return e.Err }

// Report summarizes one resolver pass. Generated and Reused preserve
// first-appearance order of the requested names; Missing lists names with no
// registered spec (the assembler folds these into its unresolved report).
type Report struct {
	Generated []string
	Reused    []string
	Missing   []string
}
