package rscript

import (
	"strings"
	"testing"
)

func TestProduceRequiresScript(t *testing.T) {
	r := New()
	_, err := r.Produce(t.Context(), map[string]any{})
	if err == nil {
		t.Fatal("expected error for missing script input")
	}
	if !strings.Contains(err.Error(), "script") {
		t.Fatalf("error %q does not name the missing input", err)
	}
}

func TestProduceRejectsBadFormat(t *testing.T) {
	r := New()
	_, err := r.Produce(t.Context(), map[string]any{
		"script": "plot.R",
		"format": 7,
	})
	if err == nil {
		t.Fatal("expected error for non-string format")
	}
}

func TestProduceReportsCommandFailure(t *testing.T) {
	r := &Routine{Bin: "/nonexistent/Rscript"}
	_, err := r.Produce(t.Context(), map[string]any{"script": "plot.R"})
	if err == nil {
		t.Fatal("expected error from missing interpreter")
	}
	if !strings.Contains(err.Error(), "plot.R") {
		t.Fatalf("error %q does not name the script", err)
	}
}

func TestKind(t *testing.T) {
	if got := New().Kind(); got != "rscript" {
		t.Fatalf("Kind() = %q", got)
	}
}
