package resolve

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"quire/internal/analysis"
	"quire/internal/artifact"
)

// countingRoutine produces deterministic bytes and counts invocations.
type countingRoutine struct {
	kind  string
	calls atomic.Int64
	delay time.Duration
	fail  error
}

func (c *countingRoutine) Kind() string { return c.kind }

func (c *countingRoutine) Produce(ctx context.Context, inputs map[string]any) (*analysis.Result, error) {
	c.calls.Add(1)
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.fail != nil {
		return nil, c.fail
	}
	return &analysis.Result{Data: []byte("payload"), Format: "png"}, nil
}

func newResolver(t *testing.T, routine analysis.Routine, names ...string) (*Resolver, *artifact.MemStore) {
	t.Helper()
	reg := analysis.NewRegistry()
	for _, n := range names {
		if err := reg.Register(n, routine, map[string]any{"name": n}); err != nil {
			t.Fatalf("Register(%s): %v", n, err)
		}
	}
	store := artifact.NewMemStore()
	return &Resolver{Registry: reg, Store: store, Workers: 2, Timeout: 5 * time.Second}, store
}

func TestResolve_Idempotent(t *testing.T) {
	routine := &countingRoutine{kind: "stub"}
	r, _ := newResolver(t, routine, "model_summary", "anova_comparison", "additional_metrics")
	names := []string{"model_summary", "anova_comparison", "additional_metrics"}

	first, err := r.Resolve(context.Background(), names)
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	if diff := cmp.Diff(names, first.Generated); diff != "" {
		t.Errorf("first pass Generated mismatch (-want +got):\n%s", diff)
	}

	second, err := r.Resolve(context.Background(), names)
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if len(second.Generated) != 0 {
		t.Errorf("second pass regenerated %v, want none", second.Generated)
	}
	if diff := cmp.Diff(names, second.Reused); diff != "" {
		t.Errorf("second pass Reused mismatch (-want +got):\n%s", diff)
	}
	if got := routine.calls.Load(); got != 3 {
		t.Errorf("routine invoked %d times, want 3", got)
	}
}

func TestResolve_ChangedInputsForceRegeneration(t *testing.T) {
	routine := &countingRoutine{kind: "stub"}
	reg := analysis.NewRegistry()
	if err := reg.Register("fig", routine, map[string]any{"rev": 1}); err != nil {
		t.Fatal(err)
	}
	store := artifact.NewMemStore()
	r := &Resolver{Registry: reg, Store: store}

	if _, err := r.Resolve(context.Background(), []string{"fig"}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// New registry for the next build, same name, different inputs.
	reg2 := analysis.NewRegistry()
	if err := reg2.Register("fig", routine, map[string]any{"rev": 2}); err != nil {
		t.Fatal(err)
	}
	r2 := &Resolver{Registry: reg2, Store: store}
	rep, err := r2.Resolve(context.Background(), []string{"fig"})
	if err != nil {
		t.Fatalf("Resolve after input change: %v", err)
	}
	if len(rep.Generated) != 1 {
		t.Errorf("changed inputs did not regenerate: %+v", rep)
	}
	if got := routine.calls.Load(); got != 2 {
		t.Errorf("routine invoked %d times, want 2", got)
	}
}

func TestResolve_UnknownGoesToMissing(t *testing.T) {
	routine := &countingRoutine{kind: "stub"}
	r, _ := newResolver(t, routine, "model_summary")

	rep, err := r.Resolve(context.Background(), []string{"model_summary", "anova_comparison"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if diff := cmp.Diff([]string{"anova_comparison"}, rep.Missing); diff != "" {
		t.Errorf("Missing mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"model_summary"}, rep.Generated); diff != "" {
		t.Errorf("Generated mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveOne_Unknown(t *testing.T) {
	routine := &countingRoutine{kind: "stub"}
	r, _ := newResolver(t, routine)

	_, err := r.ResolveOne(context.Background(), "ghost", false)
	var unknown *UnknownFigureError
	if !errors.As(err, &unknown) || unknown.Name != "ghost" {
		t.Fatalf("want UnknownFigureError(ghost), got %v", err)
	}
}

func TestResolveOne_Force(t *testing.T) {
	routine := &countingRoutine{kind: "stub"}
	r, _ := newResolver(t, routine, "fig")

	if _, err := r.ResolveOne(context.Background(), "fig", false); err != nil {
		t.Fatalf("ResolveOne: %v", err)
	}
	if _, err := r.ResolveOne(context.Background(), "fig", false); err != nil {
		t.Fatalf("ResolveOne fresh: %v", err)
	}
	if got := routine.calls.Load(); got != 1 {
		t.Fatalf("fresh artifact regenerated: %d calls", got)
	}
	if _, err := r.ResolveOne(context.Background(), "fig", true); err != nil {
		t.Fatalf("ResolveOne force: %v", err)
	}
	if got := routine.calls.Load(); got != 2 {
		t.Errorf("force did not regenerate: %d calls", got)
	}
}

func TestResolve_GenerationFailureKeepsPreviousArtifact(t *testing.T) {
	routine := &countingRoutine{kind: "stub"}
	reg := analysis.NewRegistry()
	if err := reg.Register("model_summary", routine, map[string]any{"rev": 1}); err != nil {
		t.Fatal(err)
	}
	store := artifact.NewMemStore()
	r := &Resolver{Registry: reg, Store: store}
	if _, err := r.Resolve(context.Background(), []string{"model_summary"}); err != nil {
		t.Fatalf("seed Resolve: %v", err)
	}
	prev, err := store.Get("model_summary")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	// Next build: inputs changed, routine now throws.
	boom := errors.New("R session crashed")
	failing := &countingRoutine{kind: "stub", fail: boom}
	reg2 := analysis.NewRegistry()
	if err := reg2.Register("model_summary", failing, map[string]any{"rev": 2}); err != nil {
		t.Fatal(err)
	}
	r2 := &Resolver{Registry: reg2, Store: store}
	_, err = r2.Resolve(context.Background(), []string{"model_summary"})

	var genErr *FigureGenerationError
	if !errors.As(err, &genErr) || genErr.Name != "model_summary" {
		t.Fatalf("want FigureGenerationError(model_summary), got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("cause not wrapped: %v", err)
	}

	kept, err := store.Get("model_summary")
	if err != nil {
		t.Fatalf("Get after failure: %v", err)
	}
	if kept.Fingerprint != prev.Fingerprint || kept.ProducedAt != prev.ProducedAt {
		t.Errorf("previous artifact mutated after failed generation: %+v vs %+v", kept, prev)
	}
}

func TestResolve_Timeout(t *testing.T) {
	routine := &countingRoutine{kind: "stub", delay: time.Second}
	reg := analysis.NewRegistry()
	if err := reg.Register("slow", routine, nil); err != nil {
		t.Fatal(err)
	}
	r := &Resolver{Registry: reg, Store: artifact.NewMemStore(), Timeout: 20 * time.Millisecond}

	_, err := r.Resolve(context.Background(), []string{"slow"})
	var genErr *FigureGenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("want FigureGenerationError, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("want deadline cause, got %v", err)
	}
}

func TestResolve_Cancellation(t *testing.T) {
	routine := &countingRoutine{kind: "stub", delay: time.Second}
	reg := analysis.NewRegistry()
	if err := reg.Register("slow", routine, nil); err != nil {
		t.Fatal(err)
	}
	r := &Resolver{Registry: reg, Store: artifact.NewMemStore()}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := r.Resolve(ctx, []string{"slow"})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if _, getErr := r.Store.Get("slow"); getErr != artifact.ErrNotFound {
		t.Errorf("cancelled generation left a partial artifact: %v", getErr)
	}
}

func TestResolve_OrderIndependentOfConcurrency(t *testing.T) {
	// Later figures finish first; report order must still follow request order.
	reg := analysis.NewRegistry()
	delays := map[string]time.Duration{"a": 60 * time.Millisecond, "b": 30 * time.Millisecond, "c": 0}
	for name, d := range delays {
		if err := reg.Register(name, &countingRoutine{kind: "stub", delay: d}, map[string]any{"n": name}); err != nil {
			t.Fatal(err)
		}
	}
	r := &Resolver{Registry: reg, Store: artifact.NewMemStore(), Workers: 3}

	rep, err := r.Resolve(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, rep.Generated); diff != "" {
		t.Errorf("Generated order mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_DeduplicatesSharedFigures(t *testing.T) {
	routine := &countingRoutine{kind: "stub"}
	r, _ := newResolver(t, routine, "shared")

	rep, err := r.Resolve(context.Background(), []string{"shared", "shared", "shared"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(rep.Generated) != 1 {
		t.Errorf("shared figure planned %d times", len(rep.Generated))
	}
	if got := routine.calls.Load(); got != 1 {
		t.Errorf("shared figure generated %d times, want 1", got)
	}
}
