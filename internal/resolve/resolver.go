package resolve

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"quire/internal/analysis"
	"quire/internal/artifact"
	"quire/internal/logging"
)

// DefaultTimeout bounds a single figure generation.
const DefaultTimeout = 5 * time.Minute

// Resolver triggers (re)generation of stale figures through the registry
// and writes results into the store.
type Resolver struct {
	Registry *analysis.Registry
	Store    artifact.Store
	// Workers bounds concurrent generations; <=1 means serial.
	Workers int
	// Timeout bounds one routine invocation; 0 means DefaultTimeout.
	Timeout time.Duration
	// Force regenerates every figure regardless of stored fingerprints.
	Force bool

	// locks serializes producers per figure name so two overlapping builds
	// never race a Put for the same artifact.
	locks sync.Map // name -> *sync.Mutex
}

// plan is one figure's resolution decision, fixed before any generation runs.
type plan struct {
	index       int
	spec        *analysis.Spec
	fingerprint string
	stale       bool
}

// Resolve reconciles the requested names against the store, in
// first-appearance order. Names with no registered spec are reported in
// Report.Missing; a routine failure or timeout aborts the pass with
// FigureGenerationError. Generation of independent figures runs on a worker
// pool; the report's order never depends on completion timing.
func (r *Resolver) Resolve(ctx context.Context, names []string) (*Report, error) {
	logger := logging.New("resolver")
	report := &Report{}

	distinct := dedupe(names)
	plans := make([]*plan, 0, len(distinct))
	for i, name := range distinct {
		spec, ok := r.Registry.Lookup(name)
		if !ok {
			report.Missing = append(report.Missing, name)
			continue
		}
		fp, err := r.Registry.InputsFingerprint(name)
		if err != nil {
			return nil, &FigureGenerationError{Name: name, Err: err}
		}
		plans = append(plans, &plan{
			index:       i,
			spec:        spec,
			fingerprint: fp,
			stale:       r.Force || r.Store.IsStale(name, fp),
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for _, p := range plans {
		if !p.stale {
			continue
		}
		p := p
		g.Go(func() error {
			return r.generate(gctx, p.spec, p.fingerprint, r.Force)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, p := range plans {
		if p.stale {
			report.Generated = append(report.Generated, p.spec.Name)
		} else {
			report.Reused = append(report.Reused, p.spec.Name)
		}
	}
	logger.Info("figures resolved",
		"requested", len(distinct),
		"generated", len(report.Generated),
		"reused", len(report.Reused),
		"missing", len(report.Missing))
	return report, nil
}

// ResolveOne resolves a single figure, failing with UnknownFigureError when
// no spec is registered. force regenerates even when fresh.
func (r *Resolver) ResolveOne(ctx context.Context, name string, force bool) (*artifact.Artifact, error) {
	spec, ok := r.Registry.Lookup(name)
	if !ok {
		return nil, &UnknownFigureError{Name: name}
	}
	fp, err := r.Registry.InputsFingerprint(name)
	if err != nil {
		return nil, &FigureGenerationError{Name: name, Err: err}
	}
	if force || r.Store.IsStale(name, fp) {
		if err := r.generate(ctx, spec, fp, force); err != nil {
			return nil, err
		}
	}
	return r.Store.Get(name)
}

// generate invokes the routine under the per-name lock and the configured
// timeout, then publishes the result with the expected fingerprint.
func (r *Resolver) generate(ctx context.Context, spec *analysis.Spec, fingerprint string, force bool) error {
	mu := r.lockFor(spec.Name)
	mu.Lock()
	defer mu.Unlock()

	// Another producer may have finished while we waited on the lock.
	if !force && !r.Store.IsStale(spec.Name, fingerprint) {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return &FigureGenerationError{Name: spec.Name, Err: err}
	}

	genCtx, cancel := context.WithTimeout(ctx, r.timeout())
	defer cancel()

	start := time.Now()
	result, err := spec.Routine.Produce(genCtx, spec.Inputs)
	if err != nil {
		if genCtx.Err() != nil && ctx.Err() == nil {
			err = genCtx.Err()
		}
		return &FigureGenerationError{Name: spec.Name, Err: err}
	}
	if result == nil || len(result.Data) == 0 {
		return &FigureGenerationError{Name: spec.Name, Err: errEmptyResult}
	}

	if _, err := r.Store.Put(spec.Name, result.Data, result.Format, fingerprint); err != nil {
		return &FigureGenerationError{Name: spec.Name, Err: err}
	}
	logging.New("resolver").Debug("figure generated",
		"name", spec.Name, "kind", spec.Routine.Kind(), "took", time.Since(start))
	return nil
}

func (r *Resolver) lockFor(name string) *sync.Mutex {
	v, _ := r.locks.LoadOrStore(name, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (r *Resolver) workers() int {
	if r.Workers <= 1 {
		return 1
	}
	return r.Workers
}

func (r *Resolver) timeout() time.Duration {
	if r.Timeout <= 0 {
		return DefaultTimeout
	}
	return r.Timeout
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	var out []string
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
