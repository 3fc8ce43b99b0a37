package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"quire/adapters/rscript"
	"quire/adapters/tablefig"
	"quire/adapters/texfig"
	"quire/internal/analysis"
	"quire/internal/artifact"
	"quire/internal/assemble"
	"quire/internal/chapter"
	"quire/internal/manifest"
	"quire/internal/mcp"
	"quire/internal/render"
	"quire/internal/resolve"
)

// Exit codes distinguish failure classes for scripting around the CLI.
const (
	exitMalformed  = 2
	exitUnresolved = 3
	exitGeneration = 4
	exitRender     = 5
)

func exitCode(err error) int {
	var malformed *chapter.MalformedChapterError
	var unresolved *assemble.UnresolvedFigureError
	var unknown *resolve.UnknownFigureError
	var generation *resolve.FigureGenerationError
	var renderErr *render.RenderError
	switch {
	case errors.As(err, &malformed):
		return exitMalformed
	case errors.As(err, &unresolved):
		return exitUnresolved
	case errors.As(err, &unknown), errors.As(err, &generation):
		return exitGeneration
	case errors.As(err, &renderErr):
		return exitRender
	default:
		return 1
	}
}

// pathInputs names the routine input that is a file path, per kind. Those
// are resolved against the manifest directory so a build works from any
// cwd.
var pathInputs = map[string]string{
	"texfig":  "tex",
	"rscript": "script",
}

// buildRegistry registers every figure the manifest declares, binding its
// routine kind to the matching adapter.
func buildRegistry(m *manifest.Manifest) (*analysis.Registry, error) {
	reg := analysis.NewRegistry()
	for _, fig := range m.Figures {
		var routine analysis.Routine
		switch fig.Routine {
		case "texfig":
			routine = texfig.New()
		case "rscript":
			routine = rscript.New()
		case "tablefig":
			routine = tablefig.New()
		default:
			return nil, fmt.Errorf("figure %q: unknown routine kind %q", fig.Name, fig.Routine)
		}
		inputs := fig.Inputs
		if key, ok := pathInputs[fig.Routine]; ok {
			if p, ok := inputs[key].(string); ok && p != "" {
				resolved := make(map[string]any, len(inputs))
				for k, v := range inputs {
					resolved[k] = v
				}
				resolved[key] = m.ResolvePath(p)
				inputs = resolved
			}
		}
		if err := reg.Register(fig.Name, routine, inputs); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func openStore(m *manifest.Manifest) (*artifact.SqlStore, error) {
	return artifact.Open(m.ResolvedDBPath(), m.ResolvedFiguresDir())
}

// pipeline wires the manifest loader, store, resolver, assembler and render
// backend into one build surface shared by the CLI commands and the MCP
// server.
type pipeline struct{}

// buildOnce runs one full build for the manifest at path and records it in
// the store's build history.
func (pipeline) buildOnce(ctx context.Context, req mcp.BuildRequest) (mcp.BuildResult, error) {
	m, err := manifest.LoadFromPath(req.ManifestPath)
	if err != nil {
		return mcp.BuildResult{}, err
	}
	reg, err := buildRegistry(m)
	if err != nil {
		return mcp.BuildResult{}, err
	}
	store, err := openStore(m)
	if err != nil {
		return mcp.BuildResult{}, err
	}
	defer store.Close()

	formats := m.Formats
	if len(req.Formats) > 0 {
		formats = req.Formats
	}
	if len(formats) == 0 {
		formats = []string{"markdown"}
	}
	parsed := make([]render.Format, 0, len(formats))
	for _, f := range formats {
		pf, err := render.ParseFormat(f)
		if err != nil {
			return mcp.BuildResult{}, err
		}
		parsed = append(parsed, pf)
	}

	outDir := ""
	if m.Output != "" {
		outDir = m.ResolvePath(m.Output)
	}
	// An explicit flag stays relative to the invoker's cwd.
	if req.OutputDir != "" {
		outDir = req.OutputDir
	}
	if outDir == "" {
		outDir = "."
	}

	rec := &artifact.BuildRecord{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Status:    "running",
	}
	if err := store.SaveBuild(rec); err != nil {
		return mcp.BuildResult{}, err
	}
	finish := func(status string) {
		rec.Status = status
		rec.FinishedAt = time.Now().UTC()
		_ = store.SaveBuild(rec)
	}

	paths, err := m.ChapterPaths()
	if err != nil {
		finish("error")
		return mcp.BuildResult{}, err
	}

	asm := &assemble.Assembler{
		Store: store,
		Resolver: &resolve.Resolver{
			Registry: reg,
			Store:    store,
			Workers:  m.Workers,
			Timeout:  m.GenerationTimeout(),
			Force:    req.Force,
		},
		Title: m.Title,
	}
	doc, err := asm.AssembleFiles(ctx, paths)
	if err != nil {
		finish("error")
		return mcp.BuildResult{}, err
	}

	backend := render.New()
	outputs := make([]string, 0, len(parsed))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		finish("error")
		return mcp.BuildResult{}, fmt.Errorf("create output dir: %w", err)
	}
	for _, pf := range parsed {
		data, err := backend.Render(ctx, doc, pf)
		if err != nil {
			finish("error")
			return mcp.BuildResult{}, err
		}
		out := filepath.Join(outDir, "report."+render.Ext(pf))
		if err := os.WriteFile(out, data, 0o644); err != nil {
			finish("error")
			return mcp.BuildResult{}, fmt.Errorf("write %s: %w", out, err)
		}
		outputs = append(outputs, out)
	}

	rec.Generated = len(doc.Report.Generated)
	rec.Reused = len(doc.Report.Reused)
	if len(outputs) > 0 {
		rec.Output = outputs[0]
	}
	finish("ok")

	return mcp.BuildResult{
		BuildID:   rec.ID,
		Generated: doc.Report.Generated,
		Reused:    doc.Report.Reused,
		Outputs:   outputs,
	}, nil
}

// --- mcp.Pipeline ---

func (p pipeline) Build(ctx context.Context, req mcp.BuildRequest) (mcp.BuildResult, error) {
	return p.buildOnce(ctx, req)
}

func (pipeline) Status(_ context.Context, manifestPath string) (mcp.StatusResult, error) {
	m, err := manifest.LoadFromPath(manifestPath)
	if err != nil {
		return mcp.StatusResult{}, err
	}
	store, err := openStore(m)
	if err != nil {
		return mcp.StatusResult{}, err
	}
	defer store.Close()

	arts, err := store.List()
	if err != nil {
		return mcp.StatusResult{}, err
	}
	builds, err := store.ListBuilds(10)
	if err != nil {
		return mcp.StatusResult{}, err
	}

	res := mcp.StatusResult{}
	for _, a := range arts {
		res.Artifacts = append(res.Artifacts, artifactInfo(a))
	}
	for _, b := range builds {
		info := mcp.BuildInfo{
			ID:        b.ID,
			StartedAt: b.StartedAt.Format(time.RFC3339),
			Status:    b.Status,
			Generated: b.Generated,
			Reused:    b.Reused,
			Output:    b.Output,
		}
		if !b.FinishedAt.IsZero() {
			info.FinishedAt = b.FinishedAt.Format(time.RFC3339)
		}
		res.Builds = append(res.Builds, info)
	}
	return res, nil
}

func artifactInfo(a *artifact.Artifact) mcp.ArtifactInfo {
	return mcp.ArtifactInfo{
		Name:        a.Name,
		Path:        a.Path,
		Format:      a.Format,
		Fingerprint: a.Fingerprint,
		ProducedAt:  a.ProducedAt.Format(time.RFC3339),
	}
}

func (pipeline) ResolveFigure(ctx context.Context, manifestPath, name string, force bool) (mcp.FigureResult, error) {
	m, err := manifest.LoadFromPath(manifestPath)
	if err != nil {
		return mcp.FigureResult{}, err
	}
	reg, err := buildRegistry(m)
	if err != nil {
		return mcp.FigureResult{}, err
	}
	store, err := openStore(m)
	if err != nil {
		return mcp.FigureResult{}, err
	}
	defer store.Close()

	if _, ok := reg.Lookup(name); !ok {
		return mcp.FigureResult{}, &resolve.UnknownFigureError{Name: name}
	}
	fp, err := reg.InputsFingerprint(name)
	if err != nil {
		return mcp.FigureResult{}, err
	}
	wasStale := force || store.IsStale(name, fp)

	r := &resolve.Resolver{Registry: reg, Store: store, Timeout: m.GenerationTimeout()}
	art, err := r.ResolveOne(ctx, name, force)
	if err != nil {
		return mcp.FigureResult{}, err
	}
	return mcp.FigureResult{
		Artifact:  artifactInfo(art),
		Generated: wasStale,
	}, nil
}

func (pipeline) Clean(_ context.Context, manifestPath string) (int, error) {
	m, err := manifest.LoadFromPath(manifestPath)
	if err != nil {
		return 0, err
	}
	store, err := openStore(m)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	arts, err := store.List()
	if err != nil {
		return 0, err
	}
	if err := store.Clean(); err != nil {
		return 0, err
	}
	return len(arts), nil
}
