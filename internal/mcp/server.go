// Package mcp exposes report assembly over the Model Context Protocol so
// agent frontends can drive builds without shelling out to the CLI.
package mcp

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"quire/internal/logging"
)

// Pipeline is the report machinery the server drives. The CLI wires in
// an implementation backed by the manifest loader, artifact store,
// resolver and render backend.
type Pipeline interface {
	Build(ctx context.Context, req BuildRequest) (BuildResult, error)
	Status(ctx context.Context, manifestPath string) (StatusResult, error)
	ResolveFigure(ctx context.Context, manifestPath, name string, force bool) (FigureResult, error)
	Clean(ctx context.Context, manifestPath string) (int, error)
}

// BuildRequest selects a manifest and overrides for one build.
type BuildRequest struct {
	ManifestPath string
	Formats      []string
	OutputDir    string
	Force        bool
}

// BuildResult summarises a finished build.
type BuildResult struct {
	BuildID   string   `json:"build_id"`
	Generated []string `json:"generated,omitempty"`
	Reused    []string `json:"reused,omitempty"`
	Outputs   []string `json:"outputs"`
	Elapsed   string   `json:"elapsed"`
}

// ArtifactInfo is the wire form of a stored figure artifact.
type ArtifactInfo struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Format      string `json:"format"`
	Fingerprint string `json:"fingerprint"`
	ProducedAt  string `json:"produced_at"`
}

// BuildInfo is the wire form of a recorded build.
type BuildInfo struct {
	ID         string `json:"id"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
	Status     string `json:"status"`
	Generated  int    `json:"generated"`
	Reused     int    `json:"reused"`
	Output     string `json:"output,omitempty"`
}

type StatusResult struct {
	Artifacts []ArtifactInfo `json:"artifacts"`
	Builds    []BuildInfo    `json:"builds"`
}

type FigureResult struct {
	Artifact  ArtifactInfo `json:"artifact"`
	Generated bool         `json:"generated"`
}

// Server wraps the MCP SDK server around a Pipeline. Builds are
// single-flight: a second build_report while one runs is rejected.
type Server struct {
	MCPServer   *sdkmcp.Server
	ProjectRoot string

	pipeline Pipeline

	mu       sync.Mutex
	building bool
}

// NewServer creates an MCP server exposing report tools. It captures the
// current working directory as the project root so relative manifest
// paths resolve correctly.
func NewServer(p Pipeline) *Server {
	cwd, _ := os.Getwd()
	s := &Server{ProjectRoot: cwd, pipeline: p}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "quire", Version: "dev"},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "build_report",
		Description: "Assemble the report from its manifest: generate stale figures, compose chapters and render the requested formats.",
	}, s.handleBuildReport)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "report_status",
		Description: "List stored figure artifacts and recent builds for a manifest.",
	}, s.handleReportStatus)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "resolve_figure",
		Description: "Resolve a single named figure, regenerating it if stale (or unconditionally with force).",
	}, s.handleResolveFigure)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "clean_artifacts",
		Description: "Delete all stored figure artifacts and their index entries. The next build regenerates everything.",
	}, s.handleCleanArtifacts)
}

// --- Tool input/output types ---

type buildReportInput struct {
	Manifest  string   `json:"manifest" jsonschema:"path to the report manifest (report.yaml)"`
	Formats   []string `json:"formats,omitempty" jsonschema:"output formats (markdown, html, pdf); default from manifest"`
	OutputDir string   `json:"output_dir,omitempty" jsonschema:"directory for rendered output files"`
	Force     bool     `json:"force,omitempty" jsonschema:"regenerate every figure even if fingerprints match"`
}

type reportStatusInput struct {
	Manifest string `json:"manifest" jsonschema:"path to the report manifest"`
}

type resolveFigureInput struct {
	Manifest string `json:"manifest" jsonschema:"path to the report manifest"`
	Name     string `json:"name" jsonschema:"figure name to resolve"`
	Force    bool   `json:"force,omitempty" jsonschema:"regenerate even if the stored artifact is fresh"`
}

type cleanArtifactsInput struct {
	Manifest string `json:"manifest" jsonschema:"path to the report manifest"`
}

type cleanArtifactsOutput struct {
	Removed int `json:"removed"`
}

// --- Tool handlers ---

func (s *Server) handleBuildReport(ctx context.Context, _ *sdkmcp.CallToolRequest, input buildReportInput) (*sdkmcp.CallToolResult, BuildResult, error) {
	logger := logging.New("mcp")
	if input.Manifest == "" {
		return nil, BuildResult{}, fmt.Errorf("manifest is required")
	}

	s.mu.Lock()
	if s.building {
		s.mu.Unlock()
		return nil, BuildResult{}, fmt.Errorf("a build is already running")
	}
	s.building = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.building = false
		s.mu.Unlock()
	}()

	start := time.Now()
	res, err := s.pipeline.Build(ctx, BuildRequest{
		ManifestPath: input.Manifest,
		Formats:      input.Formats,
		OutputDir:    input.OutputDir,
		Force:        input.Force,
	})
	if err != nil {
		logger.Error("build failed", "manifest", input.Manifest, "error", err)
		return nil, BuildResult{}, fmt.Errorf("build_report: %w", err)
	}
	res.Elapsed = time.Since(start).Round(time.Millisecond).String()
	logger.Info("build complete",
		"build_id", res.BuildID,
		"generated", len(res.Generated),
		"reused", len(res.Reused),
		"elapsed", res.Elapsed)
	return nil, res, nil
}

func (s *Server) handleReportStatus(ctx context.Context, _ *sdkmcp.CallToolRequest, input reportStatusInput) (*sdkmcp.CallToolResult, StatusResult, error) {
	if input.Manifest == "" {
		return nil, StatusResult{}, fmt.Errorf("manifest is required")
	}
	res, err := s.pipeline.Status(ctx, input.Manifest)
	if err != nil {
		return nil, StatusResult{}, fmt.Errorf("report_status: %w", err)
	}
	return nil, res, nil
}

func (s *Server) handleResolveFigure(ctx context.Context, _ *sdkmcp.CallToolRequest, input resolveFigureInput) (*sdkmcp.CallToolResult, FigureResult, error) {
	if input.Manifest == "" {
		return nil, FigureResult{}, fmt.Errorf("manifest is required")
	}
	if input.Name == "" {
		return nil, FigureResult{}, fmt.Errorf("name is required")
	}
	res, err := s.pipeline.ResolveFigure(ctx, input.Manifest, input.Name, input.Force)
	if err != nil {
		return nil, FigureResult{}, fmt.Errorf("resolve_figure: %w", err)
	}
	return nil, res, nil
}

func (s *Server) handleCleanArtifacts(ctx context.Context, _ *sdkmcp.CallToolRequest, input cleanArtifactsInput) (*sdkmcp.CallToolResult, cleanArtifactsOutput, error) {
	if input.Manifest == "" {
		return nil, cleanArtifactsOutput{}, fmt.Errorf("manifest is required")
	}
	n, err := s.pipeline.Clean(ctx, input.Manifest)
	if err != nil {
		return nil, cleanArtifactsOutput{}, fmt.Errorf("clean_artifacts: %w", err)
	}
	logging.New("mcp").Info("artifacts cleaned", "removed", n)
	return nil, cleanArtifactsOutput{Removed: n}, nil
}
