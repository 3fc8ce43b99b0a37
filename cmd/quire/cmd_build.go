package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"quire/internal/logging"
	"quire/internal/manifest"
	"quire/internal/mcp"
	"quire/internal/watch"
)

var buildFlags struct {
	manifestPath string
	formats      []string
	outputDir    string
	force        bool
	watch        bool
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Assemble the report: generate stale figures, compose chapters, render",
	RunE:  runBuild,
}

func init() {
	f := buildCmd.Flags()
	f.StringVarP(&buildFlags.manifestPath, "manifest", "m", "report.yaml", "Report manifest path")
	f.StringSliceVarP(&buildFlags.formats, "format", "f", nil, "Output formats (markdown, html, pdf); default from manifest")
	f.StringVarP(&buildFlags.outputDir, "out", "o", "", "Output directory for rendered reports")
	f.BoolVar(&buildFlags.force, "force", false, "Regenerate every figure even if fingerprints match")
	f.BoolVarP(&buildFlags.watch, "watch", "w", false, "Rebuild when chapters or the manifest change")
}

func runBuild(cmd *cobra.Command, _ []string) error {
	req := mcp.BuildRequest{
		ManifestPath: buildFlags.manifestPath,
		Formats:      buildFlags.formats,
		OutputDir:    buildFlags.outputDir,
		Force:        buildFlags.force,
	}

	out := cmd.OutOrStdout()
	runOnce := func(ctx context.Context) error {
		res, err := pipeline{}.Build(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Build %s: %d figure(s) generated, %d reused\n",
			res.BuildID, len(res.Generated), len(res.Reused))
		for _, o := range res.Outputs {
			fmt.Fprintf(out, "  %s\n", o)
		}
		return nil
	}

	if !buildFlags.watch {
		return runOnce(cmd.Context())
	}

	// First build up front so syntax errors surface before we settle into
	// the watch loop.
	if err := runOnce(cmd.Context()); err != nil {
		logging.New("build").Error("initial build failed", "error", err)
	}

	paths := []string{buildFlags.manifestPath}
	if m, err := manifest.LoadFromPath(buildFlags.manifestPath); err == nil {
		if chs, err := m.ChapterPaths(); err == nil {
			paths = append(paths, chs...)
		}
	}

	w := watch.New(runOnce)
	fmt.Fprintf(out, "Watching for changes (Ctrl-C to stop)\n")
	err := w.Run(cmd.Context(), paths...)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
