package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"quire/internal/manifest"
)

var figuresFlags struct {
	manifestPath string
	force        bool
}

var figuresCmd = &cobra.Command{
	Use:   "figures [name...]",
	Short: "List declared figures, or resolve the named ones",
	Long: "With no arguments, lists every figure the manifest declares. With\n" +
		"names, resolves each one: regenerates if the stored artifact is stale,\n" +
		"or unconditionally with --force.",
	RunE: runFigures,
}

func init() {
	f := figuresCmd.Flags()
	f.StringVarP(&figuresFlags.manifestPath, "manifest", "m", "report.yaml", "Report manifest path")
	f.BoolVar(&figuresFlags.force, "force", false, "Regenerate even if the stored artifact is fresh")
}

func runFigures(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		m, err := manifest.LoadFromPath(figuresFlags.manifestPath)
		if err != nil {
			return err
		}
		tw := table.NewWriter()
		tw.SetStyle(table.StyleLight)
		tw.AppendHeader(table.Row{"Figure", "Routine"})
		for _, fig := range m.Figures {
			tw.AppendRow(table.Row{fig.Name, fig.Routine})
		}
		fmt.Fprintln(out, tw.Render())
		return nil
	}

	for _, name := range args {
		res, err := pipeline{}.ResolveFigure(cmd.Context(), figuresFlags.manifestPath, name, figuresFlags.force)
		if err != nil {
			return err
		}
		verb := "reused"
		if res.Generated {
			verb = "generated"
		}
		fmt.Fprintf(out, "%s: %s (%s) -> %s\n", name, verb, res.Artifact.Format, res.Artifact.Path)
	}
	return nil
}
