package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var statusFlags struct {
	manifestPath string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored figure artifacts and recent builds",
	RunE:  runStatus,
}

func init() {
	f := statusCmd.Flags()
	f.StringVarP(&statusFlags.manifestPath, "manifest", "m", "report.yaml", "Report manifest path")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	res, err := pipeline{}.Status(cmd.Context(), statusFlags.manifestPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(res.Artifacts) == 0 {
		fmt.Fprintln(out, "No figure artifacts stored. Run 'quire build' first.")
	} else {
		tw := table.NewWriter()
		tw.SetStyle(table.StyleLight)
		tw.AppendHeader(table.Row{"Figure", "Format", "Fingerprint", "Produced"})
		for _, a := range res.Artifacts {
			tw.AppendRow(table.Row{a.Name, a.Format, short(a.Fingerprint), a.ProducedAt})
		}
		fmt.Fprintln(out, tw.Render())
	}

	if len(res.Builds) > 0 {
		tw := table.NewWriter()
		tw.SetStyle(table.StyleLight)
		tw.AppendHeader(table.Row{"Build", "Status", "Generated", "Reused", "Started", "Output"})
		for _, b := range res.Builds {
			tw.AppendRow(table.Row{short(b.ID), b.Status, b.Generated, b.Reused, b.StartedAt, b.Output})
		}
		fmt.Fprintln(out, tw.Render())
	}
	return nil
}

func short(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:12]
}
