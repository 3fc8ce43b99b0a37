package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanFlags struct {
	manifestPath string
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete all stored figure artifacts and their index entries",
	Long: "Deletes every figure payload under the artifact directory and clears\n" +
		"the index. The next build regenerates everything from scratch.",
	RunE: runClean,
}

func init() {
	f := cleanCmd.Flags()
	f.StringVarP(&cleanFlags.manifestPath, "manifest", "m", "report.yaml", "Report manifest path")
}

func runClean(cmd *cobra.Command, _ []string) error {
	n, err := pipeline{}.Clean(cmd.Context(), cleanFlags.manifestPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d artifact(s)\n", n)
	return nil
}
