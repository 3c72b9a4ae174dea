package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "Inspect the infrastructure and protected-area layers",
}

var datasetsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Resolve every layer and report its source and size",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, results, err := loadDatasets(cmd.Context())
		if err != nil {
			return err
		}
		formatDatasetResults(os.Stdout, results)

		degraded := 0
		for _, r := range results {
			if r.Degraded() {
				degraded++
			}
		}
		if degraded > 0 {
			fmt.Fprintf(os.Stderr, "%d optional layer(s) unavailable; analyses will report them empty.\n", degraded)
		}
		return nil
	},
}

func init() {
	datasetsCmd.AddCommand(datasetsCheckCmd)
	rootCmd.AddCommand(datasetsCmd)
}
