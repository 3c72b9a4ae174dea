package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/proximity-cli/internal/analysis"
	"github.com/sells-group/proximity-cli/internal/model"
)

var scanSubject subjectFlags

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Count plants and their capacity around a site",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("analyze"); err != nil {
			return err
		}
		radius, err := radiusFlag(cmd, cfg.Analysis.ScanRadiusKM)
		if err != nil {
			return err
		}
		subject, err := scanSubject.subject(cmd)
		if err != nil {
			return err
		}

		resolver, err := initResolver()
		if err != nil {
			return err
		}
		res, err := resolver.ResolveCategory(ctx, model.CategoryPlants)
		if err != nil {
			return err
		}

		summary := analysis.QuickScan(subject, radius, res.Collection)
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		}
		formatScan(os.Stdout, subject, summary)
		return nil
	},
}

func init() {
	scanSubject.register(scanCmd)
	scanCmd.Flags().Float64("radius", 0, "scan radius in kilometers (default from config)")
	scanCmd.Flags().Bool("json", false, "print the summary as JSON")
	rootCmd.AddCommand(scanCmd)
}
