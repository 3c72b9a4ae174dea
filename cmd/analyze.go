package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/proximity-cli/internal/analysis"
	"github.com/sells-group/proximity-cli/internal/model"
)

var analyzeSubject subjectFlags

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze infrastructure and protected areas around a site",
	Long:  "Resolves every dataset layer, then reports nearby plants, lines and substations and the protected areas that overlap or lie within the radius.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		asJSON, _ := cmd.Flags().GetBool("json")
		limit, _ := cmd.Flags().GetInt("limit")
		record, _ := cmd.Flags().GetBool("record")

		mode := "analyze"
		if record {
			mode = "record"
		}
		if err := cfg.Validate(mode); err != nil {
			return err
		}

		radius, err := radiusFlag(cmd, cfg.Analysis.RadiusKM)
		if err != nil {
			return err
		}
		subject, err := analyzeSubject.subject(cmd)
		if err != nil {
			return err
		}

		ds, _, err := loadDatasets(ctx)
		if err != nil {
			return err
		}

		engine := analysis.Engine{BufferSteps: cfg.Analysis.BufferSteps}
		bundle := engine.Run(subject, radius, ds)
		zap.L().Info("analysis complete",
			zap.String("subject", subject.Name),
			zap.Float64("radius_km", radius),
			zap.Any("counts", bundle.Counts),
		)

		runID := ""
		if record {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			run := model.NewAnalysisRun(bundle)
			if err := st.CreateRun(ctx, &run); err != nil {
				return err
			}
			runID = run.ID
			fmt.Fprintf(os.Stderr, "Recorded run %s\n", run.ID)
		}

		if asJSON {
			return writeBundleJSON(os.Stdout, bundle, runID)
		}
		formatBundle(os.Stdout, bundle, limit)
		return nil
	},
}

func init() {
	analyzeSubject.register(analyzeCmd)
	analyzeCmd.Flags().Float64("radius", 0, "search radius in kilometers (default from config)")
	analyzeCmd.Flags().Bool("json", false, "print the full result bundle as JSON")
	analyzeCmd.Flags().Int("limit", 10, "max rows listed per category (0 lists all)")
	analyzeCmd.Flags().Bool("record", false, "save the analysis to the run log")
	rootCmd.AddCommand(analyzeCmd)
}
