package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Browse the candidate-project registry",
}

// -- projects list --

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registry projects",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := loadRegistry(cmd.Context())
		if err != nil {
			return err
		}

		term, _ := cmd.Flags().GetString("q")
		sheet, _ := cmd.Flags().GetString("sheet")
		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			limit = cfg.Analysis.ListLimit
		}

		matches := reg.Search(term, sheet)
		if len(matches) == 0 {
			fmt.Fprintln(os.Stderr, "No projects found.")
			return nil
		}
		shown := matches
		if limit > 0 && len(shown) > limit {
			shown = shown[:limit]
		}
		formatProjects(os.Stdout, shown)
		if len(shown) < len(matches) {
			fmt.Fprintf(os.Stderr, "Showing %d of %d projects.\n", len(shown), len(matches))
		}
		return nil
	},
}

// -- projects show --

var projectsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a project and its permit stages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry(cmd.Context())
		if err != nil {
			return err
		}
		p, ok := reg.Find(args[0])
		if !ok {
			return eris.Errorf("project not found: %s", args[0])
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		}
		formatProject(os.Stdout, p, reg.Headers(p.Sheet))
		return nil
	},
}

func init() {
	projectsListCmd.Flags().String("q", "", "keep projects with any field containing this text")
	projectsListCmd.Flags().String("sheet", "", "restrict to one registry sheet")
	projectsListCmd.Flags().Int("limit", 0, "max number of projects to display (default from config)")

	projectsShowCmd.Flags().Bool("json", false, "print the project as JSON")

	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsShowCmd)
	rootCmd.AddCommand(projectsCmd)
}
