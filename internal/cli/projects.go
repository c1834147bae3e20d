package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hyzmat-tm/portfolio/internal/config"
	"github.com/hyzmat-tm/portfolio/internal/models"
	"github.com/hyzmat-tm/portfolio/internal/store"
)

func newProjectsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Inspect the project document",
	}
	cmd.AddCommand(newProjectsListCmd(configPath))
	return cmd
}

func newProjectsListCmd(configPath *string) *cobra.Command {
	var (
		category string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := models.ParseCategory(category)
			if err != nil {
				return err
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			projects := store.New(cfg.DBPath, nil).ListByCategory(c)
			if asJSON {
				data, err := json.MarshalIndent(projects, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			return printProjects(cmd, projects)
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "filter by category (personal, kwork)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func printProjects(cmd *cobra.Command, projects []models.Project) error {
	if len(projects) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No projects.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tTAGS")
	for _, p := range projects {
		category := string(p.Category)
		if category == "" {
			category = "-"
		}
		names := make([]string, 0, len(p.Tags))
		for _, t := range p.Tags {
			names = append(names, t.Name)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.ID, p.Title, category, strings.Join(names, ","))
	}
	return w.Flush()
}
