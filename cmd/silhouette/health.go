package main

import (
	"github.com/spf13/cobra"

	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/planner"
)

type healthReport struct {
	Status   string         `json:"status"`
	Database string         `json:"database"`
	Planner  planner.Health `json:"planner"`
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Report database and planner queue health",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		report := healthReport{
			Status:   "ok",
			Database: "ok",
			Planner:  a.planner.Health(),
		}
		if err := a.db.Health(cmd.Context()); err != nil {
			report.Status = "degraded"
			report.Database = err.Error()
		}
		if report.Planner.Status != "ok" {
			report.Status = "degraded"
		}
		return printJSON(cmd, report)
	},
}
