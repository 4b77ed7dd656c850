package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/planner"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Create and inspect task plans",
}

var planCreateFlags struct {
	planID    string
	tenant    string
	app       string
	name      string
	planType  string
	objective string
	priority  int
	async     bool
}

var planCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a plan from an objective",
	Example: `  silhouette plan create --tenant acme --app nwc \
      --objective "automate the invoice approval process"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		req := planner.PlanRequest{
			PlanID:    planCreateFlags.planID,
			TenantID:  planCreateFlags.tenant,
			AppID:     planCreateFlags.app,
			PlanName:  planCreateFlags.name,
			PlanType:  planCreateFlags.planType,
			Objective: planCreateFlags.objective,
			Priority:  planCreateFlags.priority,
		}

		if planCreateFlags.async {
			planID, err := a.planner.Submit(req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "plan %s queued\n", planID.String())
			return nil
		}

		resp, err := a.planner.CreatePlan(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printJSON(cmd, resp)
	},
}

var planShowCmd = &cobra.Command{
	Use:   "show <plan-id>",
	Short: "Show a plan and its tasks from the read model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		detail, err := a.planner.GetPlan(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, detail)
	},
}

func printJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func init() {
	planCreateCmd.Flags().StringVar(&planCreateFlags.planID, "plan-id", "", "Plan id to create under (defaults to a new id)")
	planCreateCmd.Flags().StringVar(&planCreateFlags.tenant, "tenant", "", "Tenant identifier")
	planCreateCmd.Flags().StringVar(&planCreateFlags.app, "app", "", "Application identifier")
	planCreateCmd.Flags().StringVar(&planCreateFlags.name, "name", "", "Plan name (defaults to the objective)")
	planCreateCmd.Flags().StringVar(&planCreateFlags.planType, "type", "", "Plan type: workflow, project, or task_sequence")
	planCreateCmd.Flags().StringVar(&planCreateFlags.objective, "objective", "", "Objective to plan for")
	planCreateCmd.Flags().IntVar(&planCreateFlags.priority, "priority", 0, "Submission priority (1 is most urgent)")
	planCreateCmd.Flags().BoolVar(&planCreateFlags.async, "async", false, "Queue the plan instead of waiting for it")
	for _, flag := range []string{"tenant", "app", "objective"} {
		if err := planCreateCmd.MarkFlagRequired(flag); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}

	planCmd.AddCommand(planCreateCmd)
	planCmd.AddCommand(planShowCmd)
}
