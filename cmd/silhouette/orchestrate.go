package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/orchestrator"
)

var orchestrateFlags struct {
	tenant       string
	app          string
	taskID       string
	name         string
	objective    string
	category     string
	priority     int
	capabilities []string
	appType      string
	plan         string
	callback     string
}

var orchestrateCmd = &cobra.Command{
	Use:   "orchestrate",
	Short: "Route a task to the best matching team",
	Example: `  silhouette orchestrate --tenant acme --app medluxe \
      --name "Review patient intake flow" --capability medical_ai`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		resp, err := a.orchestrator.Orchestrate(cmd.Context(), orchestrator.TaskRequest{
			TenantID:             orchestrateFlags.tenant,
			AppID:                orchestrateFlags.app,
			TaskID:               orchestrateFlags.taskID,
			TaskName:             orchestrateFlags.name,
			Objective:            orchestrateFlags.objective,
			Category:             orchestrateFlags.category,
			Priority:             orchestrateFlags.priority,
			RequiredCapabilities: orchestrateFlags.capabilities,
			AppType:              orchestrateFlags.appType,
			ParentPlanID:         orchestrateFlags.plan,
			CallbackURL:          orchestrateFlags.callback,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, resp)
	},
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Report task outcomes",
}

var taskResultFlags struct {
	tenant  string
	app     string
	message string
}

var taskCompleteCmd = &cobra.Command{
	Use:   "complete <task-id>",
	Short: "Record a task completion reported by a team",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return finishTask(cmd, args[0], false)
	},
}

var taskFailCmd = &cobra.Command{
	Use:   "fail <task-id>",
	Short: "Record a task failure reported by a team",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return finishTask(cmd, args[0], true)
	},
}

func finishTask(cmd *cobra.Command, taskID string, failed bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	result := orchestrator.TaskResult{
		TenantID: taskResultFlags.tenant,
		AppID:    taskResultFlags.app,
		TaskID:   taskID,
	}
	if failed {
		result.Error = taskResultFlags.message
		if result.Error == "" {
			result.Error = "task failed"
		}
		if err := a.orchestrator.FailTask(cmd.Context(), result); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "task %s marked failed\n", taskID)
		return nil
	}
	if err := a.orchestrator.CompleteTask(cmd.Context(), result); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "task %s marked completed\n", taskID)
	return nil
}

func init() {
	orchestrateCmd.Flags().StringVar(&orchestrateFlags.tenant, "tenant", "", "Tenant identifier")
	orchestrateCmd.Flags().StringVar(&orchestrateFlags.app, "app", "", "Application identifier")
	orchestrateCmd.Flags().StringVar(&orchestrateFlags.taskID, "task-id", "", "Existing task id (defaults to a new id)")
	orchestrateCmd.Flags().StringVar(&orchestrateFlags.name, "name", "", "Task name")
	orchestrateCmd.Flags().StringVar(&orchestrateFlags.objective, "objective", "", "Task objective")
	orchestrateCmd.Flags().StringVar(&orchestrateFlags.category, "category", "", "Task category for routing")
	orchestrateCmd.Flags().IntVar(&orchestrateFlags.priority, "priority", 0, "Task priority (1 is most urgent)")
	orchestrateCmd.Flags().StringSliceVar(&orchestrateFlags.capabilities, "capability", nil, "Required team capability (repeatable)")
	orchestrateCmd.Flags().StringVar(&orchestrateFlags.appType, "app-type", "", "Application type for routing")
	orchestrateCmd.Flags().StringVar(&orchestrateFlags.plan, "plan", "", "Parent plan id")
	orchestrateCmd.Flags().StringVar(&orchestrateFlags.callback, "callback", "", "URL notified when the task finishes")
	for _, flag := range []string{"tenant", "app"} {
		if err := orchestrateCmd.MarkFlagRequired(flag); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}

	taskCmd.PersistentFlags().StringVar(&taskResultFlags.tenant, "tenant", "", "Tenant identifier")
	taskCmd.PersistentFlags().StringVar(&taskResultFlags.app, "app", "", "Application identifier")
	taskFailCmd.Flags().StringVar(&taskResultFlags.message, "error", "", "Failure description")

	taskCmd.AddCommand(taskCompleteCmd)
	taskCmd.AddCommand(taskFailCmd)
}
