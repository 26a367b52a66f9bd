package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/taskfleet/taskfleet/internal/orchestrator"
	"github.com/taskfleet/taskfleet/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Show a task's status",
	Long: `Display a task's current state from a running fleet coordinator.

Shows:
  - Task status, priority, and classified intent
  - Every assignment with its agent and progress
  - Recent progress updates, newest first`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	resp, err := fleetClient().Get(cfg.BaseURL() + "/api/tasks/" + args[0])
	if err != nil {
		return fmt.Errorf("reach coordinator at %s: %w (is 'taskfleet serve' running?)", cfg.BaseURL(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 404 {
		return fmt.Errorf("task %s not found", args[0])
	}

	var status orchestrator.TaskStatusResult
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if status.Error != "" {
		return fmt.Errorf("%s", status.Error)
	}

	displayTask(status)
	return nil
}

func displayTask(status orchestrator.TaskStatusResult) {
	task := status.Task

	fmt.Printf("Task: %s\n", task.Title)
	fmt.Printf("  ID: %s\n", task.ExternalID)
	fmt.Printf("  Status: %s\n", colorStatus(task.Status))
	fmt.Printf("  Priority: %s\n", task.Priority)
	if task.Intent != nil {
		fmt.Printf("  Intent: %s (%s)\n", task.Intent.PrimaryIntent, task.Intent.Complexity)
	}
	fmt.Printf("  Created: %s ago\n", formatDuration(time.Since(task.CreatedAt)))

	if len(status.Assignments) == 0 {
		fmt.Println("  Assignments: none")
	} else {
		fmt.Printf("\nAssignments (%d):\n", len(status.Assignments))
		for _, a := range status.Assignments {
			fmt.Printf("  %s: %s (%s) %s %d%%\n",
				a.ExternalID, a.AgentName, a.AgentSpecialization,
				colorAssignment(a.Status), a.Progress)
		}
	}

	if len(status.Updates) > 0 {
		limit := len(status.Updates)
		if limit > 10 {
			limit = 10
		}
		fmt.Printf("\nRecent updates:\n")
		for _, u := range status.Updates[:limit] {
			fmt.Printf("  [%s] %s\n", u.SourceType, u.Message)
		}
	}
}

func colorStatus(s models.TaskStatus) string {
	switch s {
	case models.TaskStatusCompleted:
		return color.GreenString(string(s))
	case models.TaskStatusInProgress:
		return color.YellowString(string(s))
	default:
		return string(s)
	}
}

func colorAssignment(s models.AssignmentStatus) string {
	switch s {
	case models.AssignmentStatusCompleted:
		return color.GreenString(string(s))
	case models.AssignmentStatusFailed:
		return color.RedString(string(s))
	case models.AssignmentStatusPartial:
		return color.YellowString(string(s))
	case models.AssignmentStatusInProgress:
		return color.CyanString(string(s))
	default:
		return string(s)
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return d.String()
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
