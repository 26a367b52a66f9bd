package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/taskfleet/taskfleet/internal/orchestrator"
	"github.com/taskfleet/taskfleet/pkg/models"
)

// modelPriority passes the flag through as a Priority. Validation
// happens server side; empty means the server default.
func modelPriority(s string) models.Priority {
	return models.Priority(strings.ToLower(strings.TrimSpace(s)))
}

var (
	submitUser        string
	submitDescription string
	submitPriority    string
)

var submitCmd = &cobra.Command{
	Use:   "submit <title>",
	Short: "Submit a task to the fleet",
	Long: `Submit a task to a running fleet coordinator.

The coordinator classifies the task, plans work packages, and delegates
them to agents. The returned task ID can be used with 'taskfleet status'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVar(&submitUser, "user", "cli", "User ID recorded on the task")
	submitCmd.Flags().StringVarP(&submitDescription, "description", "d", "", "Task description")
	submitCmd.Flags().StringVarP(&submitPriority, "priority", "p", "", "Priority: low, normal, high, critical")
}

func fleetClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}

func runSubmit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	body, err := json.Marshal(orchestrator.TaskRequest{
		UserID:      submitUser,
		Title:       strings.Join(args, " "),
		Description: submitDescription,
		Priority:    modelPriority(submitPriority),
	})
	if err != nil {
		return err
	}

	resp, err := fleetClient().Post(cfg.BaseURL()+"/api/tasks", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("reach coordinator at %s: %w (is 'taskfleet serve' running?)", cfg.BaseURL(), err)
	}
	defer resp.Body.Close()

	var result orchestrator.ReceiveTaskResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("task rejected: %s", result.Error)
	}

	fmt.Printf("%s Task %s\n", color.GreenString("✓"), result.TaskID)
	if result.Understanding != nil {
		fmt.Printf("  Intent: %s (%s)\n", result.Understanding.PrimaryIntent, result.Understanding.Complexity)
	}
	fmt.Printf("  Assignments: %d\n", len(result.Assignments))
	for _, a := range result.Assignments {
		fmt.Printf("    %s -> %s\n", a.ExternalID, a.AgentID)
	}
	return nil
}
