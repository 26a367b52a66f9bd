package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/taskfleet/taskfleet/pkg/models"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the agent fleet",
	RunE:  runAgents,
}

func runAgents(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	resp, err := fleetClient().Get(cfg.BaseURL() + "/api/agents")
	if err != nil {
		return fmt.Errorf("reach coordinator at %s: %w (is 'taskfleet serve' running?)", cfg.BaseURL(), err)
	}
	defer resp.Body.Close()

	var body struct {
		Agents []models.Agent `json:"agents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	fmt.Printf("Fleet (%d agents):\n", len(body.Agents))
	for _, a := range body.Agents {
		load := fmt.Sprintf("%d/%d", a.CurrentLoad, a.MaxCapacity)
		if !a.HasCapacity() {
			load = color.RedString(load)
		}
		active := ""
		if !a.Active {
			active = color.New(color.Faint).Sprint(" (inactive)")
		}
		fmt.Printf("  %s: %s [%s] load %s%s\n", a.ID, a.Name, a.Specialization, load, active)
	}
	return nil
}
