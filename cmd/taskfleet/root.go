package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "taskfleet",
	Short: "Task delegation fleet coordinator",
	Long: `Taskfleet accepts tasks, classifies and plans them with an LLM,
and delegates the work packages across a fleet of specialized agents.

Each assignment is decomposed into small work bots that execute
sequentially, with progress recorded at every step. Task status is
available over HTTP and streamed live over WebSocket.

Core capabilities:
- Classifies intent and complexity for every submitted task
- Plans work packages and routes them to matching agents
- Tracks agent load and reroutes around saturated agents
- Rolls bot and assignment outcomes up into task progress`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (default: XDG config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(versionCmd)
}
