package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"

	"github.com/taskfleet/taskfleet/internal/config"
	"github.com/taskfleet/taskfleet/internal/orchestrator"
	"github.com/taskfleet/taskfleet/internal/reason"
	"github.com/taskfleet/taskfleet/internal/registry"
	"github.com/taskfleet/taskfleet/internal/server"
	"github.com/taskfleet/taskfleet/internal/state"
	"github.com/taskfleet/taskfleet/pkg/models"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the fleet coordinator",
	Long: `Start the fleet coordinator: the HTTP API, the WebSocket event
stream, and the background sweeper that processes pending assignments.

Requires an Anthropic API key (ANTHROPIC_API_KEY or config file), or
AWS Bedrock enabled in the config.`,
	RunE: runServe,
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	return config.Load()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	apiKey := ""
	if !cfg.Anthropic.UseAWSBedrock {
		apiKey, err = config.GetAPIKey(cfg)
		if err != nil {
			return fmt.Errorf("%w\n\nSet ANTHROPIC_API_KEY or enable AWS Bedrock in %s",
				err, config.GetUserConfigPath())
		}
	}

	logger := orchestrator.NopLogger()
	if cfg.Fleet.DebugLog != "" {
		logger, err = orchestrator.NewDebugLogger(cfg.Fleet.DebugLog)
		if err != nil {
			return fmt.Errorf("open debug log: %w", err)
		}
		defer logger.Close()
	}

	dbPath := cfg.DatabasePath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	reg := registry.New(db)
	fleet := registry.DefaultFleet()
	if cfg.Fleet.CatalogPath != "" {
		fleet, err = registry.LoadCatalog(cfg.Fleet.CatalogPath)
		if err != nil {
			return fmt.Errorf("load agent catalog: %w", err)
		}
	}
	if err := reg.Seed(fleet); err != nil {
		return fmt.Errorf("seed agents: %w", err)
	}

	// Reset assignments interrupted by a previous crash before the
	// sweeper starts, so they are re-claimed this run.
	recovered, err := state.NewRecoveryManager(db).RecoverInterrupted()
	if err != nil {
		return fmt.Errorf("recover interrupted assignments: %w", err)
	}
	if recovered > 0 {
		fmt.Printf("Recovered %d interrupted assignments\n", recovered)
	}

	reasoner, err := reason.NewClient(reason.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        apiKey,
		UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
		Catalog: func() []models.Agent {
			agents, err := reg.List(true)
			if err != nil {
				return nil
			}
			return agents
		},
	})
	if err != nil {
		return fmt.Errorf("create reasoning client: %w", err)
	}

	emitter := orchestrator.NewEventEmitter(256)
	defer emitter.Close()

	master := orchestrator.NewMaster(db, reg, reasoner, emitter, logger)
	coord := orchestrator.NewAgentCoordinator(db, reg, reasoner, emitter, logger)
	sweeper := orchestrator.NewSweeper(db, coord, master, logger, cfg.Fleet.SweepInterval)
	hub := server.NewHub(emitter, logger)

	srv := server.New(server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		EnableCORS:   cfg.Server.EnableCORS,
		Debug:        cfg.Server.Debug,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}, master, reg, hub, db, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		sweeper.Run(ctx)
	}()
	go hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	fmt.Printf("Fleet coordinator listening on %s (%d agents)\n", srv.Addr(), len(fleet))

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}

	// A sweep in flight keeps running until its assignments finish.
	// Wait for it before the deferred emitter close and db close.
	stop()
	<-sweeperDone
	return nil
}
