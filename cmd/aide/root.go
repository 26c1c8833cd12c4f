package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aide-sh/aide/internal/config"
	"github.com/aide-sh/aide/internal/llm"
	"github.com/aide-sh/aide/internal/orchestrator"
	"github.com/aide-sh/aide/internal/state"
	"github.com/aide-sh/aide/internal/taskstore"
	"github.com/aide-sh/aide/internal/tools"
)

var rootCmd = &cobra.Command{
	Use:   "aide",
	Short: "Delegate tasks to tool-using agents",
	Long: `aide spawns autonomous agents that work on delegated tasks with a
tool-calling model: writing files in a private workspace, fetching web
content, and managing your task lists.

Agents pause for approval before running sensitive tools, ask questions
when they are blocked, and can hand their deliverable back for review.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(versionCmd)
}

// openStore loads config and opens the task store.
func openStore() (*config.Config, *taskstore.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(cfg.Paths.DataDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create data directory: %w", err)
	}
	return cfg, taskstore.New(cfg.Paths.DataDir), nil
}

// buildOrchestrator wires the full engine from configuration. The caller
// must Close the orchestrator and the returned database; the client is
// returned so its token tracker can be reported after a session.
func buildOrchestrator() (*orchestrator.Orchestrator, *llm.Client, *state.DB, error) {
	cfg, store, err := openStore()
	if err != nil {
		return nil, nil, nil, err
	}

	client, err := llm.NewClient(llm.ClientConfig{
		APIKey:     cfg.Anthropic.APIKey,
		UseBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:  cfg.Anthropic.AWSRegion,
		AWSProfile: cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	db, err := state.Open(state.DefaultPath(cfg.Paths.DataDir))
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := orchestrator.NewDebugLogger(cfg.Paths.DebugLog)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}

	orch := orchestrator.New(orchestrator.Options{
		Caller:        client,
		Gate:          tools.NewGate(config.PermissionsProvider()),
		Executor:      tools.NewExecutor(store),
		Store:         store,
		DB:            db,
		Logger:        logger,
		CheapModel:    cfg.Models.Cheap,
		CapableModel:  cfg.Models.Capable,
		MaxTurns:      cfg.Limits.MaxTurns,
		WorkspaceRoot: cfg.Paths.WorkspaceRoot,
	})
	return orch, client, db, nil
}
