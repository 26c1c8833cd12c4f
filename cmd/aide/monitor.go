package main

import (
	"github.com/spf13/cobra"

	"github.com/aide-sh/aide/internal/state"
	"github.com/aide-sh/aide/internal/tui"
	"github.com/aide-sh/aide/pkg/models"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch the agent audit trail live",
	Long: `Show a live read-only view of every recorded agent. The view
refreshes from the audit database, so it also follows agents driven by an
aide run in another terminal.`,
	RunE: runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	db, err := openAuditDB()
	if err != nil {
		return err
	}
	defer db.Close()

	return tui.NewMonitor(&auditLister{db: db}, nil).Run()
}

// auditLister adapts persisted agent rows to the monitor's read surface.
type auditLister struct {
	db *state.DB
}

func (l *auditLister) ListAgents() []*models.Agent {
	rows, err := l.db.ListAgents()
	if err != nil {
		return nil
	}
	out := make([]*models.Agent, 0, len(rows))
	for _, r := range rows {
		out = append(out, &models.Agent{
			ID:              r.ID,
			Name:            r.Name,
			TaskDescription: r.TaskDescription,
			LinkedTaskID:    r.LinkedTaskID,
			State:           r.State,
			Error:           r.Error,
			LastText:        r.CompletionSummary,
			WorkspaceDir:    r.WorkspaceDir,
			PrimaryArtifact: r.PrimaryArtifact,
			InputTokens:     r.InputTokens,
			OutputTokens:    r.OutputTokens,
			CreatedAt:       r.CreatedAt,
		})
	}
	return out
}
