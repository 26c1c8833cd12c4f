package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/aide-sh/aide/internal/config"
	"github.com/aide-sh/aide/internal/llm"
	"github.com/aide-sh/aide/internal/state"
	"github.com/aide-sh/aide/pkg/models"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Inspect the persisted agent audit trail",
	RunE:  runAgentsList,
}

var agentsLogCmd = &cobra.Command{
	Use:   "log <agent-id>",
	Short: "Show an agent's tool activity",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentsLog,
}

var agentsShowCmd = &cobra.Command{
	Use:   "show <agent-id>",
	Short: "Show one agent in detail: outcome, token usage, workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentsShow,
}

func init() {
	agentsCmd.AddCommand(agentsLogCmd)
	agentsCmd.AddCommand(agentsShowCmd)
}

func openAuditDB() (*state.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return state.Open(state.DefaultPath(cfg.Paths.DataDir))
}

func runAgentsList(cmd *cobra.Command, args []string) error {
	db, err := openAuditDB()
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.ListAgents()
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("no agents recorded")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATE\tCREATED\tTASK")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.ID[:8], r.Name, renderAgentState(r.State),
			r.CreatedAt.Local().Format("2006-01-02 15:04"), r.TaskDescription)
	}
	return tw.Flush()
}

func renderAgentState(s models.AgentState) string {
	switch s {
	case models.AgentStateCompleted:
		return color.GreenString(string(s))
	case models.AgentStateFailed, models.AgentStateTerminated:
		return color.RedString(string(s))
	case models.AgentStateWaitingToolApproval, models.AgentStateWaitingUserFeedback,
		models.AgentStateWaitingCompletionReview:
		return color.YellowString(string(s))
	default:
		return string(s)
	}
}

// findAgentRow resolves a full id or the 8-character prefix shown by the
// list command to a persisted row.
func findAgentRow(db *state.DB, idOrPrefix string) (*state.AgentRow, error) {
	rows, err := db.ListAgents()
	if err != nil {
		return nil, err
	}
	for i, r := range rows {
		if r.ID == idOrPrefix || (len(idOrPrefix) == 8 && r.ID[:8] == idOrPrefix) {
			return &rows[i], nil
		}
	}
	return nil, fmt.Errorf("agent %q not found", idOrPrefix)
}

func runAgentsShow(cmd *cobra.Command, args []string) error {
	db, err := openAuditDB()
	if err != nil {
		return err
	}
	defer db.Close()

	r, err := findAgentRow(db, args[0])
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	fmt.Printf("%s (%s)\n", bold.Sprint(r.Name), r.ID)
	fmt.Printf("state:    %s\n", renderAgentState(r.State))
	fmt.Printf("task:     %s\n", r.TaskDescription)
	if r.LinkedTaskID != "" {
		fmt.Printf("linked:   %s\n", r.LinkedTaskID)
	}
	fmt.Printf("created:  %s\n", r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("updated:  %s\n", r.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	if r.Error != "" {
		fmt.Printf("error:    %s\n", color.RedString(r.Error))
	}
	if r.CompletionSummary != "" {
		fmt.Printf("summary:  %s\n", r.CompletionSummary)
	}
	fmt.Printf("tokens:   %d in / %d out (est. $%.4f)\n",
		r.InputTokens, r.OutputTokens, llm.EstimateCost(r.InputTokens, r.OutputTokens))

	if r.WorkspaceDir != "" {
		fmt.Printf("\nworkspace %s\n", r.WorkspaceDir)
		names := workspaceFileNames(r.WorkspaceDir)
		if len(names) == 0 {
			fmt.Println("  (empty)")
		}
		for _, name := range names {
			if name == r.PrimaryArtifact {
				fmt.Printf("  %s  %s\n", name, color.GreenString("(deliverable)"))
			} else {
				fmt.Printf("  %s\n", name)
			}
		}
	}
	return nil
}

func workspaceFileNames(dir string) []string {
	var names []string
	filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if rel, relErr := filepath.Rel(dir, path); relErr == nil {
			names = append(names, rel)
		}
		return nil
	})
	sort.Strings(names)
	return names
}

func runAgentsLog(cmd *cobra.Command, args []string) error {
	db, err := openAuditDB()
	if err != nil {
		return err
	}
	defer db.Close()

	agentID := args[0]
	if r, err := findAgentRow(db, agentID); err == nil {
		agentID = r.ID
	}

	entries, err := db.ListActivity(agentID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no activity recorded")
		return nil
	}

	for _, e := range entries {
		status := string(e.Status)
		switch e.Status {
		case models.ActivitySuccess:
			status = color.GreenString(status)
		case models.ActivityError:
			status = color.RedString(status)
		}
		fmt.Printf("%s  %-18s %s  %s\n",
			e.Timestamp.Local().Format(time.TimeOnly), e.Tool, status, e.Duration)
		if e.Error != "" {
			fmt.Printf("    %s\n", color.RedString(e.Error))
		}
	}
	return nil
}
