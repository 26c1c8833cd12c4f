package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/aide-sh/aide/internal/llm"
	"github.com/aide-sh/aide/internal/orchestrator"
	"github.com/aide-sh/aide/internal/tui"
	"github.com/aide-sh/aide/pkg/models"
)

var (
	runLinkedTask string
	runWatch      bool
)

var runCmd = &cobra.Command{
	Use:   "run <task description>",
	Short: "Spawn an agent for a delegated task",
	Long: `Spawn an agent and drive it interactively. The agent works on its
own; you are prompted when it needs a tool approved, asks a question, or
finishes with a deliverable to review.

With --watch, a read-only live view is shown instead of the interactive
prompt. Approval-gated tools stay paused until you run without --watch.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runLinkedTask, "task", "", "Link the agent to a task id in the task store")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "Show the live monitor instead of interactive prompts")
}

func runRun(cmd *cobra.Command, args []string) error {
	orch, client, db, err := buildOrchestrator()
	if err != nil {
		return err
	}
	defer db.Close()
	defer orch.Close()

	description := strings.Join(args, " ")
	ag, err := orch.Spawn(description, runLinkedTask)
	if err != nil {
		return err
	}
	fmt.Printf("Spawned agent %s (%s)\n\n", color.CyanString(ag.Name), ag.ID)

	if runWatch {
		return tui.NewMonitor(orch, orch.Events()).Run()
	}
	err = driveInteractive(orch, ag.ID)
	printUsage(client.Tracker())
	return err
}

// printUsage reports the session's token spend.
func printUsage(tr *llm.TokenTracker) {
	if tr.Calls() == 0 {
		return
	}
	in, out := tr.Total()
	fmt.Printf("\n%s %d calls, %d in / %d out tokens, est. $%.4f\n",
		color.HiBlackString("usage:"), tr.Calls(), in, out, tr.Cost())
}

// driveInteractive consumes orchestrator events and turns pauses into
// terminal prompts until the agent reaches a terminal outcome.
func driveInteractive(orch *orchestrator.Orchestrator, agentID string) error {
	stdin := bufio.NewScanner(os.Stdin)

	for ev := range orch.Events() {
		if ev.AgentID != agentID {
			continue
		}

		switch ev.Type {
		case orchestrator.EventToolExecuted:
			fmt.Printf("  %s %s\n", color.HiBlackString("ran"), ev.Tool)

		case orchestrator.EventApprovalNeeded:
			fmt.Printf("\n%s %s\n  input: %s\n",
				color.YellowString("approval needed:"), color.New(color.Bold).Sprint(ev.Tool), ev.Message)
			if err := promptApproval(orch, agentID, stdin); err != nil {
				return err
			}

		case orchestrator.EventFeedbackNeeded:
			fmt.Printf("\n%s %s\n", color.YellowString("agent asks:"), ev.Message)
			fmt.Print("your answer> ")
			if !stdin.Scan() {
				return orch.Terminate(agentID)
			}
			if err := orch.ProvideFeedback(agentID, stdin.Text()); err != nil {
				return err
			}

		case orchestrator.EventStateChanged:
			done, err := handleStateChange(orch, agentID, ev.State, stdin)
			if done || err != nil {
				return err
			}
		}
	}
	return nil
}

func promptApproval(orch *orchestrator.Orchestrator, agentID string, stdin *bufio.Scanner) error {
	for {
		fmt.Print("[a]pprove / [r]eject> ")
		if !stdin.Scan() {
			return orch.Terminate(agentID)
		}
		switch strings.ToLower(strings.TrimSpace(stdin.Text())) {
		case "a", "approve":
			return orch.ApproveTool(agentID)
		case "r", "reject":
			fmt.Print("reason> ")
			reason := ""
			if stdin.Scan() {
				reason = stdin.Text()
			}
			return orch.RejectTool(agentID, reason)
		}
	}
}

func handleStateChange(orch *orchestrator.Orchestrator, agentID string, st models.AgentState, stdin *bufio.Scanner) (bool, error) {
	switch st {
	case models.AgentStateCompleted:
		ag, err := orch.Get(agentID)
		if err != nil {
			return true, err
		}
		fmt.Printf("\n%s %s\n", color.GreenString("completed:"), ag.CompletionSummary)
		if ag.PrimaryArtifact != "" {
			fmt.Printf("deliverable: %s\n", agentArtifactPath(ag))
		}
		return true, nil

	case models.AgentStateFailed:
		ag, err := orch.Get(agentID)
		if err != nil {
			return true, err
		}
		fmt.Printf("\n%s %s\n", color.RedString("failed:"), ag.Error)
		return true, fmt.Errorf("agent failed")

	case models.AgentStateWaitingCompletionReview:
		ag, err := orch.Get(agentID)
		if err != nil {
			return true, err
		}
		fmt.Printf("\n%s %s\n", color.YellowString("ready for review:"), ag.CompletionSummary)
		if ag.PrimaryArtifact != "" {
			fmt.Printf("deliverable: %s\n", agentArtifactPath(ag))
		}
		fmt.Print("press enter to accept, or type feedback to send the agent back> ")
		if !stdin.Scan() {
			return true, nil
		}
		if text := strings.TrimSpace(stdin.Text()); text != "" {
			return false, orch.ProvideFeedback(agentID, text)
		}
		fmt.Println(color.GreenString("accepted"))
		return true, nil
	}
	return false, nil
}

func agentArtifactPath(ag *models.Agent) string {
	return ag.WorkspaceDir + string(os.PathSeparator) + ag.PrimaryArtifact
}
