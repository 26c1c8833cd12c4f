package llm

import (
	"testing"

	"github.com/aide-sh/aide/pkg/models"
)

const (
	cheap   = "cheap-model"
	capable = "capable-model"
)

func TestSelectModel_FirstExchangeUsesCapable(t *testing.T) {
	for _, count := range []int{0, 1, 2, 3} {
		got := SelectModel(SelectionContext{MessageCount: count, LastTool: "read_file"}, cheap, capable)
		if got != capable {
			t.Errorf("MessageCount=%d: got %q, want capable", count, got)
		}
	}
}

func TestSelectModel_FirstExchangeBeatsEverything(t *testing.T) {
	// Rule 1 wins even when later rules would pick cheap.
	got := SelectModel(SelectionContext{MessageCount: 2, LastTool: "read_file"}, cheap, capable)
	if got != capable {
		t.Errorf("got %q, want capable", got)
	}
}

func TestSelectModel_PendingImageUsesCapable(t *testing.T) {
	got := SelectModel(SelectionContext{MessageCount: 10, HasPendingImage: true, LastTool: "read_file"}, cheap, capable)
	if got != capable {
		t.Errorf("got %q, want capable when an image is staged", got)
	}
}

func TestSelectModel_SimpleToolUsesCheap(t *testing.T) {
	for _, tool := range []string{"read_file", "write_file", "list_files", "get_task", "list_tasks", "mark_complete"} {
		got := SelectModel(SelectionContext{MessageCount: 10, LastTool: tool}, cheap, capable)
		if got != cheap {
			t.Errorf("tool %s: got %q, want cheap", tool, got)
		}
	}
}

func TestSelectModel_ComplexToolUsesCapable(t *testing.T) {
	for _, tool := range []string{"fetch_url", "create_task", "update_task", "mark_task_done", "ask_user"} {
		got := SelectModel(SelectionContext{MessageCount: 10, LastTool: tool}, cheap, capable)
		if got != capable {
			t.Errorf("tool %s: got %q, want capable", tool, got)
		}
	}
}

func TestSelectModel_DefaultIsCheap(t *testing.T) {
	got := SelectModel(SelectionContext{MessageCount: 10}, cheap, capable)
	if got != cheap {
		t.Errorf("got %q, want cheap with no signals", got)
	}
	got = SelectModel(SelectionContext{MessageCount: 10, LastTool: "unknown_tool"}, cheap, capable)
	if got != cheap {
		t.Errorf("got %q, want cheap for unknown last tool", got)
	}
}

func TestSelectForAgent_UsesLastFinalizedEntry(t *testing.T) {
	ag := &models.Agent{
		Conversation: make([]models.Message, 10),
		ActivityLog: []models.ActivityLogEntry{
			{Tool: "fetch_url", Status: models.ActivitySuccess},
			{Tool: "read_file", Status: models.ActivitySuccess},
			// Still executing: not "most recently executed".
			{Tool: "fetch_url", Status: models.ActivityExecuting},
		},
	}
	got := SelectForAgent(ag, cheap, capable)
	if got != cheap {
		t.Errorf("got %q, want cheap from last finalized tool read_file", got)
	}
}

func TestSelectForAgent_NoActivity(t *testing.T) {
	ag := &models.Agent{Conversation: make([]models.Message, 10)}
	if got := SelectForAgent(ag, cheap, capable); got != cheap {
		t.Errorf("got %q, want cheap", got)
	}
}

func TestTokenTracker(t *testing.T) {
	tr := NewTokenTracker()
	tr.Add(100, 50)
	tr.Add(200, 100)

	in, out := tr.Total()
	if in != 300 || out != 150 {
		t.Errorf("Total = (%d, %d), want (300, 150)", in, out)
	}
	if tr.Calls() != 2 {
		t.Errorf("Calls = %d, want 2", tr.Calls())
	}
	if tr.Cost() <= 0 {
		t.Error("Cost should be positive after usage")
	}
}
