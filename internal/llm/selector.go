package llm

import "github.com/aide-sh/aide/pkg/models"

// simpleTools are invocations a cheap model handles well: pure file I/O,
// read-only task queries, and completion bookkeeping.
var simpleTools = map[string]bool{
	"read_file":        true,
	"write_file":       true,
	"list_files":       true,
	"get_task":         true,
	"list_tasks":       true,
	"list_attachments": true,
	"move_task":        true,
	"mark_complete":    true,
}

// complexTools need synthesis, multi-step reasoning, or external content
// ingestion.
var complexTools = map[string]bool{
	"fetch_url":      true,
	"view_image":     true,
	"ask_user":       true,
	"create_task":    true,
	"update_task":    true,
	"mark_task_done": true,
	"attach_file":    true,
}

// SelectionContext is what the policy sees about an agent when choosing a
// model for the next turn.
type SelectionContext struct {
	// MessageCount is the current conversation length.
	MessageCount int
	// HasPendingImage reports a staged image that will ride along with
	// the next tool result.
	HasPendingImage bool
	// LastTool is the most recently executed tool, or empty.
	LastTool string
}

// SelectModel chooses between the cheap and capable backends. Rules are
// evaluated in order, first match wins:
//  1. First exchange (<=3 messages) -> capable; early turns are
//     planning-heavy and must not be degraded.
//  2. Staged pending image -> capable; image understanding requires it.
//  3. Last tool in the simple set -> cheap.
//  4. Last tool in the complex set -> capable.
//  5. Default -> cheap.
func SelectModel(sc SelectionContext, cheap, capable string) string {
	if sc.MessageCount <= 3 {
		return capable
	}
	if sc.HasPendingImage {
		return capable
	}
	if simpleTools[sc.LastTool] {
		return cheap
	}
	if complexTools[sc.LastTool] {
		return capable
	}
	return cheap
}

// SelectForAgent derives the selection context from an agent record.
func SelectForAgent(ag *models.Agent, cheap, capable string) string {
	return SelectModel(SelectionContext{
		MessageCount:    len(ag.Conversation),
		HasPendingImage: ag.PendingImage != nil,
		LastTool:        lastExecutedTool(ag),
	}, cheap, capable)
}

// lastExecutedTool returns the tool name of the most recent activity
// entry that actually ran (success or error).
func lastExecutedTool(ag *models.Agent) string {
	for i := len(ag.ActivityLog) - 1; i >= 0; i-- {
		entry := ag.ActivityLog[i]
		if entry.Status == models.ActivitySuccess || entry.Status == models.ActivityError {
			return entry.Tool
		}
	}
	return ""
}
