// Package orchestrator manages the lifecycle of delegated-task agents:
// spawning, the per-agent conversation loop, the human control surface,
// and termination.
package orchestrator

import (
	"time"

	"github.com/aide-sh/aide/pkg/models"
)

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventAgentSpawned indicates a new agent entered the registry.
	EventAgentSpawned EventType = "agent_spawned"
	// EventStateChanged indicates an agent moved to a new state.
	EventStateChanged EventType = "state_changed"
	// EventApprovalNeeded indicates an agent is paused on a tool call.
	EventApprovalNeeded EventType = "approval_needed"
	// EventFeedbackNeeded indicates an agent asked the user a question.
	EventFeedbackNeeded EventType = "feedback_needed"
	// EventToolExecuted indicates one tool invocation finished.
	EventToolExecuted EventType = "tool_executed"
	// EventAgentTerminated indicates an agent left the registry.
	EventAgentTerminated EventType = "agent_terminated"
)

// Event is emitted by the orchestrator for subscribers such as the TUI.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// AgentID is the ID of the related agent.
	AgentID string
	// AgentName is the short name of the related agent.
	AgentName string
	// State is the agent's state after the event.
	State models.AgentState
	// Message provides additional context about the event.
	Message string
	// Tool is the tool name for approval and execution events.
	Tool string
	// Timestamp is when the event occurred.
	Timestamp time.Time
}
