package models

import (
	"encoding/json"
	"time"
)

// AgentState represents the current state of a delegated-task agent.
type AgentState string

const (
	// AgentStateInitializing indicates the agent record exists but the
	// first turn has not started.
	AgentStateInitializing AgentState = "initializing"
	// AgentStateWorking indicates the turn loop is driving the model.
	AgentStateWorking AgentState = "working"
	// AgentStateWaitingToolApproval indicates a tool call is pending
	// explicit human approval.
	AgentStateWaitingToolApproval AgentState = "waiting_for_tool_approval"
	// AgentStateWaitingUserFeedback indicates the agent asked a question
	// and is paused until the human answers.
	AgentStateWaitingUserFeedback AgentState = "waiting_for_user_feedback"
	// AgentStateWaitingCompletionReview indicates the agent finished but
	// requested a human review of its deliverable.
	AgentStateWaitingCompletionReview AgentState = "waiting_for_completion_review"
	// AgentStateCompleted indicates the agent marked its task complete.
	AgentStateCompleted AgentState = "completed"
	// AgentStateFailed indicates an unrecoverable API error. Absorbing:
	// only termination leaves it.
	AgentStateFailed AgentState = "failed"
	// AgentStateTerminated indicates the agent was explicitly removed.
	AgentStateTerminated AgentState = "terminated"
)

// Valid returns true if the state is a known value.
func (s AgentState) Valid() bool {
	switch s {
	case AgentStateInitializing, AgentStateWorking, AgentStateWaitingToolApproval,
		AgentStateWaitingUserFeedback, AgentStateWaitingCompletionReview,
		AgentStateCompleted, AgentStateFailed, AgentStateTerminated:
		return true
	default:
		return false
	}
}

// Terminal returns true for states no human action can resume.
func (s AgentState) Terminal() bool {
	return s == AgentStateFailed || s == AgentStateTerminated
}

// agentTransitions is the closed transition table. Termination is legal
// from every state and is not listed per-row.
var agentTransitions = map[AgentState][]AgentState{
	AgentStateInitializing: {AgentStateWorking, AgentStateFailed},
	AgentStateWorking: {
		AgentStateWaitingToolApproval,
		AgentStateWaitingUserFeedback,
		AgentStateWaitingCompletionReview,
		AgentStateCompleted,
		AgentStateFailed,
	},
	AgentStateWaitingToolApproval: {
		AgentStateWorking,
		AgentStateWaitingUserFeedback,
		AgentStateWaitingCompletionReview,
		AgentStateCompleted,
	},
	AgentStateWaitingUserFeedback:     {AgentStateWorking},
	AgentStateWaitingCompletionReview: {AgentStateWorking},
	AgentStateCompleted:               {AgentStateWorking},
	AgentStateFailed:                  {},
	AgentStateTerminated:              {},
}

// CanTransition reports whether moving from one state to another is legal.
func CanTransition(from, to AgentState) bool {
	if to == AgentStateTerminated {
		return from != AgentStateTerminated
	}
	for _, next := range agentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ToolUse is one tool invocation requested by the model.
type ToolUse struct {
	// ID is the invocation id assigned by the model; tool results must
	// reference it.
	ID string `json:"id"`
	// Name is the registered tool name.
	Name string `json:"name"`
	// Input is the raw JSON arguments.
	Input json.RawMessage `json:"input"`
}

// StagedImage is a decoded image buffer waiting to ride along with the
// next tool-result message.
type StagedImage struct {
	MediaType string `json:"media_type"`
	Data      []byte `json:"data"`
}

// ActivityStatus is the lifecycle of one activity log entry.
type ActivityStatus string

const (
	// ActivityExecuting is written optimistically before the tool runs so
	// the trail survives a crash mid-call.
	ActivityExecuting ActivityStatus = "executing"
	ActivitySuccess   ActivityStatus = "success"
	ActivityError     ActivityStatus = "error"
)

// ActivityLogEntry records one tool invocation. Immutable once finalized.
type ActivityLogEntry struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Tool      string          `json:"tool"`
	Input     json.RawMessage `json:"input"`
	Status    ActivityStatus  `json:"status"`
	// Model is the model id that requested the invocation.
	Model    string        `json:"model"`
	Result   string        `json:"result,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Agent is one autonomous, stateful run of a delegated task. It is created
// on spawn, mutated only by the conversation driver and the control-surface
// operations, and removed from the registry only on explicit termination.
type Agent struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	TaskDescription string `json:"task_description"`
	// LinkedTaskID optionally references a record in the task store.
	LinkedTaskID string `json:"linked_task_id,omitempty"`

	State AgentState `json:"state"`
	// Error holds the failure message when State is failed.
	Error string `json:"error,omitempty"`

	// Conversation is append-only and replayed in full every turn.
	Conversation []Message `json:"conversation"`
	// LastText caches the model's latest text output.
	LastText string `json:"last_text,omitempty"`

	// PendingToolUse is the at-most-one invocation awaiting approval.
	PendingToolUse *ToolUse `json:"pending_tool_use,omitempty"`
	// PendingQuestion is the at-most-one question awaiting feedback.
	PendingQuestion string `json:"pending_question,omitempty"`
	// PendingImage is the at-most-one image staged for the next tool result.
	PendingImage *StagedImage `json:"pending_image,omitempty"`

	// WorkspaceDir is this agent's exclusively owned scratch directory.
	WorkspaceDir string `json:"workspace_dir"`
	// CreatedFiles lists workspace files written by the agent, in order.
	CreatedFiles []string `json:"created_files,omitempty"`
	// PrimaryArtifact is the most recently written file, treated as the
	// deliverable.
	PrimaryArtifact   string `json:"primary_artifact,omitempty"`
	CompletionSummary string `json:"completion_summary,omitempty"`

	ActivityLog []ActivityLogEntry `json:"activity_log,omitempty"`

	// InputTokens and OutputTokens accumulate usage across every model
	// call this agent has made.
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`

	CreatedAt time.Time `json:"created_at"`
}
