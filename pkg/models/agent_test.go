package models

import "testing"

func TestAgentState_Valid(t *testing.T) {
	valid := []AgentState{
		AgentStateInitializing, AgentStateWorking, AgentStateWaitingToolApproval,
		AgentStateWaitingUserFeedback, AgentStateWaitingCompletionReview,
		AgentStateCompleted, AgentStateFailed, AgentStateTerminated,
	}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("state %q should be valid", s)
		}
	}

	if AgentState("paused").Valid() {
		t.Error("unknown state should not be valid")
	}
	if AgentState("").Valid() {
		t.Error("empty state should not be valid")
	}
}

func TestAgentState_Terminal(t *testing.T) {
	if !AgentStateFailed.Terminal() {
		t.Error("failed should be terminal")
	}
	if !AgentStateTerminated.Terminal() {
		t.Error("terminated should be terminal")
	}
	if AgentStateCompleted.Terminal() {
		t.Error("completed should not be terminal; feedback can resume it")
	}
	if AgentStateWorking.Terminal() {
		t.Error("working should not be terminal")
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to AgentState
		want     bool
	}{
		{AgentStateInitializing, AgentStateWorking, true},
		{AgentStateWorking, AgentStateWaitingToolApproval, true},
		{AgentStateWorking, AgentStateFailed, true},
		{AgentStateWaitingToolApproval, AgentStateWorking, true},
		{AgentStateWaitingToolApproval, AgentStateCompleted, true},
		{AgentStateWaitingUserFeedback, AgentStateWorking, true},
		{AgentStateWaitingCompletionReview, AgentStateWorking, true},
		{AgentStateCompleted, AgentStateWorking, true},

		// Termination is legal from anywhere except itself.
		{AgentStateWorking, AgentStateTerminated, true},
		{AgentStateFailed, AgentStateTerminated, true},
		{AgentStateTerminated, AgentStateTerminated, false},

		// Failed is absorbing.
		{AgentStateFailed, AgentStateWorking, false},
		// No skipping straight from initializing to a waiting state.
		{AgentStateInitializing, AgentStateWaitingToolApproval, false},
		// Completed cannot fail retroactively.
		{AgentStateCompleted, AgentStateFailed, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestMessage_JoinedText(t *testing.T) {
	m := Message{
		Role: RoleAssistant,
		Blocks: []ContentBlock{
			{Kind: BlockText, Text: "part one "},
			{Kind: BlockToolUse, ToolUseID: "tu_1", ToolName: "read_file"},
			{Kind: BlockText, Text: "part two"},
		},
	}
	if got := m.JoinedText(); got != "part one part two" {
		t.Errorf("JoinedText = %q", got)
	}
}

func TestMessage_ToolUses_Order(t *testing.T) {
	m := Message{
		Role: RoleAssistant,
		Blocks: []ContentBlock{
			{Kind: BlockToolUse, ToolUseID: "tu_1", ToolName: "read_file"},
			{Kind: BlockText, Text: "thinking"},
			{Kind: BlockToolUse, ToolUseID: "tu_2", ToolName: "write_file"},
		},
	}
	uses := m.ToolUses()
	if len(uses) != 2 {
		t.Fatalf("ToolUses count = %d, want 2", len(uses))
	}
	if uses[0].ToolUseID != "tu_1" || uses[1].ToolUseID != "tu_2" {
		t.Error("ToolUses should preserve request order")
	}
}

func TestTextMessage(t *testing.T) {
	m := TextMessage(RoleUser, "hello")
	if m.Role != RoleUser {
		t.Errorf("Role = %q, want user", m.Role)
	}
	if len(m.Blocks) != 1 || m.Blocks[0].Kind != BlockText || m.Blocks[0].Text != "hello" {
		t.Errorf("unexpected blocks: %+v", m.Blocks)
	}
}
