package models

import "encoding/json"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockKind identifies the type of a content block within a message.
type BlockKind string

const (
	// BlockText is plain assistant or user text.
	BlockText BlockKind = "text"
	// BlockToolUse is a tool invocation requested by the model.
	BlockToolUse BlockKind = "tool_use"
	// BlockToolResult carries the outcome of a tool invocation back to the
	// model. It must reference the originating invocation ID.
	BlockToolResult BlockKind = "tool_result"
	// BlockImage carries decoded binary image content.
	BlockImage BlockKind = "image"
)

// ContentBlock is one unit of message content. Exactly the fields for its
// Kind are populated; the rest stay zero.
type ContentBlock struct {
	Kind BlockKind `json:"kind"`

	// Text is set for BlockText, and holds the result payload for
	// BlockToolResult.
	Text string `json:"text,omitempty"`

	// ToolUseID links tool_use and tool_result blocks.
	ToolUseID string `json:"tool_use_id,omitempty"`
	// ToolName is set for BlockToolUse.
	ToolName string `json:"tool_name,omitempty"`
	// ToolInput is the raw JSON input for BlockToolUse.
	ToolInput json.RawMessage `json:"tool_input,omitempty"`
	// IsError marks a tool_result as a failure the model should adapt to.
	IsError bool `json:"is_error,omitempty"`

	// ImageMediaType and ImageData are set for BlockImage.
	ImageMediaType string `json:"image_media_type,omitempty"`
	ImageData      []byte `json:"image_data,omitempty"`
}

// Message is one entry in an agent's conversation. The conversation is
// append-only: messages are never truncated or reordered, and the full
// history is replayed to the model on every turn.
type Message struct {
	Role   Role           `json:"role"`
	Blocks []ContentBlock `json:"blocks"`
}

// TextMessage builds a single-block text message.
func TextMessage(role Role, text string) Message {
	return Message{Role: role, Blocks: []ContentBlock{{Kind: BlockText, Text: text}}}
}

// JoinedText concatenates the text blocks of a message.
func (m Message) JoinedText() string {
	var out string
	for _, b := range m.Blocks {
		if b.Kind == BlockText {
			out += b.Text
		}
	}
	return out
}

// ToolUses returns the tool invocation requests in the message, in order.
func (m Message) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, b := range m.Blocks {
		if b.Kind == BlockToolUse {
			uses = append(uses, b)
		}
	}
	return uses
}
