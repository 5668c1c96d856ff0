package types

import (
	"encoding/json"
	"time"
)

// Kind represents the message kind
type Kind string

const (
	// KindRequest represents a model-bound message carrying user prompts,
	// tool returns, and retry prompts
	KindRequest Kind = "request"

	// KindResponse represents a model-produced message carrying text and
	// tool calls
	KindResponse Kind = "response"
)

// Message represents one conversational turn as an ordered sequence of parts
type Message struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id,omitempty"`
	Kind      Kind           `json:"kind"`
	Parts     []Part         `json:"parts"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// HasParts reports whether the message still carries any parts.
// Messages stripped of all their parts are dropped from processed logs.
func (m *Message) HasParts() bool {
	return len(m.Parts) > 0
}

// Copy creates a deep copy of the message
func (m *Message) Copy() *Message {
	msgCopy := *m

	msgCopy.Parts = make([]Part, len(m.Parts))
	copy(msgCopy.Parts, m.Parts)

	if m.Metadata != nil {
		msgCopy.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			msgCopy.Metadata[k] = v
		}
	}

	return &msgCopy
}

// PartType represents the type of message part
type PartType string

const (
	// PartTypeText represents plain text content
	PartTypeText PartType = "text"

	// PartTypeToolCall represents the model asking for a tool invocation
	PartTypeToolCall PartType = "tool_call"

	// PartTypeToolReturn represents the recorded output of a tool invocation
	PartTypeToolReturn PartType = "tool_return"

	// PartTypeRetryPrompt represents a failed tool invocation being surfaced
	// back to the model for another attempt
	PartTypeRetryPrompt PartType = "retry_prompt"
)

// Part represents a piece of content in a message. Parts with a type other
// than the constants above are opaque: processing passes and stores carry
// them through untouched.
type Part struct {
	Type PartType `json:"type"`

	// Text content
	Text string `json:"text,omitempty"`

	// Tool linkage shared by call, return, and retry parts.
	// A ToolCallID ties a call to at most one return or retry prompt,
	// which appears later in the log than the call itself.
	ToolName   string `json:"tool_name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`

	// Tool call arguments
	Args    map[string]any  `json:"args,omitempty"`
	ArgsRaw json.RawMessage `json:"args_raw,omitempty"`

	// Tool return content
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`

	// Retry prompt reason
	Reason string `json:"reason,omitempty"`
}

// IsToolPart reports whether the part is one of the tool-linked kinds
// (call, return, or retry prompt).
func (p Part) IsToolPart() bool {
	switch p.Type {
	case PartTypeToolCall, PartTypeToolReturn, PartTypeRetryPrompt:
		return true
	}
	return false
}
