package historypg

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/youssefsiam38/historypg/types"
)

// Re-export types from types package so callers only import historypg
type (
	Kind     = types.Kind
	Message  = types.Message
	PartType = types.PartType
	Part     = types.Part
)

// Re-export constants
const (
	KindRequest  = types.KindRequest
	KindResponse = types.KindResponse

	PartTypeText        = types.PartTypeText
	PartTypeToolCall    = types.PartTypeToolCall
	PartTypeToolReturn  = types.PartTypeToolReturn
	PartTypeRetryPrompt = types.PartTypeRetryPrompt
)

// NewMessage creates a new message
func NewMessage(sessionID string, kind Kind, parts []Part) *Message {
	return &Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Kind:      kind,
		Parts:     parts,
		Metadata:  make(map[string]any),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// NewRequest creates a new request-kind message (model-bound)
func NewRequest(sessionID string, parts ...Part) *Message {
	return NewMessage(sessionID, KindRequest, parts)
}

// NewResponse creates a new response-kind message (model-produced)
func NewResponse(sessionID string, parts ...Part) *Message {
	return NewMessage(sessionID, KindResponse, parts)
}

// NewTextPart creates a text part
func NewTextPart(text string) Part {
	return Part{
		Type: PartTypeText,
		Text: text,
	}
}

// NewToolCallPart creates a tool call part
func NewToolCallPart(toolName, toolCallID string, args map[string]any) Part {
	argsRaw, _ := json.Marshal(args)
	return Part{
		Type:       PartTypeToolCall,
		ToolName:   toolName,
		ToolCallID: toolCallID,
		Args:       args,
		ArgsRaw:    argsRaw,
	}
}

// NewToolReturnPart creates a tool return part stamped with the current time
func NewToolReturnPart(toolName, toolCallID, content string) Part {
	return Part{
		Type:       PartTypeToolReturn,
		ToolName:   toolName,
		ToolCallID: toolCallID,
		Content:    content,
		Timestamp:  time.Now(),
	}
}

// NewRetryPromptPart creates a retry prompt part
func NewRetryPromptPart(toolName, toolCallID, reason string) Part {
	return Part{
		Type:       PartTypeRetryPrompt,
		ToolName:   toolName,
		ToolCallID: toolCallID,
		Reason:     reason,
	}
}
