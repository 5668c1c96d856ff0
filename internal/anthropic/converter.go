// Package anthropic converts processed logs to Anthropic wire format.
package anthropic

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/youssefsiam38/historypg/types"
)

// ConvertToAnthropicMessages converts a log to Anthropic message parameters.
// Requests become user messages and responses become assistant messages.
// Parts of unknown kinds carry no wire representation and are skipped, as are
// messages left with no convertible parts.
func ConvertToAnthropicMessages(messages []*types.Message) []anthropic.MessageParam {
	params := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		var role anthropic.MessageParamRole
		switch msg.Kind {
		case types.KindRequest:
			role = anthropic.MessageParamRoleUser
		case types.KindResponse:
			role = anthropic.MessageParamRoleAssistant
		default:
			continue
		}

		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Parts))
		for _, part := range msg.Parts {
			if block, ok := convertPart(part); ok {
				blocks = append(blocks, block)
			}
		}
		if len(blocks) == 0 {
			continue
		}

		params = append(params, anthropic.MessageParam{
			Role:    role,
			Content: blocks,
		})
	}

	return params
}

// convertPart converts a single part. The second return is false for parts
// with no wire representation.
func convertPart(part types.Part) (anthropic.ContentBlockParamUnion, bool) {
	switch part.Type {
	case types.PartTypeText:
		return anthropic.NewTextBlock(part.Text), true

	case types.PartTypeToolCall:
		// Prefer the raw argument payload when present
		var input any
		if len(part.ArgsRaw) > 0 {
			_ = json.Unmarshal(part.ArgsRaw, &input)
		} else if part.Args != nil {
			input = part.Args
		}
		// The API requires a dictionary, not null
		if input == nil {
			input = map[string]any{}
		}
		return anthropic.NewToolUseBlock(part.ToolCallID, input, part.ToolName), true

	case types.PartTypeToolReturn:
		return anthropic.NewToolResultBlock(part.ToolCallID, part.Content, false), true

	case types.PartTypeRetryPrompt:
		// Retry prompts ride back to the model as error tool results
		return anthropic.NewToolResultBlock(part.ToolCallID, part.Reason, true), true
	}

	return anthropic.ContentBlockParamUnion{}, false
}
