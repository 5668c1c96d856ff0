package compaction

import (
	"github.com/youssefsiam38/historypg/types"
)

// ReconcileResult reports what retry reconciliation removed.
type ReconcileResult struct {
	// RetryPromptsDropped is the number of retry prompts removed because
	// their tool returned successfully later in the log.
	RetryPromptsDropped int

	// ToolCallsDropped is the number of tool calls removed because a
	// dropped retry prompt answered them.
	ToolCallsDropped int

	// MessagesDropped is the number of messages removed because every one
	// of their parts was dropped.
	MessagesDropped int
}

// ReconcileRetries removes retry prompts for tools that subsequently
// succeeded, together with the tool calls those retries answered. A log that
// keeps stale retry noise around makes the model re-litigate failures it has
// already recovered from.
//
// The log is scanned newest to oldest. A tool return marks its tool as
// successful. A retry prompt for an already-successful tool is dropped and
// its call id remembered; the older call carrying that id is dropped when
// the scan reaches it. Returns inside a message are recorded before the
// message's own parts are filtered, so a return and a retry for the same
// tool in one message reconcile in the return's favor. Everything else,
// unknown part kinds included, is kept as is.
//
// The pass is a no-op when the log is empty or does not end in a request:
// reconciling a log that stops mid-exchange could orphan parts of an
// exchange still being assembled.
//
// The input is never mutated. Untouched messages are shared with the output;
// filtered messages are copies with their surviving parts. Messages and
// parts keep their relative order. Reconciliation is idempotent.
func ReconcileRetries(messages []*types.Message) ([]*types.Message, ReconcileResult) {
	var result ReconcileResult

	if len(messages) == 0 || messages[len(messages)-1].Kind != types.KindRequest {
		return messages, result
	}

	successful := make(map[string]struct{})
	retryIDs := make(map[string]struct{})

	out := make([]*types.Message, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]

		for _, part := range msg.Parts {
			if part.Type == types.PartTypeToolReturn {
				successful[part.ToolName] = struct{}{}
			}
		}

		kept := make([]types.Part, 0, len(msg.Parts))
		for _, part := range msg.Parts {
			switch part.Type {
			case types.PartTypeRetryPrompt:
				if _, ok := successful[part.ToolName]; ok {
					retryIDs[part.ToolCallID] = struct{}{}
					result.RetryPromptsDropped++
					continue
				}
			case types.PartTypeToolCall:
				if _, ok := retryIDs[part.ToolCallID]; ok {
					result.ToolCallsDropped++
					continue
				}
			}
			kept = append(kept, part)
		}

		switch {
		case len(kept) == len(msg.Parts):
			out = append(out, msg)
		case len(kept) == 0:
			result.MessagesDropped++
		default:
			clone := *msg
			clone.Parts = kept
			out = append(out, &clone)
		}
	}

	reverseMessages(out)
	return out, result
}

// reverseMessages restores original log order after a newest-to-oldest scan.
func reverseMessages(messages []*types.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
