package compaction

import (
	"reflect"

	"github.com/youssefsiam38/historypg/types"
)

// CompactResult reports what lifespan compaction changed, keyed by tool name.
type CompactResult struct {
	// PartsEdited counts parts an edit function actually rewrote. Parts an
	// editor returned unchanged are not counted.
	PartsEdited map[string]int

	// PartsDropped counts parts an edit function removed.
	PartsDropped map[string]int

	// MessagesDropped is the number of messages removed because every one
	// of their parts was dropped.
	MessagesDropped int
}

// TotalEdited returns the number of rewritten parts across all tools.
func (r CompactResult) TotalEdited() int {
	total := 0
	for _, n := range r.PartsEdited {
		total += n
	}
	return total
}

// TotalDropped returns the number of removed parts across all tools.
func (r CompactResult) TotalDropped() int {
	total := 0
	for _, n := range r.PartsDropped {
		total += n
	}
	return total
}

// CompactByLifespan applies per-tool edit policies to tool parts that have
// outlived their lifespan. Distance is counted backwards from the end of the
// log: the newest message is at distance zero. A tool expires as soon as one
// of its returns sits at distance >= the tool's lifespan, and it stays
// expired for every older message, so the newest exchanges always survive
// intact. The expiring return is itself edited, along with every older call,
// return, and retry part of the tool.
//
// Fractional lifespans resolve against the current log length before the
// scan. Tools without a policy, text parts, and unknown part kinds are never
// touched. Messages left without parts are dropped; message and part order
// is preserved; the input is never mutated. The pass is deterministic: same
// log and policies in, same log out.
func CompactByLifespan(messages []*types.Message, policies Policies) ([]*types.Message, CompactResult) {
	result := CompactResult{
		PartsEdited:  make(map[string]int),
		PartsDropped: make(map[string]int),
	}

	if len(messages) == 0 || len(policies) == 0 {
		return messages, result
	}

	total := len(messages)
	lifespans := policies.resolveLifespans(total)
	expired := make(map[string]struct{})

	out := make([]*types.Message, 0, total)
	for i := total - 1; i >= 0; i-- {
		msg := messages[i]
		distance := total - 1 - i

		for _, part := range msg.Parts {
			if part.Type != types.PartTypeToolReturn {
				continue
			}
			if lifespan, ok := lifespans[part.ToolName]; ok && distance >= lifespan {
				expired[part.ToolName] = struct{}{}
			}
		}

		kept := make([]types.Part, 0, len(msg.Parts))
		edited := false
		for _, part := range msg.Parts {
			if !part.IsToolPart() {
				kept = append(kept, part)
				continue
			}
			if _, ok := expired[part.ToolName]; !ok {
				kept = append(kept, part)
				continue
			}

			replacement, keep := policies[part.ToolName].Edit(part)
			if !keep {
				result.PartsDropped[part.ToolName]++
				edited = true
				continue
			}
			if !reflect.DeepEqual(part, replacement) {
				result.PartsEdited[part.ToolName]++
				edited = true
			}
			kept = append(kept, replacement)
		}

		switch {
		case !edited:
			out = append(out, msg)
		case len(kept) > 0:
			clone := *msg
			clone.Parts = kept
			out = append(out, &clone)
		default:
			result.MessagesDropped++
		}
	}

	reverseMessages(out)
	return out, result
}
