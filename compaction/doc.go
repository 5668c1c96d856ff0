// Package compaction keeps agent conversation logs lean without touching
// their meaning.
//
// Long-running tool-using agents accumulate two kinds of dead weight: retry
// prompts for failures the agent already recovered from, and verbose tool
// outputs whose usefulness decays as the conversation moves on. This package
// removes both mechanically. It never summarizes, scores relevance, or calls
// a model; everything it does is a deterministic function of the log and the
// policy table.
//
// # Passes
//
// Two passes, run in order:
//
//   - ReconcileRetries: drops retry prompts for tools that returned
//     successfully later in the log, along with the tool calls those retries
//     answered. Idempotent.
//
//   - CompactByLifespan: applies per-tool edit policies once a tool's most
//     recent return is older than the tool's lifespan, counted in messages
//     from the end of the log. Lifespans are absolute counts or fractions of
//     the log length.
//
// Both passes preserve message and part order, drop messages left without
// parts, pass unknown part kinds through untouched, and never mutate their
// input.
//
// # Usage
//
// Build a policy table and a Compactor:
//
//	compactor, err := compaction.NewCompactor(compaction.Policies{
//	    "web_search": {
//	        Edit:     compaction.NewTruncateEditor(compaction.DefaultPlaceholder, 200),
//	        Lifespan: 5,
//	    },
//	    "read_file": {
//	        Edit:             compaction.NewDropEditor(),
//	        LifespanFraction: 0.5,
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//
//	processed, result := compactor.Process(messages)
//	log.Printf("history: %d -> %d messages, %d parts dropped",
//	    result.OriginalMessages, result.FinalMessages, result.Compact.TotalDropped())
//
// The package-level functions ReconcileRetries and CompactByLifespan expose
// the same passes without a Compactor for callers that manage policies
// themselves.
//
// # Editors
//
// An edit policy pairs a lifespan with an EditFunc. Shipped editors:
//
//   - NewTruncateEditor: replace return content with a placeholder, with an
//     optional size threshold. An empty placeholder drops the return.
//   - NewDropEditor: drop calls, returns, and retries outright.
//   - NewHeadEditor: keep the head of the return content, mark the cut.
//   - NewStripHTMLEditor: strip markup from HTML returns, keep the text.
//   - NewFlattenMarkdownEditor: rewrite Markdown returns as plain text.
//
// Custom editors are ordinary functions. They must be pure; panics are not
// recovered, so a failing editor aborts the pass rather than producing a
// half-edited log.
//
// # Errors
//
// Malformed policies (negative lifespan, non-finite fraction, missing edit
// function) are rejected by NewCompactor with an error wrapping
// ErrInvalidPolicy. Nothing is clamped silently.
//
// # Thread Safety
//
// A Compactor carries only immutable configuration and may be shared across
// goroutines.
package compaction
