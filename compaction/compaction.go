package compaction

import (
	"sort"
	"time"

	"github.com/youssefsiam38/historypg/types"
)

// Logger interface for history processing logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a no-op implementation of Logger.
type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}

// Option configures a Compactor.
type Option func(*Compactor)

// WithLogger sets the logger used by the compactor. Defaults to a no-op
// logger.
func WithLogger(logger Logger) Option {
	return func(c *Compactor) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Compactor applies a validated policy table to conversation logs. Apart
// from its configuration it holds no state, so a single Compactor is safe
// for concurrent use across sessions.
type Compactor struct {
	policies Policies
	logger   Logger
}

// NewCompactor validates the policy table and returns a Compactor.
// Malformed policies fail here, before any log is touched.
func NewCompactor(policies Policies, opts ...Option) (*Compactor, error) {
	if err := policies.Validate(); err != nil {
		return nil, err
	}

	c := &Compactor{
		policies: policies,
		logger:   noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ReconcileRetries runs the retry reconciliation pass. See the package
// function of the same name for semantics.
func (c *Compactor) ReconcileRetries(messages []*types.Message) ([]*types.Message, ReconcileResult) {
	out, res := ReconcileRetries(messages)
	if res.RetryPromptsDropped > 0 {
		c.logger.Debug("reconciled retries",
			"retry_prompts_dropped", res.RetryPromptsDropped,
			"tool_calls_dropped", res.ToolCallsDropped,
			"messages_dropped", res.MessagesDropped)
	}
	return out, res
}

// CompactByLifespan runs the lifespan compaction pass with the compactor's
// policies. See the package function of the same name for semantics.
func (c *Compactor) CompactByLifespan(messages []*types.Message) ([]*types.Message, CompactResult) {
	out, res := CompactByLifespan(messages, c.policies)
	if res.TotalEdited() > 0 || res.TotalDropped() > 0 {
		c.logger.Debug("compacted by lifespan",
			"parts_edited", res.TotalEdited(),
			"parts_dropped", res.TotalDropped(),
			"messages_dropped", res.MessagesDropped)
	}
	return out, res
}

// Result combines the outcome of both processing passes.
type Result struct {
	// Reconcile reports the retry reconciliation pass.
	Reconcile ReconcileResult

	// Compact reports the lifespan compaction pass.
	Compact CompactResult

	// OriginalMessages is the message count before processing.
	OriginalMessages int

	// FinalMessages is the message count after processing.
	FinalMessages int

	// Duration is how long processing took.
	Duration time.Duration
}

// Process reconciles retries and then compacts by lifespan. Reconciliation
// runs first so lifespan edits never operate on retry noise that is about
// to disappear anyway.
func (c *Compactor) Process(messages []*types.Message) ([]*types.Message, *Result) {
	start := time.Now()

	reconciled, reconcileRes := ReconcileRetries(messages)
	compacted, compactRes := CompactByLifespan(reconciled, c.policies)

	result := &Result{
		Reconcile:        reconcileRes,
		Compact:          compactRes,
		OriginalMessages: len(messages),
		FinalMessages:    len(compacted),
		Duration:         time.Since(start),
	}

	c.logger.Info("processed history",
		"original_messages", result.OriginalMessages,
		"final_messages", result.FinalMessages,
		"retry_prompts_dropped", reconcileRes.RetryPromptsDropped,
		"parts_edited", compactRes.TotalEdited(),
		"parts_dropped", compactRes.TotalDropped(),
		"duration_ms", result.Duration.Milliseconds())

	return compacted, result
}

// Stats describes the structural shape of a log.
type Stats struct {
	// TotalMessages is the number of messages in the log.
	TotalMessages int

	// TotalParts is the number of parts across all messages.
	TotalParts int

	// PartsByType counts parts per part type, unknown kinds included.
	PartsByType map[types.PartType]int

	// ContentBytes is the total size of tool return content.
	ContentBytes int

	// ToolNames lists the distinct tool names present, sorted.
	ToolNames []string
}

// LogStats summarizes a log's structure. Useful for deciding which tools
// deserve a policy and for observing what processing saved.
func LogStats(messages []*types.Message) Stats {
	stats := Stats{
		TotalMessages: len(messages),
		PartsByType:   make(map[types.PartType]int),
	}

	tools := make(map[string]struct{})
	for _, msg := range messages {
		stats.TotalParts += len(msg.Parts)
		for _, part := range msg.Parts {
			stats.PartsByType[part.Type]++
			if part.Type == types.PartTypeToolReturn {
				stats.ContentBytes += len(part.Content)
			}
			if part.IsToolPart() && part.ToolName != "" {
				tools[part.ToolName] = struct{}{}
			}
		}
	}

	stats.ToolNames = make([]string, 0, len(tools))
	for name := range tools {
		stats.ToolNames = append(stats.ToolNames, name)
	}
	sort.Strings(stats.ToolNames)

	return stats
}
