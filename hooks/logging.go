package hooks

import (
	"context"
	"log"
	"sort"

	"github.com/youssefsiam38/historypg/compaction"
	"github.com/youssefsiam38/historypg/types"
)

// LoggingHooks provides built-in logging hooks for observability
type LoggingHooks struct {
	logger *log.Logger
}

// NewLoggingHooks creates logging hooks with the provided logger
func NewLoggingHooks(logger *log.Logger) *LoggingHooks {
	return &LoggingHooks{logger: logger}
}

// DefaultLoggingHooks creates logging hooks with default logger
func DefaultLoggingHooks() *LoggingHooks {
	return &LoggingHooks{logger: log.Default()}
}

// BeforeProcess logs before a session log is processed
func (h *LoggingHooks) BeforeProcess(ctx context.Context, sessionID string, messages []*types.Message) error {
	h.logger.Printf("[HistoryPG] Processing %d messages for session %s", len(messages), sessionID)
	return nil
}

// AfterProcess logs after a session log has been processed
func (h *LoggingHooks) AfterProcess(ctx context.Context, sessionID string, result *compaction.Result) error {
	reduction := float64(0)
	if result.OriginalMessages > 0 {
		reduction = float64(result.OriginalMessages-result.FinalMessages) / float64(result.OriginalMessages) * 100
	}

	h.logger.Printf("[HistoryPG] Processing complete for session %s: %d → %d messages (%.1f%% reduction, %d retry prompts dropped, %d parts edited, %d parts dropped)",
		sessionID, result.OriginalMessages, result.FinalMessages, reduction,
		result.Reconcile.RetryPromptsDropped, result.Compact.TotalEdited(), result.Compact.TotalDropped())
	return nil
}

// PartDropped logs expired parts removed for a tool
func (h *LoggingHooks) PartDropped(ctx context.Context, toolName string, parts int) error {
	h.logger.Printf("[HistoryPG] Tool '%s': dropped %d expired parts", toolName, parts)
	return nil
}

// VerboseLoggingHooks provides detailed logging for debugging
type VerboseLoggingHooks struct {
	logger *log.Logger
}

// NewVerboseLoggingHooks creates verbose logging hooks
func NewVerboseLoggingHooks(logger *log.Logger) *VerboseLoggingHooks {
	return &VerboseLoggingHooks{logger: logger}
}

// BeforeProcess logs detailed message information
func (h *VerboseLoggingHooks) BeforeProcess(ctx context.Context, sessionID string, messages []*types.Message) error {
	h.logger.Printf("[HistoryPG][VERBOSE] === Processing session %s ===", sessionID)
	for i, msg := range messages {
		h.logger.Printf("[HistoryPG][VERBOSE] Message %d: kind=%s parts=%d", i, msg.Kind, len(msg.Parts))
	}
	return nil
}

// AfterProcess logs detailed processing results
func (h *VerboseLoggingHooks) AfterProcess(ctx context.Context, sessionID string, result *compaction.Result) error {
	h.logger.Printf("[HistoryPG][VERBOSE] === Processing Complete ===")
	h.logger.Printf("[HistoryPG][VERBOSE] Session: %s", sessionID)
	h.logger.Printf("[HistoryPG][VERBOSE] Messages: %d → %d", result.OriginalMessages, result.FinalMessages)
	h.logger.Printf("[HistoryPG][VERBOSE] Retry prompts dropped: %d", result.Reconcile.RetryPromptsDropped)
	h.logger.Printf("[HistoryPG][VERBOSE] Tool calls dropped: %d", result.Reconcile.ToolCallsDropped)

	for _, tool := range sortedToolKeys(result.Compact.PartsEdited) {
		h.logger.Printf("[HistoryPG][VERBOSE] Tool '%s': %d parts edited", tool, result.Compact.PartsEdited[tool])
	}
	for _, tool := range sortedToolKeys(result.Compact.PartsDropped) {
		h.logger.Printf("[HistoryPG][VERBOSE] Tool '%s': %d parts dropped", tool, result.Compact.PartsDropped[tool])
	}

	h.logger.Printf("[HistoryPG][VERBOSE] Duration: %v", result.Duration)
	return nil
}

// PartDropped logs detailed drop information
func (h *VerboseLoggingHooks) PartDropped(ctx context.Context, toolName string, parts int) error {
	h.logger.Printf("[HistoryPG][VERBOSE] === Parts Dropped: %s ===", toolName)
	h.logger.Printf("[HistoryPG][VERBOSE] Count: %d", parts)
	return nil
}

// MetricsHooks collects metrics for monitoring
type MetricsHooks struct {
	OnMetric func(name string, value float64, tags map[string]string)
}

// NewMetricsHooks creates metrics collection hooks
func NewMetricsHooks(onMetric func(string, float64, map[string]string)) *MetricsHooks {
	return &MetricsHooks{OnMetric: onMetric}
}

// AfterProcess records processing metrics
func (h *MetricsHooks) AfterProcess(ctx context.Context, sessionID string, result *compaction.Result) error {
	h.OnMetric("history.messages.original", float64(result.OriginalMessages), nil)
	h.OnMetric("history.messages.final", float64(result.FinalMessages), nil)
	h.OnMetric("history.retries.dropped", float64(result.Reconcile.RetryPromptsDropped), nil)
	h.OnMetric("history.duration_ms", float64(result.Duration.Milliseconds()), nil)

	for tool, count := range result.Compact.PartsEdited {
		h.OnMetric("history.parts.edited", float64(count), map[string]string{"tool": tool})
	}
	for tool, count := range result.Compact.PartsDropped {
		h.OnMetric("history.parts.dropped", float64(count), map[string]string{"tool": tool})
	}

	return nil
}

// PartDropped records per-tool expiry metrics
func (h *MetricsHooks) PartDropped(ctx context.Context, toolName string, parts int) error {
	h.OnMetric("history.tool.expired", float64(parts), map[string]string{"tool": toolName})
	return nil
}

func sortedToolKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
