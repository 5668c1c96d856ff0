package historypg

import (
	"context"
	"fmt"
	"sort"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"
	"github.com/youssefsiam38/historypg/compaction"
	anthropicinternal "github.com/youssefsiam38/historypg/internal/anthropic"
	"github.com/youssefsiam38/historypg/internal/convert"
	"github.com/youssefsiam38/historypg/storage"
	"github.com/youssefsiam38/historypg/types"
)

// History processes and persists conversation logs. It is safe for
// concurrent use across sessions.
type History struct {
	config    *internalConfig
	store     storage.Store
	compactor *compaction.Compactor
}

// New creates a new History with the given configuration and options
func New(cfg Config, opts ...Option) (*History, error) {
	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Create internal config with defaults
	internal := newInternalConfig(cfg)

	// Apply options
	for _, opt := range opts {
		if err := opt(internal); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	// Build the processing engine; malformed policies fail here, before
	// any log is touched
	compactorOpts := []compaction.Option{}
	if internal.logger != nil {
		compactorOpts = append(compactorOpts, compaction.WithLogger(internal.logger))
	}
	compactor, err := compaction.NewCompactor(internal.policies, compactorOpts...)
	if err != nil {
		return nil, fmt.Errorf("invalid policies: %w", err)
	}

	return &History{
		config:    internal,
		store:     internal.store,
		compactor: compactor,
	}, nil
}

// Store returns the underlying storage layer
func (h *History) Store() storage.Store {
	return h.store
}

// OnBeforeProcess registers a hook called before a session log is processed
func (h *History) OnBeforeProcess(hook func(ctx context.Context, sessionID string, messages []*types.Message) error) {
	h.config.hooks.OnBeforeProcess(hook)
}

// OnAfterProcess registers a hook called after a session log is processed
func (h *History) OnAfterProcess(hook func(ctx context.Context, sessionID string, result *compaction.Result) error) {
	h.config.hooks.OnAfterProcess(hook)
}

// OnPartDropped registers a hook called once per tool whose parts were
// dropped during a processing pass
func (h *History) OnPartDropped(hook func(ctx context.Context, toolName string, parts int) error) {
	h.config.hooks.OnPartDropped(hook)
}

// CreateSession creates a new session and returns its ID
func (h *History) CreateSession(ctx context.Context, identifier string, metadata map[string]any) (string, error) {
	sessionID, err := h.store.CreateSession(ctx, identifier, metadata)
	if err != nil {
		return "", NewHistoryError("CreateSession", err)
	}
	return sessionID, nil
}

// Log returns the stored log for a session in position order
func (h *History) Log(ctx context.Context, sessionID string) ([]*types.Message, error) {
	stored, err := h.store.GetMessages(ctx, sessionID)
	if err != nil {
		return nil, NewHistoryErrorWithSession("Log", sessionID, err)
	}

	messages, err := convert.FromStorageMessages(stored)
	if err != nil {
		return nil, NewHistoryErrorWithSession("Log", sessionID, err)
	}
	return messages, nil
}

// SaveLog replaces the stored log for a session. The sessionID parameter is
// authoritative; messages are stored under it regardless of their SessionID
// field, and messages without an ID are assigned one.
func (h *History) SaveLog(ctx context.Context, sessionID string, messages []*types.Message) error {
	stored, err := convert.ToStorageMessages(messages)
	if err != nil {
		return NewHistoryErrorWithSession("SaveLog", sessionID, err)
	}
	for _, msg := range stored {
		msg.SessionID = sessionID
		if msg.ID == "" {
			msg.ID = uuid.New().String()
		}
	}

	if err := h.store.ReplaceMessages(ctx, sessionID, stored); err != nil {
		return NewHistoryErrorWithSession("SaveLog", sessionID, fmt.Errorf("%w: %w", ErrStorageError, err))
	}
	return nil
}

// Append extends the stored log for a session with the given messages
func (h *History) Append(ctx context.Context, sessionID string, messages ...*types.Message) error {
	existing, err := h.Log(ctx, sessionID)
	if err != nil {
		return err
	}
	return h.SaveLog(ctx, sessionID, append(existing, messages...))
}

// Process loads a session's log, reconciles retries, compacts expired tool
// output, and replaces the stored log. The audit event, the archive of
// dropped messages (when enabled), the replacement log, and the session's
// process count are written in a single transaction.
func (h *History) Process(ctx context.Context, sessionID string) (*compaction.Result, error) {
	// Verify the session exists before touching its log
	if _, err := h.store.GetSession(ctx, sessionID); err != nil {
		return nil, NewHistoryErrorWithSession("Process", sessionID, err)
	}

	stored, err := h.store.GetMessages(ctx, sessionID)
	if err != nil {
		return nil, NewHistoryErrorWithSession("Process", sessionID, err)
	}

	messages, err := convert.FromStorageMessages(stored)
	if err != nil {
		return nil, NewHistoryErrorWithSession("Process", sessionID, err)
	}

	// Trigger before-process hooks
	if err := h.config.hooks.TriggerBeforeProcess(ctx, sessionID, messages); err != nil {
		return nil, fmt.Errorf("before-process hook failed: %w", err)
	}

	processed, result := h.compactor.Process(messages)

	if err := h.persist(ctx, sessionID, stored, processed, result); err != nil {
		return nil, err
	}

	// Trigger part-dropped hooks, one per tool
	for _, toolName := range sortedToolNames(result.Compact.PartsDropped) {
		if err := h.config.hooks.TriggerPartDropped(ctx, toolName, result.Compact.PartsDropped[toolName]); err != nil {
			return nil, fmt.Errorf("part-dropped hook failed: %w", err)
		}
	}

	// Trigger after-process hooks
	if err := h.config.hooks.TriggerAfterProcess(ctx, sessionID, result); err != nil {
		return nil, fmt.Errorf("after-process hook failed: %w", err)
	}

	return result, nil
}

// ProcessMessages reconciles and compacts an in-memory log without touching
// storage. The input slice is not mutated.
func (h *History) ProcessMessages(messages []*types.Message) ([]*types.Message, *compaction.Result) {
	return h.compactor.Process(messages)
}

// Stats summarizes the structural shape of a session's stored log
func (h *History) Stats(ctx context.Context, sessionID string) (compaction.Stats, error) {
	messages, err := h.Log(ctx, sessionID)
	if err != nil {
		return compaction.Stats{}, err
	}
	return compaction.LogStats(messages), nil
}

// ProcessHistory returns the audit trail of processing runs for a session,
// newest first
func (h *History) ProcessHistory(ctx context.Context, sessionID string) ([]*storage.ProcessEvent, error) {
	events, err := h.store.GetProcessHistory(ctx, sessionID)
	if err != nil {
		return nil, NewHistoryErrorWithSession("ProcessHistory", sessionID, err)
	}
	return events, nil
}

// persist writes the processing outcome in one transaction
func (h *History) persist(ctx context.Context, sessionID string, original []*storage.Message, processed []*types.Message, result *compaction.Result) error {
	event := processEventFromResult(sessionID, result)

	replacement, err := convert.ToStorageMessages(processed)
	if err != nil {
		return NewHistoryErrorWithSession("Process", sessionID, err)
	}
	for _, msg := range replacement {
		msg.SessionID = sessionID
	}

	err = h.store.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := h.store.SaveProcessEvent(txCtx, event); err != nil {
			return err
		}

		if h.config.archiveDropped {
			if dropped := droppedMessages(original, processed); len(dropped) > 0 {
				if err := h.store.ArchiveMessages(txCtx, event.ID, dropped); err != nil {
					return err
				}
			}
		}

		if err := h.store.ReplaceMessages(txCtx, sessionID, replacement); err != nil {
			return err
		}

		return h.store.UpdateSessionProcessCount(txCtx, sessionID)
	})
	if err != nil {
		return NewHistoryErrorWithSession("Process", sessionID, fmt.Errorf("%w: %w", ErrStorageError, err))
	}
	return nil
}

// droppedMessages returns the stored messages that processing removed.
// Edited messages keep their IDs, so an ID diff isolates the dropped ones.
func droppedMessages(original []*storage.Message, processed []*types.Message) []*storage.Message {
	kept := make(map[string]struct{}, len(processed))
	for _, msg := range processed {
		kept[msg.ID] = struct{}{}
	}

	var dropped []*storage.Message
	for _, msg := range original {
		if _, ok := kept[msg.ID]; !ok {
			dropped = append(dropped, msg)
		}
	}
	return dropped
}

// processEventFromResult flattens a processing result into its audit row
func processEventFromResult(sessionID string, result *compaction.Result) *storage.ProcessEvent {
	return &storage.ProcessEvent{
		SessionID:           sessionID,
		RetryPromptsDropped: result.Reconcile.RetryPromptsDropped,
		ToolCallsDropped:    result.Reconcile.ToolCallsDropped,
		MessagesDropped:     result.Reconcile.MessagesDropped + result.Compact.MessagesDropped,
		PartsEdited:         result.Compact.PartsEdited,
		PartsDropped:        result.Compact.PartsDropped,
		OriginalMessages:    result.OriginalMessages,
		FinalMessages:       result.FinalMessages,
		DurationMs:          result.Duration.Milliseconds(),
	}
}

// sortedToolNames returns the map's keys in a stable order
func sortedToolNames(counts map[string]int) []string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToAnthropicMessages converts a processed log to Anthropic API message
// params. Request-kind messages become user messages, response-kind
// messages become assistant messages.
func ToAnthropicMessages(messages []*types.Message) []anthropic.MessageParam {
	return anthropicinternal.ConvertToAnthropicMessages(messages)
}
