package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrSessionNotFound is returned when a session ID has no row.
var ErrSessionNotFound = errors.New("session not found")

// Store defines the persistence interface for conversation logs
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, identifier string, metadata map[string]any) (string, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	UpdateSessionProcessCount(ctx context.Context, sessionID string) error
	// GetOversizedSessions returns the IDs of sessions whose logs hold at
	// least minMessages messages.
	GetOversizedSessions(ctx context.Context, minMessages int) ([]string, error)

	// Message operations
	SaveMessages(ctx context.Context, messages []*Message) error
	// GetMessages returns a session's log in position order.
	GetMessages(ctx context.Context, sessionID string) ([]*Message, error)
	// ReplaceMessages atomically swaps a session's log for the given one.
	ReplaceMessages(ctx context.Context, sessionID string, messages []*Message) error
	DeleteMessages(ctx context.Context, messageIDs []string) error

	// Processing audit operations
	SaveProcessEvent(ctx context.Context, event *ProcessEvent) error
	GetProcessHistory(ctx context.Context, sessionID string) ([]*ProcessEvent, error)
	ArchiveMessages(ctx context.Context, processEventID string, messages []*Message) error

	// WithTransaction runs fn within a single transaction. A transaction
	// already present in ctx is reused, so nested calls compose.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Session represents a conversation session
type Session struct {
	ID           string         `json:"id"`
	Identifier   string         `json:"identifier"`
	Metadata     map[string]any `json:"metadata"`
	ProcessCount int            `json:"process_count"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Message represents a stored log message. Parts holds the message's parts
// as raw JSON; Position is the message's index within the session's log.
type Message struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Position  int             `json:"position"`
	Kind      string          `json:"kind"`
	Parts     json.RawMessage `json:"parts"` // Stored as JSONB
	Metadata  map[string]any  `json:"metadata"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ProcessEvent records one reconcile-and-compact run over a session's log
type ProcessEvent struct {
	ID                  string         `json:"id"`
	SessionID           string         `json:"session_id"`
	RetryPromptsDropped int            `json:"retry_prompts_dropped"`
	ToolCallsDropped    int            `json:"tool_calls_dropped"`
	MessagesDropped     int            `json:"messages_dropped"`
	PartsEdited         map[string]int `json:"parts_edited"`
	PartsDropped        map[string]int `json:"parts_dropped"`
	OriginalMessages    int            `json:"original_messages"`
	FinalMessages       int            `json:"final_messages"`
	DurationMs          int64          `json:"duration_ms"`
	CreatedAt           time.Time      `json:"created_at"`
}
