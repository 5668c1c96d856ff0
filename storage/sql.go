package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// sqlTxKey is the context key for storing *sql.Tx
type sqlTxKey struct{}

// WithSQLTx returns a new context with the given database/sql transaction
func WithSQLTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, sqlTxKey{}, tx)
}

// SQLTxFromContext retrieves the database/sql transaction from context, or nil if not present
func SQLTxFromContext(ctx context.Context) *sql.Tx {
	if tx, ok := ctx.Value(sqlTxKey{}).(*sql.Tx); ok {
		return tx
	}
	return nil
}

// sqlExecutor is a common interface for *sql.DB and *sql.Tx
type sqlExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore implements Store using database/sql against PostgreSQL.
// Use it with github.com/lib/pq when a pgx pool is not available.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a new database/sql store
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// getExecutor returns the transaction from context if present, otherwise the DB
func (s *SQLStore) getExecutor(ctx context.Context) sqlExecutor {
	if tx := SQLTxFromContext(ctx); tx != nil {
		return tx
	}
	return s.db
}

// EnsureSchema creates the historypg tables if they do not exist
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.getExecutor(ctx).ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// WithTransaction runs fn within a transaction. A transaction already in ctx
// is reused and left for the outer caller to commit.
func (s *SQLStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx := SQLTxFromContext(ctx); tx != nil {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(WithSQLTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// CreateSession creates a new conversation session
func (s *SQLStore) CreateSession(ctx context.Context, identifier string, metadata map[string]any) (string, error) {
	if identifier == "" {
		return "", fmt.Errorf("identifier is required")
	}

	sessionID := uuid.New().String()

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO historypg_sessions (id, identifier, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
	`

	_, err = s.getExecutor(ctx).ExecContext(ctx, query, sessionID, identifier, metadataJSON)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	return sessionID, nil
}

// GetSession retrieves a session by ID
func (s *SQLStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	query := `
		SELECT id, identifier, metadata, process_count, created_at, updated_at
		FROM historypg_sessions
		WHERE id = $1
	`

	var session Session
	var metadataJSON []byte

	err := s.getExecutor(ctx).QueryRowContext(ctx, query, sessionID).Scan(
		&session.ID,
		&session.Identifier,
		&metadataJSON,
		&session.ProcessCount,
		&session.CreatedAt,
		&session.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &session.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &session, nil
}

// UpdateSessionProcessCount increments the session's process count
func (s *SQLStore) UpdateSessionProcessCount(ctx context.Context, sessionID string) error {
	query := `
		UPDATE historypg_sessions
		SET process_count = process_count + 1, updated_at = NOW()
		WHERE id = $1
	`

	_, err := s.getExecutor(ctx).ExecContext(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("failed to update process count: %w", err)
	}

	return nil
}

// GetOversizedSessions returns the IDs of sessions whose logs hold at least
// minMessages messages, ordered by session ID.
func (s *SQLStore) GetOversizedSessions(ctx context.Context, minMessages int) ([]string, error) {
	query := `
		SELECT session_id
		FROM historypg_messages
		GROUP BY session_id
		HAVING COUNT(*) >= $1
		ORDER BY session_id
	`

	rows, err := s.getExecutor(ctx).QueryContext(ctx, query, minMessages)
	if err != nil {
		return nil, fmt.Errorf("failed to query oversized sessions: %w", err)
	}
	defer rows.Close()

	var sessionIDs []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session ID: %w", err)
		}
		sessionIDs = append(sessionIDs, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating oversized sessions: %w", err)
	}

	return sessionIDs, nil
}

// SaveMessages saves multiple messages.
// Messages are written sequentially; database/sql has no native batching.
func (s *SQLStore) SaveMessages(ctx context.Context, messages []*Message) error {
	if len(messages) == 0 {
		return nil
	}

	query := `
		INSERT INTO historypg_messages (id, session_id, position, kind, parts, metadata,
		                     created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			position = EXCLUDED.position,
			kind = EXCLUDED.kind,
			parts = EXCLUDED.parts,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()
	`

	exec := s.getExecutor(ctx)

	for _, msg := range messages {
		parts := msg.Parts
		if len(parts) == 0 {
			parts = json.RawMessage("[]")
		}

		metadataJSON, err := json.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}

		createdAt := msg.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}

		updatedAt := msg.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now()
		}

		_, err = exec.ExecContext(ctx, query,
			msg.ID,
			msg.SessionID,
			msg.Position,
			msg.Kind,
			[]byte(parts),
			metadataJSON,
			createdAt,
			updatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save message: %w", err)
		}
	}

	return nil
}

// GetMessages retrieves a session's log ordered by position
func (s *SQLStore) GetMessages(ctx context.Context, sessionID string) ([]*Message, error) {
	query := `
		SELECT id, session_id, position, kind, parts, metadata, created_at, updated_at
		FROM historypg_messages
		WHERE session_id = $1
		ORDER BY position ASC
	`

	rows, err := s.getExecutor(ctx).QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	return s.scanMessages(rows)
}

// ReplaceMessages atomically swaps a session's log for the given messages
func (s *SQLStore) ReplaceMessages(ctx context.Context, sessionID string, messages []*Message) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		query := `DELETE FROM historypg_messages WHERE session_id = $1`

		if _, err := s.getExecutor(ctx).ExecContext(ctx, query, sessionID); err != nil {
			return fmt.Errorf("failed to clear session messages: %w", err)
		}

		return s.SaveMessages(ctx, messages)
	})
}

// DeleteMessages deletes messages by their IDs
func (s *SQLStore) DeleteMessages(ctx context.Context, messageIDs []string) error {
	if len(messageIDs) == 0 {
		return nil
	}

	// Use pq.Array for PostgreSQL array parameter
	query := `DELETE FROM historypg_messages WHERE id = ANY($1)`

	_, err := s.getExecutor(ctx).ExecContext(ctx, query, pq.Array(messageIDs))
	if err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}

	return nil
}

// scanMessages is a helper to scan message rows
func (s *SQLStore) scanMessages(rows *sql.Rows) ([]*Message, error) {
	var messages []*Message

	for rows.Next() {
		var msg Message
		var partsJSON []byte
		var metadataJSON []byte

		err := rows.Scan(
			&msg.ID,
			&msg.SessionID,
			&msg.Position,
			&msg.Kind,
			&partsJSON,
			&metadataJSON,
			&msg.CreatedAt,
			&msg.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		msg.Parts = json.RawMessage(partsJSON)

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &msg.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}

		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

// SaveProcessEvent saves a processing audit event
func (s *SQLStore) SaveProcessEvent(ctx context.Context, event *ProcessEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	editedJSON, err := json.Marshal(event.PartsEdited)
	if err != nil {
		return fmt.Errorf("failed to marshal edited counts: %w", err)
	}

	droppedJSON, err := json.Marshal(event.PartsDropped)
	if err != nil {
		return fmt.Errorf("failed to marshal dropped counts: %w", err)
	}

	query := `
		INSERT INTO historypg_process_events
			(id, session_id, retry_prompts_dropped, tool_calls_dropped, messages_dropped,
			 parts_edited, parts_dropped, original_messages, final_messages,
			 duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
	`

	_, err = s.getExecutor(ctx).ExecContext(ctx, query,
		event.ID,
		event.SessionID,
		event.RetryPromptsDropped,
		event.ToolCallsDropped,
		event.MessagesDropped,
		editedJSON,
		droppedJSON,
		event.OriginalMessages,
		event.FinalMessages,
		event.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("failed to save process event: %w", err)
	}

	return nil
}

// GetProcessHistory retrieves processing history for a session
func (s *SQLStore) GetProcessHistory(ctx context.Context, sessionID string) ([]*ProcessEvent, error) {
	query := `
		SELECT id, session_id, retry_prompts_dropped, tool_calls_dropped, messages_dropped,
		       parts_edited, parts_dropped, original_messages, final_messages,
		       duration_ms, created_at
		FROM historypg_process_events
		WHERE session_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.getExecutor(ctx).QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query process history: %w", err)
	}
	defer rows.Close()

	var events []*ProcessEvent

	for rows.Next() {
		var event ProcessEvent
		var editedJSON []byte
		var droppedJSON []byte

		err := rows.Scan(
			&event.ID,
			&event.SessionID,
			&event.RetryPromptsDropped,
			&event.ToolCallsDropped,
			&event.MessagesDropped,
			&editedJSON,
			&droppedJSON,
			&event.OriginalMessages,
			&event.FinalMessages,
			&event.DurationMs,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan process event: %w", err)
		}

		if len(editedJSON) > 0 {
			if err := json.Unmarshal(editedJSON, &event.PartsEdited); err != nil {
				return nil, fmt.Errorf("failed to unmarshal edited counts: %w", err)
			}
		}

		if len(droppedJSON) > 0 {
			if err := json.Unmarshal(droppedJSON, &event.PartsDropped); err != nil {
				return nil, fmt.Errorf("failed to unmarshal dropped counts: %w", err)
			}
		}

		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating process events: %w", err)
	}

	return events, nil
}

// ArchiveMessages archives messages that were removed during processing
func (s *SQLStore) ArchiveMessages(ctx context.Context, processEventID string, messages []*Message) error {
	if len(messages) == 0 {
		return nil
	}

	query := `
		INSERT INTO historypg_message_archive (id, process_event_id, session_id, original_message, archived_at)
		VALUES ($1, $2, $3, $4, NOW())
	`

	exec := s.getExecutor(ctx)

	for _, msg := range messages {
		msgJSON, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}

		_, err = exec.ExecContext(ctx, query, uuid.New().String(), processEventID, msg.SessionID, msgJSON)
		if err != nil {
			return fmt.Errorf("failed to archive message: %w", err)
		}
	}

	return nil
}
