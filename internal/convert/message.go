// Package convert provides utilities for converting between message formats.
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/youssefsiam38/historypg/storage"
	"github.com/youssefsiam38/historypg/types"
)

// ToStorageMessage converts a types.Message to storage.Message format.
// Position is the message's index within the session's log.
func ToStorageMessage(msg *types.Message, position int) (*storage.Message, error) {
	parts, err := json.Marshal(msg.Parts)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal parts: %w", err)
	}

	return &storage.Message{
		ID:        msg.ID,
		SessionID: msg.SessionID,
		Position:  position,
		Kind:      string(msg.Kind),
		Parts:     parts,
		Metadata:  msg.Metadata,
		CreatedAt: msg.CreatedAt,
		UpdatedAt: msg.UpdatedAt,
	}, nil
}

// FromStorageMessage converts a storage.Message to types.Message format.
func FromStorageMessage(sm *storage.Message) (*types.Message, error) {
	msg := &types.Message{
		ID:        sm.ID,
		SessionID: sm.SessionID,
		Kind:      types.Kind(sm.Kind),
		Metadata:  sm.Metadata,
		CreatedAt: sm.CreatedAt,
		UpdatedAt: sm.UpdatedAt,
	}

	if len(sm.Parts) > 0 {
		if err := json.Unmarshal(sm.Parts, &msg.Parts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal parts: %w", err)
		}
	}

	return msg, nil
}

// ToStorageMessages converts a log to storage format, assigning positions in
// log order.
func ToStorageMessages(messages []*types.Message) ([]*storage.Message, error) {
	result := make([]*storage.Message, len(messages))
	for i, msg := range messages {
		sm, err := ToStorageMessage(msg, i)
		if err != nil {
			return nil, err
		}
		result[i] = sm
	}
	return result, nil
}

// FromStorageMessages converts a slice of storage.Message to types.Message format.
func FromStorageMessages(storageMessages []*storage.Message) ([]*types.Message, error) {
	messages := make([]*types.Message, len(storageMessages))
	for i, sm := range storageMessages {
		msg, err := FromStorageMessage(sm)
		if err != nil {
			return nil, err
		}
		messages[i] = msg
	}
	return messages, nil
}
