package chat

import (
	"context"
)

// Repository defines the operations for persisting registered chats so the
// registry can be rehydrated and timers re-armed after a restart. Only the
// registration itself is durable; conversation state is in-memory.
type Repository interface {
	Create(ctx context.Context, conv *Conversation) error
	GetByChatID(ctx context.Context, chatID int64) (*Conversation, error)
	ListAll(ctx context.Context) ([]*Conversation, error)
	Delete(ctx context.Context, chatID int64) error
}
