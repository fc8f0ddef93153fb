package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"diet_follow_up_bot/internal/domain/chat"

	"github.com/lib/pq"
)

// Custom errors
var ErrChatNotFound = fmt.Errorf("registered chat not found")
var ErrDuplicateChatID = fmt.Errorf("chat with this ID is already registered")

const uniqueViolationCode = "23505"

// PostgresChatRepository persists chat registrations. Conversation state is
// deliberately not stored; only what is needed to rehydrate the registry
// and re-arm the scheduler after a restart.
type PostgresChatRepository struct {
	db *sql.DB
}

func NewPostgresChatRepository(db *sql.DB) *PostgresChatRepository {
	return &PostgresChatRepository{db: db}
}

func (r *PostgresChatRepository) Create(ctx context.Context, conv *chat.Conversation) error {
	query := `INSERT INTO registered_chats (chat_id, master_id, display_name)
              VALUES ($1, $2, $3)`

	_, err := r.db.ExecContext(ctx, query, conv.ChatID, conv.MasterID, conv.DisplayName)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolationCode {
			return ErrDuplicateChatID
		}
		return fmt.Errorf("error creating registered chat: %w", err)
	}
	return nil
}

func (r *PostgresChatRepository) GetByChatID(ctx context.Context, chatID int64) (*chat.Conversation, error) {
	query := `SELECT chat_id, master_id, display_name
              FROM registered_chats WHERE chat_id = $1`

	conv := &chat.Conversation{State: chat.Idle()}
	err := r.db.QueryRowContext(ctx, query, chatID).Scan(&conv.ChatID, &conv.MasterID, &conv.DisplayName)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("error getting registered chat: %w", err)
	}
	return conv, nil
}

func (r *PostgresChatRepository) ListAll(ctx context.Context) ([]*chat.Conversation, error) {
	query := `SELECT chat_id, master_id, display_name
              FROM registered_chats ORDER BY chat_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing registered chats: %w", err)
	}
	defer rows.Close()

	chats := make([]*chat.Conversation, 0)
	for rows.Next() {
		conv := &chat.Conversation{State: chat.Idle()}
		if err := rows.Scan(&conv.ChatID, &conv.MasterID, &conv.DisplayName); err != nil {
			return nil, fmt.Errorf("error scanning registered chat: %w", err)
		}
		chats = append(chats, conv)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registered chats: %w", err)
	}
	return chats, nil
}

func (r *PostgresChatRepository) Delete(ctx context.Context, chatID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM registered_chats WHERE chat_id = $1`, chatID)
	if err != nil {
		return fmt.Errorf("error deleting registered chat: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking deleted rows: %w", err)
	}
	if affected == 0 {
		return ErrChatNotFound
	}
	return nil
}
