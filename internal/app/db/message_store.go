package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"bookchat/internal/app/chat"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint violation.
const uniqueViolation = "23505"

const insertMessageSQL = `
INSERT INTO chat_messages (id, booking_id, content, sender_id, sender_name, type, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// execer is the subset of *pgxpool.Pool used by MessageStore.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// MessageStore writes chat messages to the chat_messages table.
type MessageStore struct {
	db execer
}

// NewMessageStore returns a store writing through db, typically a *pgxpool.Pool.
func NewMessageStore(db execer) *MessageStore {
	return &MessageStore{db: db}
}

// Save inserts msg. A row with the same id already present counts as success.
func (s *MessageStore) Save(ctx context.Context, msg chat.Message) error {
	_, err := s.db.Exec(ctx, insertMessageSQL,
		msg.ID,
		string(msg.RoomID),
		msg.Content,
		msg.SenderID,
		msg.SenderName,
		string(msg.Kind),
		msg.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("insert message %s: %w", msg.ID, err)
	}

	return nil
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
