package chat

import "time"

// ConnectionID identifies one live transport connection. It is opaque to clients.
type ConnectionID string

// RoomID identifies a room. It is the external booking identifier.
type RoomID string

// Kind is the message variant. Only KindText is produced today; the set is open.
type Kind string

const (
	// KindText is a plain text chat message.
	KindText Kind = "TEXT"
)

// Message is an accepted chat message. It is built once by the Dispatcher and then
// passed by value to the room broadcast and to the persistence bridge.
type Message struct {
	ID         string
	RoomID     RoomID
	Content    string
	SenderID   string
	SenderName string
	Kind       Kind
	CreatedAt  time.Time
}

// NewTextMessage builds a text message. id and createdAt are assigned by the server.
func NewTextMessage(id string, room RoomID, content, senderID, senderName string, createdAt time.Time) Message {
	return Message{
		ID:         id,
		RoomID:     room,
		Content:    content,
		SenderID:   senderID,
		SenderName: senderName,
		Kind:       KindText,
		CreatedAt:  createdAt.UTC(),
	}
}
