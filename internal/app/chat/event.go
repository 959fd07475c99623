/*
Package chat contains the realtime booking-chat core: the connection registry, the room
broadcast engine (Manager), the event protocol dispatcher and the websocket client pumps.

This file defines the wire protocol. Every frame is a JSON object
{"event": "<name>", "data": <payload>} in both directions.
*/
package chat

import (
	"encoding/json"
	"strings"

	"bookchat/internal/pkg/errs"
)

// Event names.
const (
	EventJoinRoom       = "join_room"
	EventLeaveRoom      = "leave_room"
	EventSendMessage    = "send_message"
	EventUserJoined     = "user_joined"
	EventReceiveMessage = "receive_message"
)

// CreatedAtLayout is the ISO-8601 layout of receive_message.createdAt (UTC, millisecond precision).
const CreatedAtLayout = "2006-01-02T15:04:05.000Z07:00"

// Inbound is a decoded client event: one of JoinRoom, LeaveRoom, SendMessage or Disconnect.
type Inbound interface {
	EventName() string
}

// JoinRoom subscribes the connection to a room.
type JoinRoom struct {
	RoomID RoomID
}

// LeaveRoom unsubscribes the connection from a room.
type LeaveRoom struct {
	RoomID RoomID
}

// SendMessage submits a chat message to a room.
type SendMessage struct {
	RoomID     RoomID `json:"bookingId" validate:"required"`
	Content    string `json:"content" validate:"required"`
	SenderID   string `json:"senderId" validate:"required"`
	SenderName string `json:"senderName"`
}

// Disconnect is raised by the transport when the connection is gone. It never arrives on the wire.
type Disconnect struct{}

func (JoinRoom) EventName() string    { return EventJoinRoom }
func (LeaveRoom) EventName() string   { return EventLeaveRoom }
func (SendMessage) EventName() string { return EventSendMessage }
func (Disconnect) EventName() string  { return "disconnect" }

// envelope is the frame shape shared by both directions.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Decode parses one inbound frame. It checks structure only; field rules are applied by the Dispatcher.
func Decode(raw []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errs.NewError(errs.ErrMalformedEvent)
	}

	switch strings.TrimSpace(env.Event) {
	case EventJoinRoom:
		room, err := decodeRoomID(env.Data)
		if err != nil {
			return nil, err
		}
		return JoinRoom{RoomID: room}, nil

	case EventLeaveRoom:
		room, err := decodeRoomID(env.Data)
		if err != nil {
			return nil, err
		}
		return LeaveRoom{RoomID: room}, nil

	case EventSendMessage:
		var payload SendMessage
		if len(env.Data) == 0 {
			return nil, errs.NewError(errs.ErrMalformedEvent)
		}
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return nil, errs.NewError(errs.ErrMalformedEvent)
		}
		return payload, nil

	case "":
		return nil, errs.NewError(errs.ErrMalformedEvent)

	default:
		return nil, errs.NewError(errs.ErrUnknownEvent, env.Event)
	}
}

// decodeRoomID reads the bare booking id string carried by join_room and leave_room.
func decodeRoomID(data json.RawMessage) (RoomID, error) {
	if len(data) == 0 {
		return "", errs.NewError(errs.ErrRoomIDRequired)
	}

	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return "", errs.NewError(errs.ErrMalformedEvent)
	}

	return RoomID(id), nil
}

// OutboundEvent is a server event before encoding.
type OutboundEvent struct {
	Name string
	Data any
}

// Encode renders the event as a wire frame.
func (e OutboundEvent) Encode() ([]byte, error) {
	return json.Marshal(struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}{
		Event: e.Name,
		Data:  e.Data,
	})
}

// UserJoinedPayload is the data of user_joined.
type UserJoinedPayload struct {
	UserID ConnectionID `json:"userId"`
}

// SenderPayload is the sender block of receive_message.
type SenderPayload struct {
	Name string `json:"name"`
}

// ReceiveMessagePayload is the data of receive_message.
type ReceiveMessagePayload struct {
	ID        string        `json:"id"`
	Content   string        `json:"content"`
	SenderID  string        `json:"senderId"`
	Sender    SenderPayload `json:"sender"`
	CreatedAt string        `json:"createdAt"`
	Type      Kind          `json:"type"`
}

// UserJoined builds the notification sent to existing members when id joins.
func UserJoined(id ConnectionID) OutboundEvent {
	return OutboundEvent{
		Name: EventUserJoined,
		Data: UserJoinedPayload{UserID: id},
	}
}

// NewReceiveMessagePayload maps a Message to its wire representation.
func NewReceiveMessagePayload(msg Message) ReceiveMessagePayload {
	return ReceiveMessagePayload{
		ID:        msg.ID,
		Content:   msg.Content,
		SenderID:  msg.SenderID,
		Sender:    SenderPayload{Name: msg.SenderName},
		CreatedAt: msg.CreatedAt.UTC().Format(CreatedAtLayout),
		Type:      msg.Kind,
	}
}

// ReceiveMessage builds the fan-out event for an accepted message.
func ReceiveMessage(msg Message) OutboundEvent {
	return OutboundEvent{
		Name: EventReceiveMessage,
		Data: NewReceiveMessagePayload(msg),
	}
}
