package chat

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"bookchat/internal/pkg/errs"
	"bookchat/internal/pkg/logx"
	"bookchat/internal/pkg/metric"
	"bookchat/internal/pkg/randx"
)

// DefaultMaxContentBytes caps the size of a message's content.
const DefaultMaxContentBytes = 5000

// Persister receives accepted messages for durable storage.
// Persist must return immediately; the outcome is never reported back.
type Persister interface {
	Persist(msg Message)
}

// Dispatcher validates inbound events and routes them to the Manager and the Persister.
// It keeps no per-connection state.
type Dispatcher struct {
	manager   *Manager
	persister Persister
	validate  *validator.Validate

	maxContentBytes int
	now             func() time.Time
	newID           func() string

	logger zerolog.Logger
}

// DispatcherOption customises a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithMaxContentBytes sets the largest accepted message content, in bytes.
func WithMaxContentBytes(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxContentBytes = n
		}
	}
}

// WithClock replaces the clock used for message timestamps.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// WithMessageIDs replaces the message identifier generator.
func WithMessageIDs(newID func() string) DispatcherOption {
	return func(d *Dispatcher) { d.newID = newID }
}

// NewDispatcher returns a Dispatcher bound to manager. persister may be nil, in which case
// accepted messages are only broadcast.
func NewDispatcher(manager *Manager, persister Persister, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		manager:         manager,
		persister:       persister,
		validate:        validator.New(),
		maxContentBytes: DefaultMaxContentBytes,
		now:             time.Now,
		newID:           randx.MessageID,
		logger:          logx.Component("dispatcher"),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Manager returns the room engine events are dispatched to.
func (d *Dispatcher) Manager() *Manager {
	return d.manager
}

// Handle decodes one raw frame from the connection and dispatches it.
// Bad frames are logged and dropped; they never affect the connection.
func (d *Dispatcher) Handle(id ConnectionID, raw []byte) {
	evt, err := Decode(raw)
	if err == nil {
		err = d.Dispatch(id, evt)
	}

	if err != nil {
		d.logger.Warn().
			Err(err).
			Str("connection_id", string(id)).
			Int("frame_bytes", len(raw)).
			Msg("Inbound event dropped.")
		metric.RecordDropped(dropReason(err))
	}
}

// Dispatch applies one decoded event on behalf of the connection. The returned error
// explains why the event was dropped; it is informational only.
func (d *Dispatcher) Dispatch(id ConnectionID, evt Inbound) error {
	switch e := evt.(type) {
	case JoinRoom:
		if e.RoomID == "" {
			return errs.NewError(errs.ErrRoomIDRequired)
		}
		d.manager.Join(id, e.RoomID)

	case LeaveRoom:
		if e.RoomID == "" {
			return errs.NewError(errs.ErrRoomIDRequired)
		}
		d.manager.Leave(id, e.RoomID)

	case SendMessage:
		return d.sendMessage(e)

	case Disconnect:
		d.manager.Registry().OnDisconnect(id)

	default:
		return errs.NewError(errs.ErrMalformedEvent)
	}

	return nil
}

// sendMessage validates the payload, broadcasts the resulting message to the room and
// hands it to the persister without waiting.
func (d *Dispatcher) sendMessage(e SendMessage) error {
	if err := d.validateSend(e); err != nil {
		return err
	}

	msg := NewTextMessage(d.newID(), e.RoomID, e.Content, e.SenderID, e.SenderName, d.now())

	delivered := d.manager.Broadcast(msg.RoomID, ReceiveMessage(msg))

	if d.persister != nil {
		d.persister.Persist(msg)
	}

	d.logger.Debug().
		Str("message_id", msg.ID).
		Str("room_id", string(msg.RoomID)).
		Int("delivered", delivered).
		Msg("Message accepted.")

	return nil
}

func (d *Dispatcher) validateSend(e SendMessage) error {
	if err := d.validate.Struct(e); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			switch fieldErrs[0].StructField() {
			case "RoomID":
				return errs.NewError(errs.ErrRoomIDRequired)
			case "Content":
				return errs.NewError(errs.ErrContentRequired)
			case "SenderID":
				return errs.NewError(errs.ErrSenderRequired)
			}
		}
		return errs.NewError(errs.ErrInvalidParams)
	}

	if len(e.Content) > d.maxContentBytes {
		return errs.NewError(errs.ErrMessageContentTooLong, d.maxContentBytes)
	}

	return nil
}

func dropReason(err error) string {
	switch errs.CodeOf(err) {
	case errs.ErrMalformedEvent:
		return metric.DropMalformed
	case errs.ErrUnknownEvent:
		return metric.DropUnknownEvent
	case errs.ErrMessageContentTooLong:
		return metric.DropTooLong
	default:
		return metric.DropInvalid
	}
}
