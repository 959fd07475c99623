package chat

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bookchat/internal/pkg/errs"
)

type persisted struct {
	mu       sync.Mutex
	messages []Message
}

func (p *persisted) Persist(msg Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
}

func (p *persisted) all() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.messages...)
}

// panickingPersister simulates a store layer that blows up.
type panickingPersister struct{}

func (panickingPersister) Persist(Message) { panic("store unavailable") }

var fixedNow = time.Date(2024, 5, 1, 12, 30, 0, 123_000_000, time.FixedZone("CEST", 2*3600))

func newTestDispatcher(p Persister, opts ...DispatcherOption) *Dispatcher {
	opts = append([]DispatcherOption{
		WithClock(func() time.Time { return fixedNow }),
		WithMessageIDs(sequentialIDs("msg")),
	}, opts...)
	return NewDispatcher(newManager(sequentialIDs("c")), p, opts...)
}

func frame(event string, data any) []byte {
	raw, err := json.Marshal(map[string]any{"event": event, "data": data})
	if err != nil {
		panic(err)
	}
	return raw
}

func sendFrame(room, content, senderID, senderName string) []byte {
	return frame(EventSendMessage, map[string]string{
		"bookingId":  room,
		"content":    content,
		"senderId":   senderID,
		"senderName": senderName,
	})
}

func TestSendMessageReachesSenderAndPeers(t *testing.T) {
	require := require.New(t)

	store := &persisted{}
	d := newTestDispatcher(store)
	c1, out1 := connect(d.Manager())
	c2, out2 := connect(d.Manager())

	d.Handle(c1, frame(EventJoinRoom, "B1"))
	d.Handle(c2, frame(EventJoinRoom, "B1"))
	d.Handle(c1, sendFrame("B1", "hi", "u1", "Alice"))

	want := `{
		"id": "msg-1",
		"content": "hi",
		"senderId": "u1",
		"sender": {"name": "Alice"},
		"createdAt": "2024-05-01T10:30:00.123Z",
		"type": "TEXT"
	}`

	for _, out := range []*recorder{out1, out2} {
		got := out.received(t)
		last := got[len(got)-1]
		require.Equal(EventReceiveMessage, last.Event)
		require.JSONEq(want, string(last.Data))
	}

	saved := store.all()
	require.Len(saved, 1)
	require.Equal("msg-1", saved[0].ID)
	require.Equal(RoomID("B1"), saved[0].RoomID)
	require.Equal(KindText, saved[0].Kind)
	require.Equal(time.UTC, saved[0].CreatedAt.Location())
}

func TestSendMessageStaysInItsRoom(t *testing.T) {
	require := require.New(t)

	d := newTestDispatcher(nil)
	c1, out1 := connect(d.Manager())
	c2, out2 := connect(d.Manager())

	d.Handle(c1, frame(EventJoinRoom, "B2"))
	d.Handle(c1, sendFrame("B2", "only me", "u1", "Alice"))

	require.Equal([]string{EventReceiveMessage}, out1.events(t))
	require.Empty(out2.received(t))
	require.Empty(d.Manager().Registry().RoomsOf(c2))
}

func TestSendAfterPeerDisconnected(t *testing.T) {
	require := require.New(t)

	d := newTestDispatcher(nil)
	c1, out1 := connect(d.Manager())
	c2, out2 := connect(d.Manager())

	d.Handle(c1, frame(EventJoinRoom, "B3"))
	require.NoError(d.Dispatch(c1, Disconnect{}))
	require.True(out1.isClosed())

	d.Handle(c2, frame(EventJoinRoom, "B3"))
	d.Handle(c2, sendFrame("B3", "anyone?", "u2", "Bob"))

	require.Empty(out1.received(t))
	require.Equal([]string{EventReceiveMessage}, out2.events(t))
	require.Equal([]ConnectionID{c2}, d.Manager().Members("B3"))
}

func TestSendMessageRejectsInvalidPayloads(t *testing.T) {
	tests := []struct {
		name string
		data map[string]string
		code int
	}{
		{
			name: "missing sender id",
			data: map[string]string{"bookingId": "B1", "content": "hi", "senderName": "Alice"},
			code: errs.ErrSenderRequired,
		},
		{
			name: "missing booking id",
			data: map[string]string{"content": "hi", "senderId": "u1"},
			code: errs.ErrRoomIDRequired,
		},
		{
			name: "empty content",
			data: map[string]string{"bookingId": "B1", "content": "", "senderId": "u1"},
			code: errs.ErrContentRequired,
		},
		{
			name: "content too long",
			data: map[string]string{"bookingId": "B1", "content": strings.Repeat("a", 11), "senderId": "u1"},
			code: errs.ErrMessageContentTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			store := &persisted{}
			d := newTestDispatcher(store, WithMaxContentBytes(10))
			c1, out1 := connect(d.Manager())
			d.Handle(c1, frame(EventJoinRoom, "B1"))

			evt, err := Decode(frame(EventSendMessage, tt.data))
			require.NoError(err)
			require.Equal(tt.code, errs.CodeOf(d.Dispatch(c1, evt)))

			d.Handle(c1, frame(EventSendMessage, tt.data))

			require.Empty(out1.received(t))
			require.Empty(store.all())
		})
	}
}

func TestContentAtLimitIsAccepted(t *testing.T) {
	require := require.New(t)

	d := newTestDispatcher(nil, WithMaxContentBytes(10))
	c1, out1 := connect(d.Manager())

	d.Handle(c1, frame(EventJoinRoom, "B1"))
	d.Handle(c1, sendFrame("B1", strings.Repeat("a", 10), "u1", ""))

	require.Equal([]string{EventReceiveMessage}, out1.events(t))
}

func TestSendFromNonMemberIsStillBroadcast(t *testing.T) {
	require := require.New(t)

	d := newTestDispatcher(nil)
	c1, out1 := connect(d.Manager())
	c2, out2 := connect(d.Manager())

	d.Handle(c1, frame(EventJoinRoom, "B1"))
	d.Handle(c2, sendFrame("B1", "hello from outside", "u2", "Bob"))

	require.Equal([]string{EventReceiveMessage}, out1.events(t))
	require.Empty(out2.received(t))
}

func TestBadFramesAreDropped(t *testing.T) {
	require := require.New(t)

	store := &persisted{}
	d := newTestDispatcher(store)
	c1, out1 := connect(d.Manager())
	d.Handle(c1, frame(EventJoinRoom, "B1"))

	for _, raw := range []string{
		`not json`,
		`{"data":"B1"}`,
		`{"event":"typing","data":"B1"}`,
		`{"event":"join_room"}`,
		`{"event":"join_room","data":42}`,
		`{"event":"send_message"}`,
		`{"event":"send_message","data":"hi"}`,
	} {
		d.Handle(c1, []byte(raw))
	}

	require.Empty(out1.received(t))
	require.Empty(store.all())
	require.Equal([]RoomID{"B1"}, d.Manager().Registry().RoomsOf(c1))
}

func TestJoinWithEmptyRoomID(t *testing.T) {
	require := require.New(t)

	d := newTestDispatcher(nil)
	c1, _ := connect(d.Manager())

	require.Equal(errs.ErrRoomIDRequired, errs.CodeOf(d.Dispatch(c1, JoinRoom{})))
	require.Equal(errs.ErrRoomIDRequired, errs.CodeOf(d.Dispatch(c1, LeaveRoom{})))
	require.Zero(d.Manager().RoomCount())
}

func TestLeaveRoomFrame(t *testing.T) {
	require := require.New(t)

	d := newTestDispatcher(nil)
	c1, out1 := connect(d.Manager())
	c2, out2 := connect(d.Manager())

	d.Handle(c1, frame(EventJoinRoom, "B1"))
	d.Handle(c2, frame(EventJoinRoom, "B1"))
	d.Handle(c2, frame(EventLeaveRoom, "B1"))
	d.Handle(c1, sendFrame("B1", "bye", "u1", "Alice"))

	require.Equal([]string{EventUserJoined, EventReceiveMessage}, out1.events(t))
	require.Empty(out2.received(t))
}

func TestPersisterFailureDoesNotReachTheConnection(t *testing.T) {
	require := require.New(t)

	d := newTestDispatcher(panickingPersister{})
	c1, out1 := connect(d.Manager())
	d.Handle(c1, frame(EventJoinRoom, "B1"))

	client := &Client{id: c1, dispatcher: d, logger: d.logger}
	require.NotPanics(func() {
		client.handleFrame(sendFrame("B1", "hi", "u1", "Alice"))
	})

	// The broadcast happens before the message is handed over for storage.
	require.Equal([]string{EventReceiveMessage}, out1.events(t))
	require.Equal([]RoomID{"B1"}, d.Manager().Registry().RoomsOf(c1))
}
