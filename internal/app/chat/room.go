package chat

import (
	"sync"

	"github.com/rs/zerolog"

	"bookchat/internal/pkg/errs"
	"bookchat/internal/pkg/metric"
)

// Room is the member set of one booking's chat channel.
//
// Every membership change and every delivery holds mu exclusively, so all members
// observe broadcasts to the room in the same order and a member sees exactly the
// broadcasts issued while it belongs to the room.
type Room struct {
	ID RoomID

	mu      sync.Mutex
	members map[ConnectionID]Outbound

	// closed is set once the Manager has dropped the empty room from its map.
	// A closed room accepts no members; callers look the room up again.
	closed bool

	logger zerolog.Logger
}

func newRoom(id RoomID, parent zerolog.Logger) *Room {
	return &Room{
		ID:      id,
		members: make(map[ConnectionID]Outbound),
		logger:  parent.With().Str("room_id", string(id)).Logger(),
	}
}

// add inserts id and sends joinedFrame to the members already present, returning how many
// accepted it. It reports false, without notifying anyone, when id is already a member.
// The caller holds r.mu.
func (r *Room) add(id ConnectionID, out Outbound, joinedFrame []byte) (bool, int) {
	if _, ok := r.members[id]; ok {
		return false, 0
	}

	notified := r.deliver(joinedFrame)
	r.members[id] = out

	r.logger.Info().
		Str("connection_id", string(id)).
		Int("total_members", len(r.members)).
		Msg("Connection joined room.")

	return true, notified
}

// remove deletes id and reports whether the room is now empty. The caller holds r.mu.
func (r *Room) remove(id ConnectionID) bool {
	if _, ok := r.members[id]; ok {
		delete(r.members, id)
		r.logger.Info().
			Str("connection_id", string(id)).
			Int("total_members", len(r.members)).
			Msg("Connection left room.")
	}
	return len(r.members) == 0
}

// deliver queues frame to every member and returns how many accepted it.
// A member whose queue is full is closed; its transport then runs the normal disconnect path.
// The caller holds r.mu.
func (r *Room) deliver(frame []byte) int {
	delivered := 0

	for id, out := range r.members {
		if out.Enqueue(frame) {
			delivered++
			continue
		}

		r.logger.Warn().
			Err(errs.NewError(errs.ErrSlowConsumer)).
			Str("connection_id", string(id)).
			Msg("Send queue full or closed, dropping connection.")
		metric.RecordDropped(metric.DropSlowConsumer)
		out.Close()
	}

	return delivered
}
