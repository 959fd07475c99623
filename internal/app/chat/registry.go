package chat

import (
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"bookchat/internal/pkg/errs"
	"bookchat/internal/pkg/logx"
	"bookchat/internal/pkg/metric"
)

// Outbound is the write side of a connection as seen by the core.
type Outbound interface {
	// Enqueue queues one encoded frame without blocking. It returns false if the frame was not queued.
	Enqueue(frame []byte) bool

	// Close ends the write side. It must be safe to call more than once.
	Close()
}

// Conn is the registry's bookkeeping for one live connection.
type Conn struct {
	ID ConnectionID

	out Outbound

	// mu guards closed and rooms. It is taken before any Manager or Room lock.
	mu     sync.Mutex
	closed bool
	rooms  map[RoomID]struct{}
}

// evictor removes a disconnected connection from a room's member set.
type evictor interface {
	evict(id ConnectionID, room RoomID)
}

// Registry tracks live connections and the rooms each has joined.
type Registry struct {
	mu    sync.RWMutex
	conns map[ConnectionID]*Conn

	rooms evictor
	newID func() string

	logger zerolog.Logger
}

func newRegistry(rooms evictor, newID func() string) *Registry {
	return &Registry{
		conns:  make(map[ConnectionID]*Conn),
		rooms:  rooms,
		newID:  newID,
		logger: logx.Component("registry"),
	}
}

// OnConnect registers out as a new connection and returns its identifier.
func (r *Registry) OnConnect(out Outbound) ConnectionID {
	conn := &Conn{
		out:   out,
		rooms: make(map[RoomID]struct{}),
	}

	r.mu.Lock()
	for {
		conn.ID = ConnectionID(r.newID())
		if _, taken := r.conns[conn.ID]; !taken {
			break
		}
	}
	r.conns[conn.ID] = conn
	total := len(r.conns)
	r.mu.Unlock()

	metric.IncrementWSActiveConnections()
	r.logger.Debug().
		Str("connection_id", string(conn.ID)).
		Int("total_connections", total).
		Msg("Connection registered.")

	return conn.ID
}

// OnDisconnect forgets the connection, evicts it from every room it joined and closes its
// outbound side. Unknown or already disconnected ids are ignored.
func (r *Registry) OnDisconnect(id ConnectionID) {
	r.mu.Lock()
	conn, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	conn.mu.Lock()
	if conn.closed {
		conn.mu.Unlock()
		return
	}
	conn.closed = true
	joined := lo.Keys(conn.rooms)
	conn.rooms = nil
	conn.mu.Unlock()

	for _, room := range joined {
		r.rooms.evict(id, room)
	}

	conn.out.Close()
	metric.DecrementWSActiveConnections()

	r.logger.Debug().
		Str("connection_id", string(id)).
		Int("rooms_left", len(joined)).
		Msg("Connection unregistered.")
}

// RoomsOf returns the rooms id has joined, sorted. Unknown ids have none.
func (r *Registry) RoomsOf(id ConnectionID) []RoomID {
	var rooms []RoomID

	_ = r.withConn(id, func(conn *Conn) {
		rooms = lo.Keys(conn.rooms)
	})

	slices.Sort(rooms)
	return rooms
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// CloseAll disconnects every live connection.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	ids := lo.Keys(r.conns)
	r.mu.RUnlock()

	for _, id := range ids {
		r.OnDisconnect(id)
	}
}

// withConn runs fn with the connection's lock held. It fails with ErrConnectionUnknown
// when the connection is not registered or is being torn down, in which case fn is not called.
func (r *Registry) withConn(id ConnectionID, fn func(conn *Conn)) error {
	r.mu.RLock()
	conn, ok := r.conns[id]
	r.mu.RUnlock()

	if !ok {
		return errs.NewError(errs.ErrConnectionUnknown)
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()

	if conn.closed {
		return errs.NewError(errs.ErrConnectionUnknown)
	}

	fn(conn)
	return nil
}
