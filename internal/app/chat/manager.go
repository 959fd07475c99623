package chat

import (
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"bookchat/internal/pkg/logx"
	"bookchat/internal/pkg/metric"
	"bookchat/internal/pkg/randx"
)

// Manager is the room broadcast engine. It owns the room map and the connection Registry
// and is the only component that mutates room membership.
//
// Lock order: Conn.mu, then Manager.mu, then Room.mu.
type Manager struct {
	// mu protects the rooms map. Rooms are created on first join and removed once empty.
	mu    sync.RWMutex
	rooms map[RoomID]*Room

	registry *Registry

	logger zerolog.Logger
}

// NewManager returns a Manager with an empty room map and its own Registry.
func NewManager() *Manager {
	return newManager(randx.ConnectionID)
}

func newManager(newID func() string) *Manager {
	m := &Manager{
		rooms:  make(map[RoomID]*Room),
		logger: logx.Component("manager"),
	}
	m.registry = newRegistry(m, newID)
	return m
}

// Registry returns the connection registry bound to this Manager.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Join adds the connection to the room. The first join notifies every other current member
// with user_joined; joining again changes nothing. Unknown connections are ignored.
func (m *Manager) Join(id ConnectionID, roomID RoomID) {
	frame, err := UserJoined(id).Encode()
	if err != nil {
		m.logger.Error().Err(err).Msg("Failed to encode user_joined event.")
		return
	}

	err = m.registry.withConn(id, func(conn *Conn) {
		if _, ok := conn.rooms[roomID]; ok {
			return
		}

		room, notified := m.addMember(roomID, conn, frame)
		conn.rooms[roomID] = struct{}{}

		if notified > 0 {
			metric.RecordBroadcast(EventUserJoined, notified)
		}
		m.logger.Debug().
			Str("connection_id", string(id)).
			Str("room_id", string(room.ID)).
			Int("notified", notified).
			Msg("Join processed.")
	})
	if err != nil {
		metric.RecordDropped(metric.DropUnknownConn)
		m.logger.Warn().
			Str("connection_id", string(id)).
			Str("room_id", string(roomID)).
			Msg("Join ignored for unknown connection.")
	}
}

// Leave removes the connection from the room. No notification is sent.
func (m *Manager) Leave(id ConnectionID, roomID RoomID) {
	_ = m.registry.withConn(id, func(conn *Conn) {
		if _, ok := conn.rooms[roomID]; !ok {
			return
		}
		delete(conn.rooms, roomID)
		m.removeMember(roomID, id)
	})
}

// Broadcast delivers evt to every current member of the room, the sender included, and
// returns the number of connections that accepted it. A room without members is a no-op.
func (m *Manager) Broadcast(roomID RoomID, evt OutboundEvent) int {
	frame, err := evt.Encode()
	if err != nil {
		m.logger.Error().Err(err).Str("event", evt.Name).Msg("Failed to encode broadcast event.")
		return 0
	}

	room := m.lookup(roomID)
	if room == nil {
		return 0
	}

	room.mu.Lock()
	delivered := 0
	if !room.closed {
		delivered = room.deliver(frame)
	}
	room.mu.Unlock()

	metric.RecordBroadcast(evt.Name, delivered)
	return delivered
}

// Members returns the connections currently in the room, sorted.
func (m *Manager) Members(roomID RoomID) []ConnectionID {
	room := m.lookup(roomID)
	if room == nil {
		return nil
	}

	room.mu.Lock()
	members := lo.Keys(room.members)
	room.mu.Unlock()

	slices.Sort(members)
	return members
}

// RoomCount returns the number of rooms with at least one member.
func (m *Manager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// Shutdown disconnects every connection, which empties and removes every room.
func (m *Manager) Shutdown() {
	m.logger.Info().Int("connections", m.registry.Len()).Msg("Shutting down chat manager...")
	m.registry.CloseAll()
	m.logger.Info().Int("rooms", m.RoomCount()).Msg("Chat manager shutdown complete.")
}

// evict is called by the Registry for each room of a disconnected connection.
func (m *Manager) evict(id ConnectionID, roomID RoomID) {
	m.removeMember(roomID, id)
}

func (m *Manager) lookup(roomID RoomID) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[roomID]
}

// addMember inserts conn into the room, creating it if needed, and returns the room and
// how many existing members were notified.
func (m *Manager) addMember(roomID RoomID, conn *Conn, joinedFrame []byte) (*Room, int) {
	for {
		room := m.getOrCreate(roomID)

		room.mu.Lock()
		if room.closed {
			room.mu.Unlock()
			continue
		}

		_, notified := room.add(conn.ID, conn.out, joinedFrame)
		room.mu.Unlock()

		return room, notified
	}
}

func (m *Manager) getOrCreate(roomID RoomID) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		room = newRoom(roomID, m.logger)
		m.rooms[roomID] = room
		metric.SetActiveRooms(len(m.rooms))
		m.logger.Debug().Str("room_id", string(roomID)).Msg("Room created.")
	}
	return room
}

func (m *Manager) removeMember(roomID RoomID, id ConnectionID) {
	room := m.lookup(roomID)
	if room == nil {
		return
	}

	room.mu.Lock()
	empty := room.remove(id)
	room.mu.Unlock()

	if empty {
		m.collect(roomID, room)
	}
}

// collect drops room from the map if it is still the registered instance and still empty.
func (m *Manager) collect(roomID RoomID, room *Room) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room.mu.Lock()
	defer room.mu.Unlock()

	if m.rooms[roomID] != room || len(room.members) > 0 {
		return
	}

	room.closed = true
	delete(m.rooms, roomID)
	metric.SetActiveRooms(len(m.rooms))

	m.logger.Debug().Str("room_id", string(roomID)).Msg("Empty room removed.")
}
