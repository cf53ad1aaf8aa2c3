package ws

import (
	"log"
	"sync"

	"github.com/alagerbyemene-code/Appchat/pkg/interfaces"
	"github.com/alagerbyemene-code/Appchat/pkg/types"
)

// Registry is the authoritative live-connection table, keyed by principal id.
// Room membership is derived: a room's members are the connections whose
// current room id equals the room id, tracked in a secondary index for O(1)
// roster snapshots.
type Registry struct {
	directory interfaces.RoomDirectory

	mu      sync.RWMutex
	byUser  map[int64]*Connection
	byRoom  map[int64]map[int64]*Connection // roomID -> userID -> Connection
}

func NewRegistry(directory interfaces.RoomDirectory) *Registry {
	return &Registry{
		directory: directory,
		byUser:    make(map[int64]*Connection),
		byRoom:    make(map[int64]map[int64]*Connection),
	}
}

// Admit registers a connection for its principal. Banned principals are
// rejected and the caller must close the transport. A second login for the
// same principal wins: the previous entry is evicted and its transport closed
// asynchronously so the stale session stops receiving room broadcasts.
func (r *Registry) Admit(user *types.User, conn *Connection) error {
	if conn == nil {
		return ErrNilConnection
	}
	if user.IsBanned {
		reason := ""
		if user.BanReason != nil {
			reason = *user.BanReason
		}
		return types.NewBannedError(reason)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byUser[user.ID]; ok {
		r.detachFromRoomLocked(existing)
		// Close outside the lock path; Close waits on nothing but must not
		// run under the registry mutex.
		go func() {
			if err := existing.Close(); err != nil {
				log.Printf("registry: failed to close evicted connection for user %d: %v", user.ID, err)
			}
		}()
	}
	r.byUser[user.ID] = conn
	return nil
}

// Join moves a connection into a room. The previous room, if any, is left
// implicitly. Both old and new room ids are returned so the caller can
// recompute rosters for each.
func (r *Registry) Join(conn *Connection, roomID int64) (previousRoom int64, err error) {
	if conn == nil {
		return 0, ErrNilConnection
	}
	if !r.directory.RoomExists(roomID) {
		return 0, types.NewUnknownRoomError()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	previousRoom = conn.RoomID()
	r.detachFromRoomLocked(conn)

	if r.byRoom[roomID] == nil {
		r.byRoom[roomID] = make(map[int64]*Connection)
	}
	r.byRoom[roomID][conn.UserID()] = conn
	conn.setRoom(roomID)
	return previousRoom, nil
}

// Remove drops the registry entry for a principal. Idempotent: removing an
// absent principal is a no-op. Returns the removed connection, if any.
func (r *Registry) Remove(userID int64) *Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.byUser[userID]
	if !ok {
		return nil
	}
	r.detachFromRoomLocked(conn)
	delete(r.byUser, userID)
	return conn
}

// RemoveIfCurrent drops the entry only when conn is still the registered
// instance, so a stale connection's cleanup cannot evict its replacement.
// Returns the room the connection occupied, and whether removal happened.
func (r *Registry) RemoveIfCurrent(conn *Connection) (roomID int64, removed bool) {
	if conn == nil {
		return 0, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	registered, ok := r.byUser[conn.UserID()]
	if !ok || registered != conn {
		return 0, false
	}
	roomID = conn.RoomID()
	r.detachFromRoomLocked(conn)
	delete(r.byUser, conn.UserID())
	return roomID, true
}

// Get returns the live connection for a principal.
func (r *Registry) Get(userID int64) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.byUser[userID]
	return conn, ok
}

// ListByRoom returns a snapshot of the connections currently in a room.
// Joins after the call are not reflected in the returned slice.
func (r *Registry) ListByRoom(roomID int64) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.byRoom[roomID]
	out := make([]*Connection, 0, len(members))
	for _, conn := range members {
		out = append(out, conn)
	}
	return out
}

// ListAll returns a snapshot of every live connection.
func (r *Registry) ListAll() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Connection, 0, len(r.byUser))
	for _, conn := range r.byUser {
		out = append(out, conn)
	}
	return out
}

// Stats reports connection and occupied-room counts.
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return map[string]int{
		"connections":    len(r.byUser),
		"occupied_rooms": len(r.byRoom),
	}
}

// detachFromRoomLocked removes conn from the room index. Caller holds r.mu.
func (r *Registry) detachFromRoomLocked(conn *Connection) {
	roomID := conn.RoomID()
	if roomID == 0 {
		return
	}
	if members, ok := r.byRoom[roomID]; ok {
		if members[conn.UserID()] == conn {
			delete(members, conn.UserID())
			if len(members) == 0 {
				delete(r.byRoom, roomID)
			}
		}
	}
	conn.setRoom(0)
}
