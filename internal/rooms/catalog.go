package rooms

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/alagerbyemene-code/Appchat/pkg/interfaces"
	"github.com/alagerbyemene-code/Appchat/pkg/types"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrProtectedRoom   = errors.New("default rooms cannot be deleted")
	ErrInvalidRoomName = errors.New("room name is required")
)

// Seeded rooms (ids 1 and 2) are protected from deletion.
const maxDefaultRoomID = int64(2)

// Catalog caches the room reference table in memory. Rooms change rarely
// (admin create/delete only) while existence checks happen on every join, so
// the registry reads the cache and never touches the database.
type Catalog struct {
	store interfaces.RoomStore
	rooms map[int64]*types.Room
	mu    sync.RWMutex
}

func NewCatalog(store interfaces.RoomStore) *Catalog {
	return &Catalog{
		store: store,
		rooms: make(map[int64]*types.Room),
	}
}

// Load fills the cache from the store. Called once at startup, after the
// default rooms are seeded.
func (c *Catalog) Load(ctx context.Context) error {
	rooms, err := c.store.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rooms: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms = make(map[int64]*types.Room, len(rooms))
	for _, room := range rooms {
		c.rooms[room.ID] = room
	}
	log.Printf("rooms: loaded %d rooms", len(rooms))
	return nil
}

// RoomExists implements interfaces.RoomDirectory for the connection registry.
func (c *Catalog) RoomExists(roomID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.rooms[roomID]
	return ok
}

func (c *Catalog) Get(roomID int64) (*types.Room, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	room, ok := c.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// List returns the cached rooms ordered by id.
func (c *Catalog) List() []*types.Room {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*types.Room, 0, len(c.rooms))
	for _, room := range c.rooms {
		out = append(out, room)
	}
	// Small n; insertion sort keeps it dependency-free.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].ID > out[j].ID; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// Create persists a room and adds it to the cache.
func (c *Catalog) Create(ctx context.Context, name, description string, creatorID int64, isQuizRoom bool) (*types.Room, error) {
	if name == "" {
		return nil, ErrInvalidRoomName
	}
	room, err := c.store.CreateRoom(ctx, name, description, creatorID, isQuizRoom)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	c.mu.Lock()
	c.rooms[room.ID] = room
	c.mu.Unlock()

	log.Printf("rooms: created room id=%d name=%s", room.ID, room.Name)
	return room, nil
}

// Delete removes a room. The seeded default rooms are protected.
func (c *Catalog) Delete(ctx context.Context, roomID int64) error {
	if roomID <= maxDefaultRoomID {
		return ErrProtectedRoom
	}
	if err := c.store.DeleteRoom(ctx, roomID); err != nil {
		if errors.Is(err, interfaces.ErrRoomNotFound) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("failed to delete room: %w", err)
	}

	c.mu.Lock()
	delete(c.rooms, roomID)
	c.mu.Unlock()

	log.Printf("rooms: deleted room id=%d", roomID)
	return nil
}
