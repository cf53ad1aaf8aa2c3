package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// wire is the transport surface a Connection writes to. *websocket.Conn
// satisfies it; tests substitute a capture.
type wire interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Connection binds one principal to one live transport session. Writes are
// serialized through a single writer goroutine; gorilla connections do not
// allow concurrent writers.
type Connection struct {
	id           string
	userID       int64
	conn         wire
	writeCh      chan []byte
	writeTimeout time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	closeOnce    sync.Once

	mu          sync.RWMutex
	displayName string
	rank        int
	roomID      int64 // 0 until the first join
}

// NewConnection wraps an upgraded transport. The rank is a snapshot taken at
// handshake time so authorization checks avoid a database round trip.
func NewConnection(conn wire, userID int64, displayName string, rank int, sendBuffer int, writeTimeout time.Duration) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		id:           uuid.New().String(),
		userID:       userID,
		conn:         conn,
		writeCh:      make(chan []byte, sendBuffer),
		writeTimeout: writeTimeout,
		ctx:          ctx,
		cancel:       cancel,
		displayName:  displayName,
		rank:         rank,
	}
	go c.writeLoop()
	return c
}

func (c *Connection) writeLoop() {
	for {
		select {
		case data := <-c.writeCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// SendEvent queues one envelope for delivery. Best effort: a closed
// connection or a full buffer drops the event.
func (c *Connection) SendEvent(event string, data any) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	frame, err := json.Marshal(struct {
		Event string `json:"event"`
		Data  any    `json:"data,omitempty"`
	}{Event: event, Data: data})
	if err != nil {
		return ErrInvalidPayload
	}

	select {
	case c.writeCh <- frame:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
		return ErrSendBufferFull
	}
}

// Close shuts down the writer goroutine and the transport. Safe to call more
// than once.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.conn.Close()
	})
	return err
}

// Done is closed when the connection is shut down.
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

func (c *Connection) ID() string {
	return c.id
}

func (c *Connection) UserID() int64 {
	return c.userID
}

func (c *Connection) DisplayName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.displayName
}

// SetDisplayName updates the roster name; the join event carries the current
// display name so renames show up on the next join.
func (c *Connection) SetDisplayName(name string) {
	if name == "" {
		return
	}
	c.mu.Lock()
	c.displayName = name
	c.mu.Unlock()
}

func (c *Connection) Rank() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rank
}

// SetRank refreshes the cached rank snapshot after an admin rank change.
func (c *Connection) SetRank(rank int) {
	c.mu.Lock()
	c.rank = rank
	c.mu.Unlock()
}

// RoomID returns the current room, 0 when unjoined.
func (c *Connection) RoomID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

func (c *Connection) setRoom(roomID int64) {
	c.mu.Lock()
	c.roomID = roomID
	c.mu.Unlock()
}
