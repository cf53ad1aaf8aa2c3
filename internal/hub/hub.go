package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/alagerbyemene-code/Appchat/internal/router"
	"github.com/alagerbyemene-code/Appchat/internal/ws"
	"github.com/alagerbyemene-code/Appchat/pkg/types"
)

var (
	ErrHubAlreadyRunning = errors.New("hub already running")
	ErrHubNotRunning     = errors.New("hub not running")
	ErrEventQueueFull    = errors.New("event queue full")
)

const (
	eventQueueSize      = 1000
	disconnectQueueSize = 100
)

type inboundEvent struct {
	conn *ws.Connection
	env  ws.Envelope
}

// Hub is the single consumer of inbound events. One goroutine drains both
// queues, so per-connection event order is preserved without further locking.
type Hub struct {
	router *router.Router

	events      chan inboundEvent
	disconnects chan *ws.Connection

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(r *router.Router) *Hub {
	return &Hub{
		router:      r,
		events:      make(chan inboundEvent, eventQueueSize),
		disconnects: make(chan *ws.Connection, disconnectQueueSize),
	}
}

// Start launches the event loop.
func (h *Hub) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return ErrHubAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done = make(chan struct{})
	h.running = true
	go h.run(ctx)
	return nil
}

// Stop shuts the event loop down and waits for it to exit. Queued events are
// dropped.
func (h *Hub) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return ErrHubNotRunning
	}
	h.running = false
	cancel, done := h.cancel, h.done
	h.mu.Unlock()

	cancel()
	<-done
	return nil
}

// Dispatch queues one inbound envelope. Drops the event when the queue is
// full; the client retries or the connection dies, either way the server
// stays responsive.
func (h *Hub) Dispatch(conn *ws.Connection, env ws.Envelope) error {
	select {
	case h.events <- inboundEvent{conn: conn, env: env}:
		return nil
	default:
		return ErrEventQueueFull
	}
}

// Disconnect queues transport-death cleanup for a connection.
func (h *Hub) Disconnect(conn *ws.Connection) {
	select {
	case h.disconnects <- conn:
	default:
		// Queue full; clean up inline rather than leak the registry entry.
		h.router.Disconnect(conn)
	}
}

func (h *Hub) run(ctx context.Context) {
	defer close(h.done)
	log.Println("hub: event loop started")

	for {
		select {
		case ev := <-h.events:
			h.handleEvent(ctx, ev.conn, ev.env)
		case conn := <-h.disconnects:
			h.router.Disconnect(conn)
		case <-ctx.Done():
			log.Println("hub: event loop stopped")
			return
		}
	}
}

func (h *Hub) handleEvent(ctx context.Context, conn *ws.Connection, env ws.Envelope) {
	var err error
	switch env.Event {
	case ws.EventJoin:
		var req ws.JoinRequest
		if err = json.Unmarshal(env.Data, &req); err == nil {
			err = h.router.JoinRoom(ctx, conn, req)
		}
	case ws.EventSendMessage:
		var req ws.SendMessageRequest
		if err = json.Unmarshal(env.Data, &req); err == nil {
			err = h.router.AcceptChatMessage(ctx, conn, req)
		}
	case ws.EventSendPrivateMessage:
		var req ws.SendPrivateMessageRequest
		if err = json.Unmarshal(env.Data, &req); err == nil {
			err = h.router.AcceptPrivateMessage(ctx, conn, req)
		}
	default:
		log.Printf("hub: unknown event %q from user %d", env.Event, conn.UserID())
		return
	}

	if err == nil {
		return
	}

	// Policy rejections go back to the sender; everything else is logged.
	var ce *types.ChatError
	if errors.As(err, &ce) {
		if sendErr := conn.SendEvent(ws.EventError, ce); sendErr != nil {
			log.Printf("hub: failed to deliver error to user %d: %v", conn.UserID(), sendErr)
		}
		return
	}
	log.Printf("hub: %s from user %d failed: %v", env.Event, conn.UserID(), err)
}
