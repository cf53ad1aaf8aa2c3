package ws

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alagerbyemene-code/Appchat/internal/auth"
	"github.com/alagerbyemene-code/Appchat/internal/config"
	"github.com/alagerbyemene-code/Appchat/pkg/interfaces"
	"github.com/alagerbyemene-code/Appchat/pkg/types"
)

var upgrader = websocket.Upgrader{
	// The browser client is served from arbitrary origins; origin checking is
	// a deployment concern.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// Dispatcher consumes inbound events read off connections. Implemented by the
// hub; the indirection keeps this package free of a hub dependency.
type Dispatcher interface {
	Dispatch(conn *Connection, env Envelope) error
	Disconnect(conn *Connection)
}

// Handler authenticates WebSocket handshakes and pumps inbound frames into
// the dispatcher.
type Handler struct {
	tokens     *auth.TokenManager
	users      interfaces.UserStore
	registry   *Registry
	dispatcher Dispatcher
	cfg        config.WebSocketConfig
}

func NewHandler(tokens *auth.TokenManager, users interfaces.UserStore, registry *Registry, dispatcher Dispatcher, cfg config.WebSocketConfig) *Handler {
	return &Handler{
		tokens:     tokens,
		users:      users,
		registry:   registry,
		dispatcher: dispatcher,
		cfg:        cfg,
	}
}

// HandleWebSocket validates the bearer token, checks ban status, upgrades the
// transport and admits the connection. Validation happens before the upgrade
// so refused handshakes get proper HTTP status codes.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.tokens.Verify(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	user, err := h.users.GetUser(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, interfaces.ErrUserNotFound) {
			http.Error(w, "unknown user", http.StatusUnauthorized)
		} else {
			http.Error(w, "database error", http.StatusInternalServerError)
		}
		return
	}

	if user.IsBanned {
		http.Error(w, types.NewBannedError(stringValue(user.BanReason)).Message, http.StatusForbidden)
		return
	}

	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}

	// Rank comes from the row, not the token: an admin rank change applies on
	// the next connect even with an old token.
	conn := NewConnection(raw, user.ID, user.DisplayName, user.Rank, h.cfg.SendBuffer, h.cfg.WriteTimeout)

	if err := h.registry.Admit(user, conn); err != nil {
		// Banned status can change between the row read and Admit.
		var ce *types.ChatError
		if errors.As(err, &ce) {
			_ = conn.SendEvent(EventBanned, BanNotice{Reason: ce.Message})
		}
		_ = conn.Close()
		return
	}

	log.Printf("ws: user %d connected (%s)", user.ID, conn.ID())
	go h.readPump(raw, conn)
}

// readPump reads frames until the transport dies, forwarding each envelope to
// the dispatcher. Ping/pong keeps half-dead connections from lingering.
func (h *Handler) readPump(raw *websocket.Conn, conn *Connection) {
	defer func() {
		h.dispatcher.Disconnect(conn)
		_ = conn.Close()
		log.Printf("ws: user %d disconnected (%s)", conn.UserID(), conn.ID())
	}()

	if err := raw.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout)); err != nil {
		return
	}
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})

	go h.pingLoop(raw, conn)

	for {
		messageType, data, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ws: read error for user %d: %v", conn.UserID(), err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			log.Printf("ws: malformed frame from user %d", conn.UserID())
			continue
		}
		if err := h.dispatcher.Dispatch(conn, env); err != nil {
			log.Printf("ws: dropped %s event from user %d: %v", env.Event, conn.UserID(), err)
		}
	}
}

func (h *Handler) pingLoop(raw *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(h.cfg.WriteTimeout)
			if err := raw.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-conn.Done():
			return
		}
	}
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
