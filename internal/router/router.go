package router

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/alagerbyemene-code/Appchat/internal/ws"
	"github.com/alagerbyemene-code/Appchat/pkg/interfaces"
	"github.com/alagerbyemene-code/Appchat/pkg/types"
)

// Router applies the send pipeline to inbound chat traffic: flood gate, mute
// gate, persistence, then fan-out. Messages reach the database before any
// subscriber sees them, so a delivered message is always a stored message.
type Router struct {
	registry *ws.Registry
	store    interfaces.ChatStore
	gate     *FloodGate
	now      func() time.Time
}

func NewRouter(registry *ws.Registry, store interfaces.ChatStore) *Router {
	return &Router{
		registry: registry,
		store:    store,
		gate:     NewFloodGate(),
		now:      time.Now,
	}
}

// JoinRoom moves a connection into a room and pushes fresh rosters to both the
// room it left and the room it entered.
func (r *Router) JoinRoom(ctx context.Context, conn *ws.Connection, req ws.JoinRequest) error {
	conn.SetDisplayName(req.DisplayName)

	previous, err := r.registry.Join(conn, req.RoomID)
	if err != nil {
		return err
	}

	if err := r.store.TouchLastActive(ctx, conn.UserID()); err != nil {
		log.Printf("router: failed to touch last_active for user %d: %v", conn.UserID(), err)
	}

	if previous != 0 && previous != req.RoomID {
		r.BroadcastRoster(previous)
	}
	r.BroadcastRoster(req.RoomID)
	return nil
}

// AcceptChatMessage runs one room message through the pipeline. The flood
// check runs before the mute check: a muted principal who keeps hammering the
// server extends into a fresh mute instead of burning down the old one.
func (r *Router) AcceptChatMessage(ctx context.Context, conn *ws.Connection, req ws.SendMessageRequest) error {
	if muteUntil, flooded := r.gate.Check(conn.UserID()); flooded {
		r.applyFloodMute(ctx, conn, req.RoomID, muteUntil)
		return types.NewFloodError()
	}

	user, err := r.store.GetUser(ctx, conn.UserID())
	if err != nil {
		return types.NewStorageError()
	}
	if blocked, err := r.checkMute(ctx, user); blocked {
		return err
	}

	msg := &types.Message{
		UserID:          conn.UserID(),
		RoomID:          req.RoomID,
		Message:         req.Message,
		ImageURL:        req.ImageURL,
		QuotedMessageID: req.QuotedMessageID,
		QuotedAuthor:    req.QuotedAuthor,
		QuotedContent:   req.QuotedContent,
		Timestamp:       r.now().UTC(),
		DisplayName:     user.DisplayName,
		ProfileImage:    user.ProfileImage,
		Rank:            user.Rank,
	}
	id, err := r.store.InsertMessage(ctx, msg)
	if err != nil {
		return types.NewStorageError()
	}
	msg.ID = id

	r.Broadcast(req.RoomID, ws.EventNewMessage, msg)
	return nil
}

// AcceptPrivateMessage persists a 1:1 message and delivers it to both ends.
// Private traffic counts against the same flood window as room traffic.
func (r *Router) AcceptPrivateMessage(ctx context.Context, conn *ws.Connection, req ws.SendPrivateMessageRequest) error {
	if muteUntil, flooded := r.gate.Check(conn.UserID()); flooded {
		r.applyFloodMute(ctx, conn, conn.RoomID(), muteUntil)
		return types.NewFloodError()
	}

	user, err := r.store.GetUser(ctx, conn.UserID())
	if err != nil {
		return types.NewStorageError()
	}
	if blocked, err := r.checkMute(ctx, user); blocked {
		return err
	}

	msg := &types.PrivateMessage{
		SenderID:    conn.UserID(),
		ReceiverID:  req.ReceiverID,
		Message:     req.Message,
		Timestamp:   r.now().UTC(),
		SenderName:  user.DisplayName,
		SenderImage: user.ProfileImage,
	}
	id, err := r.store.InsertPrivateMessage(ctx, msg)
	if err != nil {
		return types.NewStorageError()
	}
	msg.ID = id

	// The sender gets an echo so its own thread view updates. An offline
	// receiver just reads the message from history later.
	r.SendDirect(req.ReceiverID, ws.EventNewPrivateMessage, msg)
	if err := conn.SendEvent(ws.EventNewPrivateMessage, msg); err != nil {
		log.Printf("router: failed to echo private message to user %d: %v", conn.UserID(), err)
	}
	return nil
}

// Disconnect cleans up after a dropped transport. Only the registered
// instance triggers a roster update; a stale evicted connection changes
// nothing.
func (r *Router) Disconnect(conn *ws.Connection) {
	roomID, removed := r.registry.RemoveIfCurrent(conn)
	if removed && roomID != 0 {
		r.BroadcastRoster(roomID)
	}
}

// Broadcast sends one event to every connection currently in a room.
func (r *Router) Broadcast(roomID int64, event string, data any) {
	for _, member := range r.registry.ListByRoom(roomID) {
		if err := member.SendEvent(event, data); err != nil {
			log.Printf("router: dropped %s for user %d: %v", event, member.UserID(), err)
		}
	}
}

// BroadcastAll sends one event to every live connection regardless of room,
// including connections that have not joined a room yet.
func (r *Router) BroadcastAll(event string, data any) {
	for _, member := range r.registry.ListAll() {
		if err := member.SendEvent(event, data); err != nil {
			log.Printf("router: dropped %s for user %d: %v", event, member.UserID(), err)
		}
	}
}

// SendDirect sends one event to a single principal. Returns false when the
// principal has no live connection.
func (r *Router) SendDirect(userID int64, event string, data any) bool {
	conn, ok := r.registry.Get(userID)
	if !ok {
		return false
	}
	if err := conn.SendEvent(event, data); err != nil {
		log.Printf("router: dropped %s for user %d: %v", event, userID, err)
		return false
	}
	return true
}

// BroadcastRoster pushes the room's current member list to the room.
func (r *Router) BroadcastRoster(roomID int64) {
	members := r.registry.ListByRoom(roomID)
	roster := lo.Map(members, func(c *ws.Connection, _ int) types.OnlineUser {
		return types.OnlineUser{
			UserID:      c.UserID(),
			DisplayName: c.DisplayName(),
			Rank:        c.Rank(),
			CurrentRoom: roomID,
		}
	})
	for _, member := range members {
		if err := member.SendEvent(ws.EventOnlineUsersUpdated, roster); err != nil {
			log.Printf("router: dropped roster for user %d: %v", member.UserID(), err)
		}
	}
}

// applyFloodMute persists the mute, resets the flood window and announces the
// mute to the room so everyone sees why the sender went quiet.
func (r *Router) applyFloodMute(ctx context.Context, conn *ws.Connection, roomID int64, muteUntil time.Time) {
	if err := r.store.SetMuted(ctx, conn.UserID(), true, &muteUntil); err != nil {
		log.Printf("router: failed to persist flood mute for user %d: %v", conn.UserID(), err)
	}
	r.gate.Forget(conn.UserID())

	if roomID == 0 {
		return
	}
	notice := ws.SystemMessage{
		ID:              uuid.New().String(),
		Message:         fmt.Sprintf("تم كتم %s لمدة 5 دقائق بسبب الإرسال المتكرر", conn.DisplayName()),
		Timestamp:       r.now().UTC(),
		IsSystemMessage: true,
		Type:            "mute",
	}
	r.Broadcast(roomID, ws.EventNewMessage, notice)
}

// checkMute enforces a persisted mute and clears it once expired. Returns
// blocked=true with the error to surface when the mute is still active.
func (r *Router) checkMute(ctx context.Context, user *types.User) (blocked bool, err error) {
	if user.MutedNow(r.now()) {
		return true, types.NewMutedError()
	}
	if user.IsMuted {
		// The mute deadline passed; clear the flag on the way through.
		if err := r.store.SetMuted(ctx, user.ID, false, nil); err != nil {
			log.Printf("router: failed to clear expired mute for user %d: %v", user.ID, err)
		}
	}
	return false, nil
}
