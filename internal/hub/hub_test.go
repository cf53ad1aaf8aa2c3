package hub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alagerbyemene-code/Appchat/internal/router"
	"github.com/alagerbyemene-code/Appchat/internal/ws"
	"github.com/alagerbyemene-code/Appchat/pkg/types"
)

type stubStore struct {
	mu       sync.Mutex
	messages int
}

func (s *stubStore) GetUser(ctx context.Context, id int64) (*types.User, error) {
	return &types.User{ID: id, DisplayName: "user", Rank: types.RankBronze}, nil
}

func (s *stubStore) TouchLastActive(ctx context.Context, id int64) error { return nil }

func (s *stubStore) SetMuted(ctx context.Context, id int64, muted bool, until *time.Time) error {
	return nil
}

func (s *stubStore) InsertMessage(ctx context.Context, msg *types.Message) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages++
	return int64(s.messages), nil
}

func (s *stubStore) InsertPrivateMessage(ctx context.Context, msg *types.PrivateMessage) (int64, error) {
	return 1, nil
}

type stubDirectory struct{}

func (stubDirectory) RoomExists(roomID int64) bool { return roomID == 1 }

type recordingWire struct {
	mu     sync.Mutex
	frames [][]byte
}

func (w *recordingWire) WriteMessage(messageType int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	w.frames = append(w.frames, buf)
	return nil
}

func (w *recordingWire) SetWriteDeadline(t time.Time) error { return nil }
func (w *recordingWire) Close() error                       { return nil }

func (w *recordingWire) hasEvent(t *testing.T, event string) bool {
	t.Helper()
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, frame := range w.frames {
		var env ws.Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		if env.Event == event {
			return true
		}
	}
	return false
}

func newRunningHub(t *testing.T) (*Hub, *ws.Registry) {
	t.Helper()
	registry := ws.NewRegistry(stubDirectory{})
	rt := router.NewRouter(registry, &stubStore{})
	h := New(rt)
	require.NoError(t, h.Start())
	t.Cleanup(func() { _ = h.Stop() })
	return h, registry
}

func admit(t *testing.T, registry *ws.Registry, userID int64) (*ws.Connection, *recordingWire) {
	t.Helper()
	wire := &recordingWire{}
	conn := ws.NewConnection(wire, userID, "user", types.RankBronze, 64, time.Second)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, registry.Admit(&types.User{ID: userID, DisplayName: "user"}, conn))
	return conn, wire
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestHub_StartStopLifecycle(t *testing.T) {
	registry := ws.NewRegistry(stubDirectory{})
	h := New(router.NewRouter(registry, &stubStore{}))

	require.ErrorIs(t, h.Stop(), ErrHubNotRunning)
	require.NoError(t, h.Start())
	require.ErrorIs(t, h.Start(), ErrHubAlreadyRunning)
	require.NoError(t, h.Stop())
	require.ErrorIs(t, h.Stop(), ErrHubNotRunning)

	// Restart works.
	require.NoError(t, h.Start())
	require.NoError(t, h.Stop())
}

func TestHub_DispatchJoinProducesRoster(t *testing.T) {
	h, registry := newRunningHub(t)
	conn, wire := admit(t, registry, 1)

	env := ws.Envelope{
		Event: ws.EventJoin,
		Data:  mustMarshal(t, ws.JoinRequest{RoomID: 1, DisplayName: "user"}),
	}
	require.NoError(t, h.Dispatch(conn, env))

	require.Eventually(t, func() bool {
		return wire.hasEvent(t, ws.EventOnlineUsersUpdated)
	}, time.Second, 5*time.Millisecond)
}

func TestHub_PolicyErrorGoesBackToSender(t *testing.T) {
	h, registry := newRunningHub(t)
	conn, wire := admit(t, registry, 1)

	env := ws.Envelope{
		Event: ws.EventJoin,
		Data:  mustMarshal(t, ws.JoinRequest{RoomID: 99, DisplayName: "user"}),
	}
	require.NoError(t, h.Dispatch(conn, env))

	require.Eventually(t, func() bool {
		return wire.hasEvent(t, ws.EventError)
	}, time.Second, 5*time.Millisecond)
}

func TestHub_SendMessagePipeline(t *testing.T) {
	h, registry := newRunningHub(t)
	conn, wire := admit(t, registry, 1)

	join := ws.Envelope{Event: ws.EventJoin, Data: mustMarshal(t, ws.JoinRequest{RoomID: 1, DisplayName: "user"})}
	require.NoError(t, h.Dispatch(conn, join))

	send := ws.Envelope{Event: ws.EventSendMessage, Data: mustMarshal(t, ws.SendMessageRequest{RoomID: 1, Message: "مرحبا"})}
	require.NoError(t, h.Dispatch(conn, send))

	require.Eventually(t, func() bool {
		return wire.hasEvent(t, ws.EventNewMessage)
	}, time.Second, 5*time.Millisecond)
}

func TestHub_UnknownEventIsIgnored(t *testing.T) {
	h, registry := newRunningHub(t)
	conn, _ := admit(t, registry, 1)

	require.NoError(t, h.Dispatch(conn, ws.Envelope{Event: "bogus"}))

	// The connection stays usable afterwards.
	join := ws.Envelope{Event: ws.EventJoin, Data: mustMarshal(t, ws.JoinRequest{RoomID: 1, DisplayName: "user"})}
	require.NoError(t, h.Dispatch(conn, join))
}

func TestHub_DispatchRejectsWhenQueueFull(t *testing.T) {
	// The hub is never started, so nothing drains the queue.
	registry := ws.NewRegistry(stubDirectory{})
	h := New(router.NewRouter(registry, &stubStore{}))
	conn, _ := admit(t, registry, 1)

	env := ws.Envelope{Event: "noop"}
	var err error
	for i := 0; i <= eventQueueSize; i++ {
		err = h.Dispatch(conn, env)
	}
	require.ErrorIs(t, err, ErrEventQueueFull)
}

func TestHub_DisconnectRemovesFromRegistry(t *testing.T) {
	h, registry := newRunningHub(t)
	conn, _ := admit(t, registry, 1)

	join := ws.Envelope{Event: ws.EventJoin, Data: mustMarshal(t, ws.JoinRequest{RoomID: 1, DisplayName: "user"})}
	require.NoError(t, h.Dispatch(conn, join))
	require.Eventually(t, func() bool {
		return len(registry.ListByRoom(1)) == 1
	}, time.Second, 5*time.Millisecond)

	h.Disconnect(conn)
	require.Eventually(t, func() bool {
		_, ok := registry.Get(1)
		return !ok
	}, time.Second, 5*time.Millisecond)
}
