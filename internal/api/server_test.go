package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alagerbyemene-code/Appchat/internal/auth"
	"github.com/alagerbyemene-code/Appchat/internal/config"
	"github.com/alagerbyemene-code/Appchat/internal/rooms"
	"github.com/alagerbyemene-code/Appchat/internal/router"
	"github.com/alagerbyemene-code/Appchat/internal/store"
	"github.com/alagerbyemene-code/Appchat/internal/ws"
	"github.com/alagerbyemene-code/Appchat/pkg/types"
)

type testServer struct {
	server *Server
	store  *store.Manager
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.Default()
	cfg.Uploads.Dir = t.TempDir()

	manager, err := store.NewManager(":memory:", 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	catalog := rooms.NewCatalog(manager)
	require.NoError(t, catalog.Load(context.Background()))

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	registry := ws.NewRegistry(catalog)
	rt := router.NewRouter(registry, manager)

	return &testServer{
		server: NewServer(manager, tokens, catalog, registry, rt, cfg.Uploads),
		store:  manager,
		tokens: tokens,
	}
}

func (ts *testServer) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.server.ServeHTTP(w, req)
	return w
}

// registerUser creates an account through the API and returns its token and
// user record.
func (ts *testServer) registerUser(t *testing.T, email string) (string, *types.User) {
	t.Helper()
	w := ts.request(t, http.MethodPost, "/api/register", "", RegisterRequest{
		Email:       email,
		DisplayName: "user",
		Password:    "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token, resp.User
}

// adminUser registers a user and raises it to moderator rank directly in the
// store.
func (ts *testServer) adminUser(t *testing.T, email string) string {
	t.Helper()
	token, user := ts.registerUser(t, email)
	require.NoError(t, ts.store.SetRank(context.Background(), user.ID, types.RankAdmin))
	return token
}

func TestServer_RegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	token, user := ts.registerUser(t, "a@b.c")
	require.NotEmpty(t, token)
	require.Equal(t, types.RankBronze, user.Rank)

	// Duplicate email is refused.
	w := ts.request(t, http.MethodPost, "/api/register", "", RegisterRequest{
		Email: "a@b.c", DisplayName: "other", Password: "password123",
	})
	require.Equal(t, http.StatusConflict, w.Code)

	// Wrong password.
	w = ts.request(t, http.MethodPost, "/api/login", "", LoginRequest{Email: "a@b.c", Password: "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Correct credentials.
	w = ts.request(t, http.MethodPost, "/api/login", "", LoginRequest{Email: "a@b.c", Password: "password123"})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestServer_LoginRejectsBanned(t *testing.T) {
	ts := newTestServer(t)
	_, user := ts.registerUser(t, "a@b.c")

	reason := "spam"
	require.NoError(t, ts.store.SetBanned(context.Background(), user.ID, true, &reason))

	w := ts.request(t, http.MethodPost, "/api/login", "", LoginRequest{Email: "a@b.c", Password: "password123"})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestServer_GuestLogin(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(t, http.MethodPost, "/api/guest-login", "", GuestLoginRequest{DisplayName: "زائر"})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.User.IsGuest)
	require.Equal(t, types.RankVisitor, resp.User.Rank)
	require.NotEmpty(t, resp.Token)
}

func TestServer_ProfileRequiresToken(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.registerUser(t, "a@b.c")

	w := ts.request(t, http.MethodGet, "/api/user/profile", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.request(t, http.MethodGet, "/api/user/profile", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.request(t, http.MethodGet, "/api/user/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var user types.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	require.Equal(t, "a@b.c", *user.Email)
}

func TestServer_ListRooms(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(t, http.MethodGet, "/api/rooms", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []*types.Room
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
}

func TestServer_Messages(t *testing.T) {
	ts := newTestServer(t)
	token, user := ts.registerUser(t, "a@b.c")

	for i := 0; i < 3; i++ {
		_, err := ts.store.InsertMessage(context.Background(), &types.Message{
			UserID:    user.ID,
			RoomID:    1,
			Message:   fmt.Sprintf("msg-%d", i),
			Timestamp: time.Now().UTC().Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	w := ts.request(t, http.MethodGet, "/api/messages/1?limit=2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var messages []*types.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &messages))
	require.Len(t, messages, 2)

	// Unknown room and junk ids.
	w = ts.request(t, http.MethodGet, "/api/messages/99", token, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	w = ts.request(t, http.MethodGet, "/api/messages/abc", token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_StoriesFlow(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.registerUser(t, "a@b.c")

	w := ts.request(t, http.MethodPost, "/api/stories", token, CreateStoryRequest{Content: "يوم جميل"})
	require.Equal(t, http.StatusCreated, w.Code)

	var story types.Story
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &story))

	w = ts.request(t, http.MethodPost, fmt.Sprintf("/api/stories/%d/react", story.ID), token,
		StoryReactionRequest{Reaction: types.ReactionLove})
	require.Equal(t, http.StatusOK, w.Code)

	var counts types.StoryReactions
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &counts))
	require.Equal(t, 1, counts.Loves)

	w = ts.request(t, http.MethodPost, fmt.Sprintf("/api/stories/%d/react", story.ID), token,
		StoryReactionRequest{Reaction: "angry"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.request(t, http.MethodPost, fmt.Sprintf("/api/stories/%d/comments", story.ID), token,
		StoryCommentRequest{Comment: "رائع"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.request(t, http.MethodGet, fmt.Sprintf("/api/stories/%d/comments", story.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var comments []*types.StoryComment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &comments))
	require.Len(t, comments, 1)

	w = ts.request(t, http.MethodGet, "/api/stories", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stories []*types.Story
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stories))
	require.Len(t, stories, 1)
	require.Equal(t, 1, stories[0].CommentCount)
}

func TestServer_AdminRequiresRank(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.registerUser(t, "a@b.c")

	w := ts.request(t, http.MethodGet, "/api/admin/users", token, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestServer_AdminBanAndUnban(t *testing.T) {
	ts := newTestServer(t)
	adminToken := ts.adminUser(t, "admin@b.c")
	targetToken, target := ts.registerUser(t, "target@b.c")

	w := ts.request(t, http.MethodPost, "/api/admin/ban", adminToken, BanRequest{UserID: target.ID, Reason: "سبام"})
	require.Equal(t, http.StatusOK, w.Code)

	// Banned users lose API access.
	w = ts.request(t, http.MethodGet, "/api/user/profile", targetToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = ts.request(t, http.MethodPost, "/api/admin/unban", adminToken, UserIDRequest{UserID: target.ID})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.request(t, http.MethodGet, "/api/user/profile", targetToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestServer_AdminMuteDefaultsToAnHour(t *testing.T) {
	ts := newTestServer(t)
	adminToken := ts.adminUser(t, "admin@b.c")
	_, target := ts.registerUser(t, "target@b.c")

	w := ts.request(t, http.MethodPost, "/api/admin/mute", adminToken, MuteRequest{UserID: target.ID})
	require.Equal(t, http.StatusOK, w.Code)

	got, err := ts.store.GetUser(context.Background(), target.ID)
	require.NoError(t, err)
	require.True(t, got.IsMuted)
	require.WithinDuration(t, time.Now().Add(time.Hour), *got.MuteUntil, time.Minute)

	w = ts.request(t, http.MethodPost, "/api/admin/unmute", adminToken, UserIDRequest{UserID: target.ID})
	require.Equal(t, http.StatusOK, w.Code)

	got, err = ts.store.GetUser(context.Background(), target.ID)
	require.NoError(t, err)
	require.False(t, got.IsMuted)
}

func TestServer_AdminRoomLifecycle(t *testing.T) {
	ts := newTestServer(t)
	adminToken := ts.adminUser(t, "admin@b.c")

	w := ts.request(t, http.MethodPost, "/api/admin/create-room", adminToken,
		CreateRoomRequest{Name: "غرفة جديدة", Description: "وصف"})
	require.Equal(t, http.StatusCreated, w.Code)

	var room types.Room
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &room))

	// The default rooms are protected.
	w = ts.request(t, http.MethodPost, "/api/admin/delete-room", adminToken, DeleteRoomRequest{RoomID: 1})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = ts.request(t, http.MethodPost, "/api/admin/delete-room", adminToken, DeleteRoomRequest{RoomID: room.ID})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.request(t, http.MethodPost, "/api/admin/delete-room", adminToken, DeleteRoomRequest{RoomID: room.ID})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_AdminUpdateRank(t *testing.T) {
	ts := newTestServer(t)
	adminToken := ts.adminUser(t, "admin@b.c")
	_, target := ts.registerUser(t, "target@b.c")

	w := ts.request(t, http.MethodPost, "/api/admin/update-user-rank", adminToken,
		UpdateRankRequest{UserID: target.ID, Rank: types.RankGold})
	require.Equal(t, http.StatusOK, w.Code)

	got, err := ts.store.GetUser(context.Background(), target.ID)
	require.NoError(t, err)
	require.Equal(t, types.RankGold, got.Rank)

	// The rank change left a notification.
	list, err := ts.store.ListNotifications(context.Background(), target.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "rank", list[0].Type)

	// Out-of-range ranks are rejected.
	w = ts.request(t, http.MethodPost, "/api/admin/update-user-rank", adminToken,
		UpdateRankRequest{UserID: target.ID, Rank: 99})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_AdminGivePoints(t *testing.T) {
	ts := newTestServer(t)
	adminToken := ts.adminUser(t, "admin@b.c")
	targetToken, target := ts.registerUser(t, "target@b.c")

	w := ts.request(t, http.MethodPost, "/api/admin/give-points", adminToken,
		GivePointsRequest{UserID: target.ID, Points: 25})
	require.Equal(t, http.StatusOK, w.Code)

	got, err := ts.store.GetUser(context.Background(), target.ID)
	require.NoError(t, err)
	require.Equal(t, 25, got.Points)

	w = ts.request(t, http.MethodGet, "/api/notifications", targetToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []*types.Notification
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	require.Equal(t, "points", list[0].Type)
}

func TestServer_AdminBroadcastNotification(t *testing.T) {
	ts := newTestServer(t)
	adminToken := ts.adminUser(t, "admin@b.c")
	ts.registerUser(t, "other@b.c")

	w := ts.request(t, http.MethodPost, "/api/admin/broadcast-notification", adminToken,
		BroadcastNotificationRequest{Title: "إعلان", Message: "تحديث جديد"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.EqualValues(t, 2, resp["recipients"])
}

func TestServer_ProtectedOwnerRow(t *testing.T) {
	ts := newTestServer(t)
	// The first registered user takes id 1.
	_, owner := ts.registerUser(t, "owner@b.c")
	require.EqualValues(t, 1, owner.ID)
	adminToken := ts.adminUser(t, "admin@b.c")

	w := ts.request(t, http.MethodPost, "/api/admin/ban", adminToken, BanRequest{UserID: 1, Reason: "x"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = ts.request(t, http.MethodPost, "/api/admin/update-user-rank", adminToken,
		UpdateRankRequest{UserID: 1, Rank: types.RankVisitor})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func (ts *testServer) uploadFile(t *testing.T, path, token, filename string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("file-content"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	ts.server.ServeHTTP(w, req)
	return w
}

func TestServer_MediaUploadRequiresRank(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.registerUser(t, "a@b.c") // bronze, below the upload rank

	w := ts.uploadFile(t, "/api/media/upload", token, "voice.mp3")
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestServer_MediaUpload(t *testing.T) {
	ts := newTestServer(t)
	token, user := ts.registerUser(t, "a@b.c")
	require.NoError(t, ts.store.SetRank(context.Background(), user.ID, types.RankSilver))

	w := ts.uploadFile(t, "/api/media/upload", token, "photo.png")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, strings.HasPrefix(resp.URL, "/uploads/"))

	// Unsupported extension.
	w = ts.uploadFile(t, "/api/media/upload", token, "script.exe")
	require.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestServer_ProfileMusicLifecycle(t *testing.T) {
	ts := newTestServer(t)
	token, user := ts.registerUser(t, "a@b.c")
	require.NoError(t, ts.store.SetRank(context.Background(), user.ID, types.RankSilver))

	// Images are not valid profile music.
	w := ts.uploadFile(t, "/api/user/profile-music", token, "photo.png")
	require.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = ts.uploadFile(t, "/api/user/profile-music", token, "song.mp3")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got, err := ts.store.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ProfileMusic)

	req := httptest.NewRequest(http.MethodDelete, "/api/user/profile-music", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ts.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err = ts.store.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Nil(t, got.ProfileMusic)
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "healthy", resp.Status)
}
