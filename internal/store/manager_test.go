package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alagerbyemene-code/Appchat/pkg/interfaces"
	"github.com/alagerbyemene-code/Appchat/pkg/types"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(":memory:", 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func createTestUser(t *testing.T, m *Manager, email string) *types.User {
	t.Helper()
	u, err := m.CreateUser(context.Background(), email, "user-"+email, "hash")
	require.NoError(t, err)
	return u
}

func TestManager_SeedsDefaultRooms(t *testing.T) {
	m := newTestManager(t)

	rooms, err := m.ListRooms(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	require.EqualValues(t, 1, rooms[0].ID)
	require.Equal(t, "الغرفة العامة", rooms[0].Name)
	require.False(t, rooms[0].IsQuizRoom)
	require.EqualValues(t, 2, rooms[1].ID)
	require.Equal(t, "غرفة المسابقات", rooms[1].Name)
	require.True(t, rooms[1].IsQuizRoom)
}

func TestManager_SchemaIsIdempotent(t *testing.T) {
	m := newTestManager(t)

	// Re-applying the schema against a populated database must not error or
	// duplicate the seed rooms.
	require.NoError(t, applySchema(m.DB()))

	rooms, err := m.ListRooms(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 2)
}

func TestManager_CreateAndGetUser(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	created := createTestUser(t, m, "a@b.c")
	require.Equal(t, types.RankBronze, created.Rank)
	require.False(t, created.IsGuest)

	got, err := m.GetUser(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "a@b.c", *got.Email)
	require.Equal(t, "hash", got.PasswordHash)

	byEmail, err := m.GetUserByEmail(ctx, "a@b.c")
	require.NoError(t, err)
	require.Equal(t, created.ID, byEmail.ID)
}

func TestManager_CreateUserDuplicateEmail(t *testing.T) {
	m := newTestManager(t)

	createTestUser(t, m, "a@b.c")
	_, err := m.CreateUser(context.Background(), "a@b.c", "other", "hash")
	require.ErrorIs(t, err, interfaces.ErrEmailTaken)
}

func TestManager_CreateGuest(t *testing.T) {
	m := newTestManager(t)

	guest, err := m.CreateGuest(context.Background(), "ضيف", "guest-123")
	require.NoError(t, err)
	require.True(t, guest.IsGuest)
	require.Nil(t, guest.Email)
	require.Equal(t, "guest-123", *guest.GuestID)
	require.Equal(t, types.RankVisitor, guest.Rank)
}

func TestManager_UnknownUser(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.GetUser(ctx, 404)
	require.ErrorIs(t, err, interfaces.ErrUserNotFound)

	require.ErrorIs(t, m.SetRank(ctx, 404, 1), interfaces.ErrUserNotFound)
	require.ErrorIs(t, m.SetMuted(ctx, 404, true, nil), interfaces.ErrUserNotFound)
	require.ErrorIs(t, m.SetBanned(ctx, 404, true, nil), interfaces.ErrUserNotFound)
	require.ErrorIs(t, m.AddPoints(ctx, 404, 5), interfaces.ErrUserNotFound)
}

func TestManager_ModerationFlags(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	u := createTestUser(t, m, "a@b.c")

	until := time.Now().Add(5 * time.Minute).UTC()
	require.NoError(t, m.SetMuted(ctx, u.ID, true, &until))

	got, err := m.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.IsMuted)
	require.NotNil(t, got.MuteUntil)
	require.WithinDuration(t, until, *got.MuteUntil, time.Second)

	require.NoError(t, m.SetMuted(ctx, u.ID, false, nil))
	got, err = m.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, got.IsMuted)
	require.Nil(t, got.MuteUntil)

	reason := "سبام"
	require.NoError(t, m.SetBanned(ctx, u.ID, true, &reason))
	got, err = m.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.IsBanned)
	require.Equal(t, "سبام", *got.BanReason)
}

func TestManager_RankAndPoints(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	u := createTestUser(t, m, "a@b.c")

	require.NoError(t, m.SetRank(ctx, u.ID, types.RankGold))
	require.NoError(t, m.AddPoints(ctx, u.ID, 50))
	require.NoError(t, m.AddPoints(ctx, u.ID, -20))

	got, err := m.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, types.RankGold, got.Rank)
	require.Equal(t, 30, got.Points)
}

func TestManager_RoomLifecycle(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	u := createTestUser(t, m, "a@b.c")

	room, err := m.CreateRoom(ctx, "غرفة خاصة", "وصف", u.ID, false)
	require.NoError(t, err)
	require.EqualValues(t, 3, room.ID)
	require.Equal(t, u.ID, *room.CreatorID)

	require.NoError(t, m.DeleteRoom(ctx, room.ID))
	_, err = m.GetRoom(ctx, room.ID)
	require.ErrorIs(t, err, interfaces.ErrRoomNotFound)

	require.ErrorIs(t, m.DeleteRoom(ctx, room.ID), interfaces.ErrRoomNotFound)
}

func TestManager_MessagesRoundTrip(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	u := createTestUser(t, m, "a@b.c")
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := m.InsertMessage(ctx, &types.Message{
			UserID:    u.ID,
			RoomID:    1,
			Message:   fmt.Sprintf("msg-%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	messages, err := m.ListRoomMessages(ctx, 1, 10, 0)
	require.NoError(t, err)
	require.Len(t, messages, 3)

	// Chronological order with author fields resolved.
	require.Equal(t, "msg-0", messages[0].Message)
	require.Equal(t, "msg-2", messages[2].Message)
	require.Equal(t, u.DisplayName, messages[0].DisplayName)

	// Paging returns the newest page.
	page, err := m.ListRoomMessages(ctx, 1, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "msg-1", page[0].Message)
	require.Equal(t, "msg-2", page[1].Message)

	// Other rooms stay empty.
	other, err := m.ListRoomMessages(ctx, 2, 10, 0)
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestManager_QuotedMessageFields(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	u := createTestUser(t, m, "a@b.c")

	quotedID := int64(9)
	author := "sara"
	content := "الأصل"
	_, err := m.InsertMessage(ctx, &types.Message{
		UserID:          u.ID,
		RoomID:          1,
		Message:         "رد",
		QuotedMessageID: &quotedID,
		QuotedAuthor:    &author,
		QuotedContent:   &content,
		Timestamp:       time.Now().UTC(),
	})
	require.NoError(t, err)

	messages, err := m.ListRoomMessages(ctx, 1, 10, 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.EqualValues(t, 9, *messages[0].QuotedMessageID)
	require.Equal(t, "sara", *messages[0].QuotedAuthor)
	require.Equal(t, "الأصل", *messages[0].QuotedContent)
}

func TestManager_PrivateMessages(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	a := createTestUser(t, m, "a@b.c")
	b := createTestUser(t, m, "b@b.c")

	id, err := m.InsertPrivateMessage(ctx, &types.PrivateMessage{
		SenderID:   a.ID,
		ReceiverID: b.ID,
		Message:    "سر",
		Timestamp:  time.Now().UTC(),
	})
	require.NoError(t, err)
	require.Positive(t, id)
}

func TestManager_StoriesAndReactions(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	a := createTestUser(t, m, "a@b.c")
	b := createTestUser(t, m, "b@b.c")

	story, err := m.InsertStory(ctx, a.ID, "يوم جميل", nil)
	require.NoError(t, err)
	require.Equal(t, a.DisplayName, story.DisplayName)
	require.Zero(t, story.Likes)

	// A user's new reaction replaces the previous one.
	counts, err := m.SetStoryReaction(ctx, story.ID, b.ID, types.ReactionLike)
	require.NoError(t, err)
	require.Equal(t, 1, counts.Likes)

	counts, err = m.SetStoryReaction(ctx, story.ID, b.ID, types.ReactionLove)
	require.NoError(t, err)
	require.Zero(t, counts.Likes)
	require.Equal(t, 1, counts.Loves)

	comment, err := m.InsertStoryComment(ctx, story.ID, b.ID, "رائع")
	require.NoError(t, err)
	require.Equal(t, b.DisplayName, comment.DisplayName)

	comments, err := m.ListStoryComments(ctx, story.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)

	stories, err := m.ListStories(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, stories, 1)
	require.Equal(t, 1, stories[0].Loves)
	require.Equal(t, 1, stories[0].CommentCount)
}

func TestManager_Notifications(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	a := createTestUser(t, m, "a@b.c")
	b := createTestUser(t, m, "b@b.c")

	reason := "spam"
	require.NoError(t, m.SetBanned(ctx, b.ID, true, &reason))

	// Broadcast skips banned users.
	count, err := m.InsertNotificationForAll(ctx, "إعلان", "مرحبا بالجميع", "info")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	_, err = m.InsertNotification(ctx, &types.Notification{
		UserID:  a.ID,
		Title:   "نقاط",
		Message: "حصلت على نقاط",
		Type:    "points",
	})
	require.NoError(t, err)

	list, err := m.ListNotifications(ctx, a.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)

	empty, err := m.ListNotifications(ctx, b.ID, 10, 0)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestManager_CloseIsIdempotent(t *testing.T) {
	m, err := NewManager(":memory:", 5*time.Second)
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	err = m.TouchLastActive(context.Background(), 1)
	require.Error(t, err)
}
