package interfaces

import (
	"context"
	"time"

	"github.com/alagerbyemene-code/Appchat/pkg/types"
)

// UserStore covers principal records and moderation flags. All writes are
// single-row updates; the store guarantees row-level atomicity only.
type UserStore interface {
	CreateUser(ctx context.Context, email, displayName, passwordHash string) (*types.User, error)
	CreateGuest(ctx context.Context, displayName, guestID string) (*types.User, error)
	GetUser(ctx context.Context, id int64) (*types.User, error)
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*types.User, error)
	TouchLastActive(ctx context.Context, id int64) error
	SetMuted(ctx context.Context, id int64, muted bool, until *time.Time) error
	SetBanned(ctx context.Context, id int64, banned bool, reason *string) error
	SetRank(ctx context.Context, id int64, rank int) error
	AddPoints(ctx context.Context, id int64, delta int) error
	SetProfileMusic(ctx context.Context, id int64, url *string) error
	SetMessageBackground(ctx context.Context, id int64, url *string) error
}

// RoomStore covers the room reference table.
type RoomStore interface {
	ListRooms(ctx context.Context) ([]*types.Room, error)
	GetRoom(ctx context.Context, id int64) (*types.Room, error)
	CreateRoom(ctx context.Context, name, description string, creatorID int64, isQuizRoom bool) (*types.Room, error)
	DeleteRoom(ctx context.Context, id int64) error
}

// MessageStore covers room and private message persistence.
type MessageStore interface {
	InsertMessage(ctx context.Context, msg *types.Message) (int64, error)
	ListRoomMessages(ctx context.Context, roomID int64, limit, offset int) ([]*types.Message, error)
	InsertPrivateMessage(ctx context.Context, msg *types.PrivateMessage) (int64, error)
}

// StoryStore covers the stories feed.
type StoryStore interface {
	InsertStory(ctx context.Context, userID int64, content string, imageURL *string) (*types.Story, error)
	ListStories(ctx context.Context, limit, offset int) ([]*types.Story, error)
	SetStoryReaction(ctx context.Context, storyID, userID int64, reaction string) (*types.StoryReactions, error)
	InsertStoryComment(ctx context.Context, storyID, userID int64, comment string) (*types.StoryComment, error)
	ListStoryComments(ctx context.Context, storyID int64) ([]*types.StoryComment, error)
}

// NotificationStore covers persisted notifications.
type NotificationStore interface {
	InsertNotification(ctx context.Context, n *types.Notification) (int64, error)
	InsertNotificationForAll(ctx context.Context, title, message, ntype string) (int, error)
	ListNotifications(ctx context.Context, userID int64, limit, offset int) ([]*types.Notification, error)
}

// ChatStore is what the broadcast router needs: principal lookups for mute
// state and message persistence.
type ChatStore interface {
	GetUser(ctx context.Context, id int64) (*types.User, error)
	TouchLastActive(ctx context.Context, id int64) error
	SetMuted(ctx context.Context, id int64, muted bool, until *time.Time) error
	InsertMessage(ctx context.Context, msg *types.Message) (int64, error)
	InsertPrivateMessage(ctx context.Context, msg *types.PrivateMessage) (int64, error)
}

// Store is the full storage collaborator implemented by store.Manager.
type Store interface {
	UserStore
	RoomStore
	MessageStore
	StoryStore
	NotificationStore
}

// RoomDirectory answers room existence checks for the connection registry.
type RoomDirectory interface {
	RoomExists(roomID int64) bool
}
