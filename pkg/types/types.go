package types

import (
	"time"
)

// Rank levels. Ordered: higher rank means more privileges.
// Rank 4 and above unlocks moderation, rank 2 and above unlocks media uploads.
const (
	RankVisitor = 0
	RankBronze  = 1
	RankSilver  = 2
	RankGold    = 3
	RankOwner   = 4
	RankDiamond = 5
	RankPrince  = 6
	RankAdmin   = 7

	RankUploadMin = RankSilver
	RankAdminMin  = RankOwner
)

// RankNames maps a rank level to its Arabic display name.
var RankNames = []string{
	"زائر", "برونزي", "فضي", "ذهبي", "مالك الموقع", "الماس", "برنس", "إداري",
}

// RankName returns the display name for a rank, or the visitor name for
// out-of-range values.
func RankName(rank int) string {
	if rank < 0 || rank >= len(RankNames) {
		return RankNames[RankVisitor]
	}
	return RankNames[rank]
}

// IsValidRank reports whether rank is one of the defined levels.
func IsValidRank(rank int) bool {
	return rank >= RankVisitor && rank <= RankAdmin
}

// User is a principal record. Guests are regular rows with IsGuest set and a
// generated GuestID instead of an email.
type User struct {
	ID            int64      `json:"id" db:"id"`
	Email         *string    `json:"email,omitempty" db:"email"`
	DisplayName   string     `json:"display_name" db:"display_name"`
	PasswordHash  string     `json:"-" db:"password_hash"`
	Rank          int        `json:"rank" db:"rank"`
	Points        int        `json:"points" db:"points"`
	ProfileImage  *string    `json:"profile_image,omitempty" db:"profile_image"`
	StatusMessage string     `json:"status_message" db:"status_message"`
	JoinDate      time.Time  `json:"join_date" db:"join_date"`
	LastActive    time.Time  `json:"last_active" db:"last_active"`
	IsBanned      bool       `json:"is_banned" db:"is_banned"`
	BanReason     *string    `json:"ban_reason,omitempty" db:"ban_reason"`
	IsMuted       bool       `json:"is_muted" db:"is_muted"`
	MuteUntil     *time.Time `json:"mute_until,omitempty" db:"mute_until"`
	IsGuest       bool       `json:"is_guest" db:"is_guest"`
	GuestID       *string    `json:"guest_id,omitempty" db:"guest_id"`
	ProfileMusic  *string    `json:"profile_music,omitempty" db:"profile_music"`
	MessageBg     *string    `json:"message_background,omitempty" db:"message_background"`
}

// MutedNow reports whether the user's persisted mute is still in effect at t.
func (u *User) MutedNow(t time.Time) bool {
	return u.IsMuted && u.MuteUntil != nil && u.MuteUntil.After(t)
}

// Room is static reference data. Membership is derived from live connections,
// never stored.
type Room struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatorID   *int64    `json:"creator_id,omitempty" db:"creator_id"`
	IsQuizRoom  bool      `json:"is_quiz_room" db:"is_quiz_room"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Message is a persisted room chat message, enriched with author fields when
// read back for history or broadcast.
type Message struct {
	ID              int64     `json:"id" db:"id"`
	UserID          int64     `json:"user_id" db:"user_id"`
	RoomID          int64     `json:"room_id" db:"room_id"`
	Message         string    `json:"message" db:"message"`
	ImageURL        *string   `json:"image_url,omitempty" db:"image_url"`
	QuotedMessageID *int64    `json:"quoted_message_id,omitempty" db:"quoted_message_id"`
	QuotedAuthor    *string   `json:"quoted_author,omitempty" db:"quoted_author"`
	QuotedContent   *string   `json:"quoted_content,omitempty" db:"quoted_content"`
	Timestamp       time.Time `json:"timestamp" db:"timestamp"`

	// Author fields resolved via join, not stored on the message row.
	DisplayName  string  `json:"display_name,omitempty"`
	ProfileImage *string `json:"profile_image,omitempty"`
	Rank         int     `json:"rank"`
}

// PrivateMessage is a persisted 1:1 message.
type PrivateMessage struct {
	ID         int64     `json:"id" db:"id"`
	SenderID   int64     `json:"sender_id" db:"sender_id"`
	ReceiverID int64     `json:"receiver_id" db:"receiver_id"`
	Message    string    `json:"message" db:"message"`
	Timestamp  time.Time `json:"timestamp" db:"timestamp"`
	IsRead     bool      `json:"is_read" db:"is_read"`

	SenderName  string  `json:"sender_name,omitempty"`
	SenderImage *string `json:"sender_image,omitempty"`
}

// Story is a feed post visible to every user.
type Story struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	Content      string    `json:"content" db:"content"`
	ImageURL     *string   `json:"image_url,omitempty" db:"image_url"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
	Likes        int       `json:"likes"`
	Dislikes     int       `json:"dislikes"`
	Loves        int       `json:"loves"`
	CommentCount int       `json:"comment_count"`

	DisplayName  string  `json:"display_name,omitempty"`
	ProfileImage *string `json:"profile_image,omitempty"`
	Rank         int     `json:"rank"`
}

// Valid story reaction types.
const (
	ReactionLike    = "like"
	ReactionDislike = "dislike"
	ReactionLove    = "love"
)

// IsValidReaction reports whether r is one of the supported reaction types.
func IsValidReaction(r string) bool {
	return r == ReactionLike || r == ReactionDislike || r == ReactionLove
}

// StoryReactions holds the per-type reaction counts of one story.
type StoryReactions struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
	Loves    int `json:"loves"`
}

// StoryComment is a comment on a story.
type StoryComment struct {
	ID        int64     `json:"id" db:"id"`
	StoryID   int64     `json:"story_id" db:"story_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Comment   string    `json:"comment" db:"comment"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`

	DisplayName  string  `json:"display_name,omitempty"`
	ProfileImage *string `json:"profile_image,omitempty"`
	Rank         int     `json:"rank"`
}

// Notification is a persisted per-user notice. Type is a free-form category
// the client renders differently ("info", "points", "rank", ...).
type Notification struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Message   string    `json:"message" db:"message"`
	Type      string    `json:"type" db:"type"`
	IsRead    bool      `json:"is_read" db:"is_read"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

// OnlineUser is one roster entry of an onlineUsersUpdated broadcast.
type OnlineUser struct {
	UserID      int64  `json:"userId"`
	DisplayName string `json:"displayName"`
	Rank        int    `json:"rank"`
	CurrentRoom int64  `json:"currentRoom"`
}
