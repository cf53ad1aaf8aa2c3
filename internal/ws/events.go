package ws

import (
	"encoding/json"
	"time"
)

// Wire protocol event names. Inbound names come from the browser client,
// outbound names are what it listens for; both sets are load-bearing.
const (
	// inbound
	EventJoin               = "join"
	EventSendMessage        = "sendMessage"
	EventSendPrivateMessage = "sendPrivateMessage"

	// outbound
	EventNewMessage          = "newMessage"
	EventNewPrivateMessage   = "newPrivateMessage"
	EventOnlineUsersUpdated  = "onlineUsersUpdated"
	EventError               = "error"
	EventBanned              = "banned"
	EventNewNotification     = "newNotification"
	EventRoomCreated         = "roomCreated"
	EventRoomDeleted         = "roomDeleted"
	EventNewStory            = "newStory"
	EventStoryReactionUpdate = "storyReactionUpdate"
	EventNewStoryComment     = "newStoryComment"
)

// Envelope is the frame every WebSocket message travels in.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinRequest is the payload of an inbound join event.
type JoinRequest struct {
	RoomID      int64  `json:"roomId"`
	DisplayName string `json:"displayName"`
}

// SendMessageRequest is the payload of an inbound sendMessage event.
type SendMessageRequest struct {
	RoomID          int64   `json:"roomId"`
	Message         string  `json:"message"`
	ImageURL        *string `json:"imageUrl,omitempty"`
	QuotedMessageID *int64  `json:"quoted_message_id,omitempty"`
	QuotedAuthor    *string `json:"quoted_author,omitempty"`
	QuotedContent   *string `json:"quoted_content,omitempty"`
}

// SendPrivateMessageRequest is the payload of an inbound sendPrivateMessage
// event.
type SendPrivateMessageRequest struct {
	ReceiverID int64  `json:"receiverId"`
	Message    string `json:"message"`
}

// SystemMessage is broadcast into a room for server-generated notices such as
// the flood-mute announcement.
type SystemMessage struct {
	ID              string    `json:"id"`
	Message         string    `json:"message"`
	Timestamp       time.Time `json:"timestamp"`
	IsSystemMessage bool      `json:"isSystemMessage"`
	Type            string    `json:"type"`
}

// BanNotice is the payload of the outbound banned event.
type BanNotice struct {
	Reason string `json:"reason"`
}
