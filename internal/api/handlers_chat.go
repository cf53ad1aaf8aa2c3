package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/alagerbyemene-code/Appchat/internal/ws"
	"github.com/alagerbyemene-code/Appchat/pkg/types"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// GET /api/rooms
func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.sendJSON(w, http.StatusOK, s.catalog.List())
}

// GET /api/messages/{roomId}?limit=&offset=
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request, user *types.User) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	roomID, ok := pathID(w, s, r.URL.Path, "/api/messages/")
	if !ok {
		return
	}
	if !s.catalog.RoomExists(roomID) {
		s.sendError(w, "الغرفة غير موجودة", http.StatusNotFound)
		return
	}

	limit, offset := pagination(r)
	messages, err := s.store.ListRoomMessages(r.Context(), roomID, limit, offset)
	if err != nil {
		s.sendError(w, "Failed to load messages", http.StatusInternalServerError)
		return
	}
	s.sendJSON(w, http.StatusOK, messages)
}

type CreateStoryRequest struct {
	Content  string  `json:"content" validate:"required,max=1000"`
	ImageURL *string `json:"imageUrl,omitempty"`
}

// /api/stories: GET lists the feed, POST publishes a story and announces it
// to every live connection.
func (s *Server) handleStories(w http.ResponseWriter, r *http.Request, user *types.User) {
	switch r.Method {
	case http.MethodGet:
		limit, offset := pagination(r)
		stories, err := s.store.ListStories(r.Context(), limit, offset)
		if err != nil {
			s.sendError(w, "Failed to load stories", http.StatusInternalServerError)
			return
		}
		s.sendJSON(w, http.StatusOK, stories)
	case http.MethodPost:
		var req CreateStoryRequest
		if !s.decodeValid(w, r, &req) {
			return
		}
		story, err := s.store.InsertStory(r.Context(), user.ID, req.Content, req.ImageURL)
		if err != nil {
			s.sendError(w, "Failed to publish story", http.StatusInternalServerError)
			return
		}
		s.router.BroadcastAll(ws.EventNewStory, story)
		s.sendJSON(w, http.StatusCreated, story)
	default:
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type StoryReactionRequest struct {
	Reaction string `json:"reaction" validate:"required"`
}

type StoryCommentRequest struct {
	Comment string `json:"comment" validate:"required,max=500"`
}

type storyReactionBroadcast struct {
	StoryID   int64                 `json:"storyId"`
	Reactions *types.StoryReactions `json:"reactions"`
}

// /api/stories/{id}/react and /api/stories/{id}/comments.
func (s *Server) handleStorySubresource(w http.ResponseWriter, r *http.Request, user *types.User) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/stories/")
	parts := strings.SplitN(rest, "/", 2)
	storyID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || storyID <= 0 {
		s.sendError(w, "Invalid story id", http.StatusBadRequest)
		return
	}
	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}

	switch {
	case sub == "react" && r.Method == http.MethodPost:
		s.reactToStory(w, r, user, storyID)
	case sub == "comments" && r.Method == http.MethodGet:
		comments, err := s.store.ListStoryComments(r.Context(), storyID)
		if err != nil {
			s.sendError(w, "Failed to load comments", http.StatusInternalServerError)
			return
		}
		s.sendJSON(w, http.StatusOK, comments)
	case sub == "comments" && r.Method == http.MethodPost:
		s.commentOnStory(w, r, user, storyID)
	default:
		s.sendError(w, "Not found", http.StatusNotFound)
	}
}

func (s *Server) reactToStory(w http.ResponseWriter, r *http.Request, user *types.User, storyID int64) {
	var req StoryReactionRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	if !types.IsValidReaction(req.Reaction) {
		s.sendError(w, "Invalid reaction type", http.StatusBadRequest)
		return
	}

	reactions, err := s.store.SetStoryReaction(r.Context(), storyID, user.ID, req.Reaction)
	if err != nil {
		s.sendError(w, "Failed to save reaction", http.StatusInternalServerError)
		return
	}
	s.router.BroadcastAll(ws.EventStoryReactionUpdate, storyReactionBroadcast{
		StoryID:   storyID,
		Reactions: reactions,
	})
	s.sendJSON(w, http.StatusOK, reactions)
}

func (s *Server) commentOnStory(w http.ResponseWriter, r *http.Request, user *types.User, storyID int64) {
	var req StoryCommentRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	comment, err := s.store.InsertStoryComment(r.Context(), storyID, user.ID, req.Comment)
	if err != nil {
		s.sendError(w, "Failed to save comment", http.StatusInternalServerError)
		return
	}
	s.router.BroadcastAll(ws.EventNewStoryComment, comment)
	s.sendJSON(w, http.StatusCreated, comment)
}

// GET /api/notifications
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request, user *types.User) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit, offset := pagination(r)
	notifications, err := s.store.ListNotifications(r.Context(), user.ID, limit, offset)
	if err != nil {
		s.sendError(w, "Failed to load notifications", http.StatusInternalServerError)
		return
	}
	s.sendJSON(w, http.StatusOK, notifications)
}

// pathID extracts a positive numeric id following the given route prefix.
func pathID(w http.ResponseWriter, s *Server, path, prefix string) (int64, bool) {
	raw := strings.TrimPrefix(path, prefix)
	raw = strings.SplitN(raw, "/", 2)[0]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		s.sendError(w, "Invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func pagination(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= maxPageSize {
			limit = n
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
