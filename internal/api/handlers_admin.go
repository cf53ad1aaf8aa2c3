package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alagerbyemene-code/Appchat/internal/rooms"
	"github.com/alagerbyemene-code/Appchat/internal/ws"
	"github.com/alagerbyemene-code/Appchat/pkg/interfaces"
	"github.com/alagerbyemene-code/Appchat/pkg/types"
)

// The site owner row cannot be demoted, banned or muted through the API.
const protectedUserID = int64(1)

// handleAdmin dispatches /api/admin/{action}. The caller already passed the
// rank gate.
func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request, admin *types.User) {
	action := strings.TrimPrefix(r.URL.Path, "/api/admin/")

	if action == "users" && r.Method == http.MethodGet {
		s.adminListUsers(w, r)
		return
	}
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch action {
	case "ban":
		s.adminBan(w, r, admin)
	case "unban":
		s.adminUnban(w, r)
	case "mute":
		s.adminMute(w, r)
	case "unmute":
		s.adminUnmute(w, r)
	case "give-points":
		s.adminGivePoints(w, r, admin)
	case "send-notification":
		s.adminSendNotification(w, r)
	case "broadcast-notification":
		s.adminBroadcastNotification(w, r)
	case "create-room":
		s.adminCreateRoom(w, r, admin)
	case "delete-room":
		s.adminDeleteRoom(w, r)
	case "update-user-rank":
		s.adminUpdateRank(w, r)
	default:
		s.sendError(w, "Not found", http.StatusNotFound)
	}
}

func (s *Server) adminListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	users, err := s.store.ListUsers(r.Context(), limit, offset)
	if err != nil {
		s.sendError(w, "Failed to list users", http.StatusInternalServerError)
		return
	}
	s.sendJSON(w, http.StatusOK, users)
}

type BanRequest struct {
	UserID int64  `json:"userId" validate:"required,gt=0"`
	Reason string `json:"reason"`
}

func (s *Server) adminBan(w http.ResponseWriter, r *http.Request, admin *types.User) {
	var req BanRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	if req.UserID == protectedUserID {
		s.sendError(w, "لا يمكن حظر مالك الموقع", http.StatusForbidden)
		return
	}

	reason := req.Reason
	if err := s.store.SetBanned(r.Context(), req.UserID, true, &reason); err != nil {
		s.userWriteError(w, err)
		return
	}

	// A live session is told why, then cut off.
	if conn, ok := s.registry.Get(req.UserID); ok {
		_ = conn.SendEvent(ws.EventBanned, ws.BanNotice{Reason: types.NewBannedError(reason).Message})
		roomID := conn.RoomID()
		s.registry.Remove(req.UserID)
		_ = conn.Close()
		if roomID != 0 {
			s.router.BroadcastRoster(roomID)
		}
	}
	s.sendJSON(w, http.StatusOK, map[string]string{"message": "User banned"})
}

type UserIDRequest struct {
	UserID int64 `json:"userId" validate:"required,gt=0"`
}

func (s *Server) adminUnban(w http.ResponseWriter, r *http.Request) {
	var req UserIDRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	if err := s.store.SetBanned(r.Context(), req.UserID, false, nil); err != nil {
		s.userWriteError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]string{"message": "User unbanned"})
}

type MuteRequest struct {
	UserID  int64 `json:"userId" validate:"required,gt=0"`
	Minutes int   `json:"minutes" validate:"gte=0,lte=10080"`
}

func (s *Server) adminMute(w http.ResponseWriter, r *http.Request) {
	var req MuteRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	if req.UserID == protectedUserID {
		s.sendError(w, "لا يمكن كتم مالك الموقع", http.StatusForbidden)
		return
	}
	if req.Minutes == 0 {
		req.Minutes = 60
	}

	until := time.Now().UTC().Add(time.Duration(req.Minutes) * time.Minute)
	if err := s.store.SetMuted(r.Context(), req.UserID, true, &until); err != nil {
		s.userWriteError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]any{
		"message":   "User muted",
		"muteUntil": until,
	})
}

func (s *Server) adminUnmute(w http.ResponseWriter, r *http.Request) {
	var req UserIDRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	if err := s.store.SetMuted(r.Context(), req.UserID, false, nil); err != nil {
		s.userWriteError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]string{"message": "User unmuted"})
}

type GivePointsRequest struct {
	UserID int64 `json:"userId" validate:"required,gt=0"`
	Points int   `json:"points" validate:"required,ne=0"`
}

func (s *Server) adminGivePoints(w http.ResponseWriter, r *http.Request, admin *types.User) {
	var req GivePointsRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	if err := s.store.AddPoints(r.Context(), req.UserID, req.Points); err != nil {
		s.userWriteError(w, err)
		return
	}

	s.notifyUser(r, req.UserID, &types.Notification{
		UserID:  req.UserID,
		Title:   "نقاط جديدة",
		Message: fmt.Sprintf("منحك %s %d نقطة", admin.DisplayName, req.Points),
		Type:    "points",
	})
	s.sendJSON(w, http.StatusOK, map[string]string{"message": "Points granted"})
}

type SendNotificationRequest struct {
	UserID  int64  `json:"userId" validate:"required,gt=0"`
	Title   string `json:"title" validate:"required,max=100"`
	Message string `json:"message" validate:"required,max=500"`
}

func (s *Server) adminSendNotification(w http.ResponseWriter, r *http.Request) {
	var req SendNotificationRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	s.notifyUser(r, req.UserID, &types.Notification{
		UserID:  req.UserID,
		Title:   req.Title,
		Message: req.Message,
		Type:    "info",
	})
	s.sendJSON(w, http.StatusOK, map[string]string{"message": "Notification sent"})
}

type BroadcastNotificationRequest struct {
	Title   string `json:"title" validate:"required,max=100"`
	Message string `json:"message" validate:"required,max=500"`
}

func (s *Server) adminBroadcastNotification(w http.ResponseWriter, r *http.Request) {
	var req BroadcastNotificationRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	count, err := s.store.InsertNotificationForAll(r.Context(), req.Title, req.Message, "info")
	if err != nil {
		s.sendError(w, "Failed to store notification", http.StatusInternalServerError)
		return
	}
	s.router.BroadcastAll(ws.EventNewNotification, types.Notification{
		Title:     req.Title,
		Message:   req.Message,
		Type:      "info",
		Timestamp: time.Now().UTC(),
	})
	s.sendJSON(w, http.StatusOK, map[string]any{
		"message":    "Notification broadcast",
		"recipients": count,
	})
}

type CreateRoomRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=50"`
	Description string `json:"description" validate:"max=200"`
	IsQuizRoom  bool   `json:"isQuizRoom"`
}

func (s *Server) adminCreateRoom(w http.ResponseWriter, r *http.Request, admin *types.User) {
	var req CreateRoomRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	room, err := s.catalog.Create(r.Context(), req.Name, req.Description, admin.ID, req.IsQuizRoom)
	if err != nil {
		s.sendError(w, "Failed to create room", http.StatusInternalServerError)
		return
	}
	s.router.BroadcastAll(ws.EventRoomCreated, room)
	s.sendJSON(w, http.StatusCreated, room)
}

type DeleteRoomRequest struct {
	RoomID int64 `json:"roomId" validate:"required,gt=0"`
}

func (s *Server) adminDeleteRoom(w http.ResponseWriter, r *http.Request) {
	var req DeleteRoomRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	if err := s.catalog.Delete(r.Context(), req.RoomID); err != nil {
		switch {
		case errors.Is(err, rooms.ErrProtectedRoom):
			s.sendError(w, "لا يمكن حذف الغرف الأساسية", http.StatusForbidden)
		case errors.Is(err, rooms.ErrRoomNotFound):
			s.sendError(w, "الغرفة غير موجودة", http.StatusNotFound)
		default:
			s.sendError(w, "Failed to delete room", http.StatusInternalServerError)
		}
		return
	}
	s.router.BroadcastAll(ws.EventRoomDeleted, map[string]int64{"roomId": req.RoomID})
	s.sendJSON(w, http.StatusOK, map[string]string{"message": "Room deleted"})
}

type UpdateRankRequest struct {
	UserID int64 `json:"userId" validate:"required,gt=0"`
	Rank   int   `json:"rank" validate:"gte=0"`
}

func (s *Server) adminUpdateRank(w http.ResponseWriter, r *http.Request) {
	var req UpdateRankRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	if !types.IsValidRank(req.Rank) {
		s.sendError(w, "Invalid rank", http.StatusBadRequest)
		return
	}
	if req.UserID == protectedUserID {
		s.sendError(w, "لا يمكن تغيير رتبة مالك الموقع", http.StatusForbidden)
		return
	}

	if err := s.store.SetRank(r.Context(), req.UserID, req.Rank); err != nil {
		s.userWriteError(w, err)
		return
	}

	// A live connection picks up the new rank without reconnecting.
	if conn, ok := s.registry.Get(req.UserID); ok {
		conn.SetRank(req.Rank)
	}
	s.notifyUser(r, req.UserID, &types.Notification{
		UserID:  req.UserID,
		Title:   "تغيير الرتبة",
		Message: "أصبحت رتبتك الآن: " + types.RankName(req.Rank),
		Type:    "rank",
	})
	s.sendJSON(w, http.StatusOK, map[string]string{"message": "Rank updated"})
}

// notifyUser persists a notification and pushes it to the user's live
// connection when present.
func (s *Server) notifyUser(r *http.Request, userID int64, n *types.Notification) {
	n.Timestamp = time.Now().UTC()
	id, err := s.store.InsertNotification(r.Context(), n)
	if err != nil {
		return
	}
	n.ID = id
	s.router.SendDirect(userID, ws.EventNewNotification, n)
}

func (s *Server) userWriteError(w http.ResponseWriter, err error) {
	if errors.Is(err, interfaces.ErrUserNotFound) {
		s.sendError(w, "المستخدم غير موجود", http.StatusNotFound)
		return
	}
	s.sendError(w, "Database error", http.StatusInternalServerError)
}
