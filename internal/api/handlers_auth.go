package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/alagerbyemene-code/Appchat/internal/auth"
	"github.com/alagerbyemene-code/Appchat/pkg/interfaces"
	"github.com/alagerbyemene-code/Appchat/pkg/types"
)

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"displayName" validate:"required,min=2,max=30"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type GuestLoginRequest struct {
	DisplayName string `json:"displayName" validate:"required,min=2,max=30"`
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  *types.User `json:"user"`
}

// POST /api/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RegisterRequest
	if !s.decodeValid(w, r, &req) {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.sendError(w, "Failed to create account", http.StatusInternalServerError)
		return
	}

	user, err := s.store.CreateUser(r.Context(), req.Email, req.DisplayName, hash)
	if err != nil {
		if errors.Is(err, interfaces.ErrEmailTaken) {
			s.sendError(w, "البريد الإلكتروني مستخدم بالفعل", http.StatusConflict)
			return
		}
		s.sendError(w, "Failed to create account", http.StatusInternalServerError)
		return
	}

	token, err := s.tokens.Generate(user.ID, req.Email, user.Rank)
	if err != nil {
		s.sendError(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}
	s.sendJSON(w, http.StatusCreated, AuthResponse{Token: token, User: user})
}

// POST /api/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req LoginRequest
	if !s.decodeValid(w, r, &req) {
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		// Same message for unknown email and bad password.
		s.sendError(w, "بيانات الدخول غير صحيحة", http.StatusUnauthorized)
		return
	}
	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		s.sendError(w, "بيانات الدخول غير صحيحة", http.StatusUnauthorized)
		return
	}
	if user.IsBanned {
		s.sendError(w, types.NewBannedError(derefString(user.BanReason)).Message, http.StatusForbidden)
		return
	}

	if err := s.store.TouchLastActive(r.Context(), user.ID); err != nil {
		log.Printf("api: failed to touch last_active for user %d: %v", user.ID, err)
	}

	token, err := s.tokens.Generate(user.ID, req.Email, user.Rank)
	if err != nil {
		s.sendError(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}
	s.sendJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
}

// POST /api/guest-login
func (s *Server) handleGuestLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req GuestLoginRequest
	if !s.decodeValid(w, r, &req) {
		return
	}

	user, err := s.store.CreateGuest(r.Context(), req.DisplayName, uuid.New().String())
	if err != nil {
		s.sendError(w, "Failed to create guest account", http.StatusInternalServerError)
		return
	}

	token, err := s.tokens.Generate(user.ID, "", user.Rank)
	if err != nil {
		s.sendError(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}
	s.sendJSON(w, http.StatusCreated, AuthResponse{Token: token, User: user})
}

// GET /api/user/profile
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, user *types.User) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.sendJSON(w, http.StatusOK, user)
}
