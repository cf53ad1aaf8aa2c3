package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/alagerbyemene-code/Appchat/internal/auth"
	"github.com/alagerbyemene-code/Appchat/internal/config"
	"github.com/alagerbyemene-code/Appchat/internal/rooms"
	"github.com/alagerbyemene-code/Appchat/internal/router"
	"github.com/alagerbyemene-code/Appchat/internal/ws"
	"github.com/alagerbyemene-code/Appchat/pkg/interfaces"
	"github.com/alagerbyemene-code/Appchat/pkg/types"
)

// Server is the REST surface: authentication, history, stories, notifications
// and moderation. No chat logic lives here; handlers call the store, the room
// catalog and the broadcast router.
type Server struct {
	store    interfaces.Store
	tokens   *auth.TokenManager
	catalog  *rooms.Catalog
	registry *ws.Registry
	router   *router.Router
	uploads  config.UploadsConfig
	validate *validator.Validate
	mux      *http.ServeMux
}

func NewServer(store interfaces.Store, tokens *auth.TokenManager, catalog *rooms.Catalog, registry *ws.Registry, rt *router.Router, uploads config.UploadsConfig) *Server {
	s := &Server{
		store:    store,
		tokens:   tokens,
		catalog:  catalog,
		registry: registry,
		router:   rt,
		uploads:  uploads,
		validate: validator.New(),
		mux:      http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.handle("/api/register", s.handleRegister)
	s.handle("/api/login", s.handleLogin)
	s.handle("/api/guest-login", s.handleGuestLogin)
	s.handle("/api/user/profile", s.requireAuth(s.handleProfile))
	s.handle("/api/rooms", s.handleRooms)
	s.handle("/api/messages/", s.requireAuth(s.handleMessages))
	s.handle("/api/stories", s.requireAuth(s.handleStories))
	s.handle("/api/stories/", s.requireAuth(s.handleStorySubresource))
	s.handle("/api/notifications", s.requireAuth(s.handleNotifications))
	s.handle("/api/admin/", s.requireAuth(s.requireRank(types.RankAdminMin, s.handleAdmin)))
	s.handle("/api/media/upload", s.requireAuth(s.requireRank(types.RankUploadMin, s.handleMediaUpload)))
	s.handle("/api/user/profile-music", s.requireAuth(s.requireRank(types.RankUploadMin, s.handleProfileMusic)))
	s.handle("/api/user/message-background", s.requireAuth(s.requireRank(types.RankUploadMin, s.handleMessageBackground)))
	s.handle("/health", s.healthCheck)

	// Uploaded media is served as plain files, outside the JSON middleware.
	s.mux.Handle("/uploads/", s.corsMiddleware(
		http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.uploads.Dir)))))
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.corsMiddleware(s.jsonMiddleware(h)))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type HealthResponse struct {
	Status      string         `json:"status"`
	Timestamp   time.Time      `json:"timestamp"`
	Connections map[string]int `json:"connections"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, HealthResponse{
		Status:      "healthy",
		Timestamp:   time.Now().UTC(),
		Connections: s.registry.Stats(),
	})
}

// authedHandler receives the authenticated principal resolved from the bearer
// token, re-read from the store so moderation flags are current.
type authedHandler func(w http.ResponseWriter, r *http.Request, user *types.User)

// requireAuth resolves the Authorization bearer token into a live user row.
// Banned users get 403 on every authenticated route, not just login.
func (s *Server) requireAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.sendError(w, "Authorization token required", http.StatusUnauthorized)
			return
		}
		claims, err := s.tokens.Verify(token)
		if err != nil {
			s.sendError(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}
		user, err := s.store.GetUser(r.Context(), claims.UserID)
		if err != nil {
			s.sendError(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}
		if user.IsBanned {
			s.sendError(w, types.NewBannedError(derefString(user.BanReason)).Message, http.StatusForbidden)
			return
		}
		next(w, r, user)
	}
}

// requireRank gates a handler behind a minimum rank.
func (s *Server) requireRank(minRank int, next authedHandler) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, user *types.User) {
		if user.Rank < minRank {
			s.sendError(w, "ليس لديك الصلاحية الكافية", http.StatusForbidden)
			return
		}
		next(w, r, user)
	}
}

// decodeValid decodes a JSON body and runs struct-tag validation.
func (s *Server) decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.sendError(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) sendJSON(w http.ResponseWriter, code int, body any) {
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Headers are already out; nothing useful left to do.
		return
	}
}

func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	s.sendJSON(w, code, ErrorResponse{
		Error:   http.StatusText(code),
		Code:    code,
		Message: message,
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
