package api

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/alagerbyemene-code/Appchat/pkg/types"
)

var (
	imageExtensions = map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".gif":  true,
		".webp": true,
	}
	audioExtensions = map[string]bool{
		".mp3":  true,
		".ogg":  true,
		".wav":  true,
		".webm": true,
	}
)

// chatMediaExtensions covers what the chat client can attach: images and
// voice clips.
func chatMediaExtensions() map[string]bool {
	out := make(map[string]bool, len(imageExtensions)+len(audioExtensions))
	for ext := range imageExtensions {
		out[ext] = true
	}
	for ext := range audioExtensions {
		out[ext] = true
	}
	return out
}

type UploadResponse struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// saveUpload stores the multipart "file" field under a random name and
// returns its public URL. The original filename only contributes its
// extension. Writes the error response itself on failure.
func (s *Server) saveUpload(w http.ResponseWriter, r *http.Request, allowed map[string]bool) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.uploads.MaxSizeByte)
	if err := r.ParseMultipartForm(s.uploads.MaxSizeByte); err != nil {
		s.sendError(w, "الملف كبير جداً", http.StatusRequestEntityTooLarge)
		return "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.sendError(w, "File field required", http.StatusBadRequest)
		return "", false
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowed[ext] {
		s.sendError(w, "نوع الملف غير مدعوم", http.StatusUnsupportedMediaType)
		return "", false
	}

	if err := os.MkdirAll(s.uploads.Dir, 0o755); err != nil {
		s.sendError(w, "Failed to store file", http.StatusInternalServerError)
		return "", false
	}

	name := uuid.New().String() + ext
	dst, err := os.Create(filepath.Join(s.uploads.Dir, name))
	if err != nil {
		s.sendError(w, "Failed to store file", http.StatusInternalServerError)
		return "", false
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(dst.Name())
		s.sendError(w, "Failed to store file", http.StatusInternalServerError)
		return "", false
	}
	return "/uploads/" + name, true
}

// POST /api/media/upload: generic chat attachment (image or voice clip).
func (s *Server) handleMediaUpload(w http.ResponseWriter, r *http.Request, user *types.User) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	url, ok := s.saveUpload(w, r, chatMediaExtensions())
	if !ok {
		return
	}
	s.sendJSON(w, http.StatusCreated, UploadResponse{
		URL:      url,
		Filename: strings.TrimPrefix(url, "/uploads/"),
	})
}

// POST/DELETE /api/user/profile-music: upload or clear the profile music
// clip played on the user's profile.
func (s *Server) handleProfileMusic(w http.ResponseWriter, r *http.Request, user *types.User) {
	s.handleProfileMedia(w, r, user, audioExtensions, user.ProfileMusic, s.store.SetProfileMusic)
}

// POST/DELETE /api/user/message-background: upload or clear the image shown
// behind the user's chat messages.
func (s *Server) handleMessageBackground(w http.ResponseWriter, r *http.Request, user *types.User) {
	s.handleProfileMedia(w, r, user, imageExtensions, user.MessageBg, s.store.SetMessageBackground)
}

func (s *Server) handleProfileMedia(w http.ResponseWriter, r *http.Request, user *types.User,
	allowed map[string]bool, current *string, set func(context.Context, int64, *string) error) {
	switch r.Method {
	case http.MethodPost:
		url, ok := s.saveUpload(w, r, allowed)
		if !ok {
			return
		}
		if err := set(r.Context(), user.ID, &url); err != nil {
			s.sendError(w, "Database error", http.StatusInternalServerError)
			return
		}
		s.removeUploadedFile(current)
		s.sendJSON(w, http.StatusOK, UploadResponse{
			URL:      url,
			Filename: strings.TrimPrefix(url, "/uploads/"),
		})
	case http.MethodDelete:
		if err := set(r.Context(), user.ID, nil); err != nil {
			s.sendError(w, "Database error", http.StatusInternalServerError)
			return
		}
		s.removeUploadedFile(current)
		s.sendJSON(w, http.StatusOK, map[string]string{"message": "Removed"})
	default:
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// removeUploadedFile deletes a previously stored media file, if any. Best
// effort; a leftover file is harmless.
func (s *Server) removeUploadedFile(url *string) {
	if url == nil {
		return
	}
	name := strings.TrimPrefix(*url, "/uploads/")
	if name == "" || name == *url || strings.Contains(name, "/") {
		return
	}
	_ = os.Remove(filepath.Join(s.uploads.Dir, name))
}
