package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/s/leadBoard/internal/auth"
	"github.com/s/leadBoard/internal/models"
	"github.com/s/leadBoard/internal/storage"
)

const maxImageSize = 5 << 20

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// GET /api/profile
func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	actor := h.ActorID(r)
	if actor == nil {
		JSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	user, err := storage.FindUser(h.DB, *actor)
	if err != nil {
		StorageError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, user)
}

// PUT /api/profile
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor := h.ActorID(r)
	if actor == nil {
		JSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Name            *string `json:"name"`
		CurrentPassword string  `json:"current_password"`
		NewPassword     string  `json:"new_password"`
	}
	if err := DecodeJSON(w, r, &req); err != nil {
		JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := storage.FindUser(h.DB, *actor)
	if err != nil {
		StorageError(w, err)
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			JSONError(w, "name cannot be empty", http.StatusBadRequest)
			return
		}
		updates["name"] = name
	}
	if req.NewPassword != "" {
		if user.PasswordHash != "" && !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
			JSONError(w, "current password is incorrect", http.StatusForbidden)
			return
		}
		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			JSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		updates["password_hash"] = hash
	}
	if len(updates) == 0 {
		WriteJSON(w, http.StatusOK, user)
		return
	}

	if err := h.DB.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		StorageError(w, err)
		return
	}
	if user, err = storage.FindUser(h.DB, user.ID); err != nil {
		StorageError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, user)
}

// POST /api/profile/image (multipart field "image")
func (h *Handler) HandleProfileImage(w http.ResponseWriter, r *http.Request) {
	actor := h.ActorID(r)
	if actor == nil {
		JSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize+(512<<10))
	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			JSONError(w, "image must be 5 MB or smaller", http.StatusRequestEntityTooLarge)
			return
		}
		JSONError(w, "multipart field \"image\" is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Size > maxImageSize {
		JSONError(w, "image must be 5 MB or smaller", http.StatusRequestEntityTooLarge)
		return
	}

	head := make([]byte, 512)
	n, _ := io.ReadFull(file, head)
	ext, ok := imageExtensions[http.DetectContentType(head[:n])]
	if !ok {
		JSONError(w, "only JPEG, PNG and WebP images are accepted", http.StatusUnsupportedMediaType)
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		JSONError(w, "could not read image", http.StatusInternalServerError)
		return
	}

	dir := filepath.Join(h.Env.UploadDir, "profile")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("create upload dir", "dir", dir, "error", err)
		JSONError(w, "could not store image", http.StatusInternalServerError)
		return
	}
	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		slog.Error("create image file", "error", err)
		JSONError(w, "could not store image", http.StatusInternalServerError)
		return
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		slog.Error("write image file", "error", err)
		JSONError(w, "could not store image", http.StatusInternalServerError)
		return
	}

	url := "/uploads/profile/" + name
	if err := h.DB.Model(&models.User{}).Where("id = ?", *actor).Update("picture", url).Error; err != nil {
		StorageError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"picture": url})
}
