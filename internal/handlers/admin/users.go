package admin

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/s/leadBoard/internal/auth"
	"github.com/s/leadBoard/internal/handlers"
	"github.com/s/leadBoard/internal/models"
	"github.com/s/leadBoard/internal/storage"
)

type userRequest struct {
	Email    *string `json:"email"`
	Name     *string `json:"name"`
	Password *string `json:"password"`
	RoleID   *uint   `json:"role_id"`
	IsActive *bool   `json:"is_active"`
}

func validRole(id uint) bool {
	return id == models.RoleUser || id == models.RoleAdmin || id == models.RoleManager
}

// ==========================================
// GET /api/users
// ==========================================
func (s *Service) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := storage.ParsePage(q)

	db := s.DB.Model(&models.User{})
	if search := strings.TrimSpace(q.Get("search")); search != "" {
		like := "%" + search + "%"
		db = db.Where("(users.name ILIKE ? OR users.email ILIKE ?)", like, like)
	}
	if role := q.Get("role_id"); role != "" {
		db = db.Where("users.role_id = ?", role)
	}
	db = db.Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		handlers.StorageError(w, err)
		return
	}
	users := []models.User{}
	if err := db.Preload("Role").Scopes(page.Scope).Order("users.created_at DESC").Find(&users).Error; err != nil {
		handlers.StorageError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, storage.NewPaginatedResponse(users, total, page))
}

// GET /api/users/{id}
func (s *Service) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	user, err := storage.FindUser(s.DB, id)
	if err != nil {
		handlers.StorageError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, user)
}

// GET /api/users/{id}/activity
func (s *Service) UserActivity(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	page := storage.ParsePage(r.URL.Query())
	logs, total, err := storage.UserActivity(s.DB, id, page)
	if err != nil {
		handlers.StorageError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, storage.NewPaginatedResponse(logs, total, page))
}

// ==========================================
// POST /api/users
// ==========================================
func (s *Service) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := handlers.DecodeJSON(w, r, &req); err != nil {
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Email == nil || !strings.Contains(*req.Email, "@") {
		handlers.JSONError(w, "a valid email is required", http.StatusBadRequest)
		return
	}
	if req.Password == nil {
		handlers.JSONError(w, "password is required", http.StatusBadRequest)
		return
	}

	user := models.User{
		Email:    strings.ToLower(strings.TrimSpace(*req.Email)),
		IsActive: true,
		RoleID:   models.RoleUser,
	}
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.RoleID != nil {
		if !validRole(*req.RoleID) {
			handlers.JSONError(w, "unknown role", http.StatusBadRequest)
			return
		}
		user.RoleID = *req.RoleID
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	hash, err := auth.HashPassword(*req.Password)
	if err != nil {
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	user.PasswordHash = hash

	if _, err := storage.FindUserByEmail(s.DB, user.Email); err == nil {
		handlers.JSONError(w, "a user with this email already exists", http.StatusConflict)
		return
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		handlers.StorageError(w, err)
		return
	}

	if err := s.DB.Omit("Role").Create(&user).Error; err != nil {
		handlers.StorageError(w, err)
		return
	}
	s.Mailer.Welcome(user.Email, user.Name)
	s.invalidate(r, lookupPrefix+"users")

	created, err := storage.FindUser(s.DB, user.ID)
	if err != nil {
		handlers.StorageError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, created)
}

// ==========================================
// PUT /api/users/{id}
// ==========================================
func (s *Service) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req userRequest
	if err := handlers.DecodeJSON(w, r, &req); err != nil {
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := storage.FindUser(s.DB, id); err != nil {
		handlers.StorageError(w, err)
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		if !strings.Contains(*req.Email, "@") {
			handlers.JSONError(w, "a valid email is required", http.StatusBadRequest)
			return
		}
		updates["email"] = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.RoleID != nil {
		if !validRole(*req.RoleID) {
			handlers.JSONError(w, "unknown role", http.StatusBadRequest)
			return
		}
		updates["role_id"] = *req.RoleID
	}
	if req.IsActive != nil {
		if !*req.IsActive && isSelf(s, r, id) {
			handlers.JSONError(w, "you cannot deactivate your own account", http.StatusBadRequest)
			return
		}
		updates["is_active"] = *req.IsActive
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			handlers.JSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		updates["password_hash"] = hash
	}

	if len(updates) > 0 {
		if err := s.DB.Model(&models.User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			handlers.StorageError(w, err)
			return
		}
		s.invalidate(r, lookupPrefix+"users")
	}

	user, err := storage.FindUser(s.DB, id)
	if err != nil {
		handlers.StorageError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, user)
}

// DELETE /api/users/{id}
func (s *Service) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if isSelf(s, r, id) {
		handlers.JSONError(w, "you cannot delete your own account", http.StatusBadRequest)
		return
	}
	if err := storage.EnsureUnused(s.DB, id, storage.RefCheck{Model: &models.Lead{}, Column: "assignee_id"}); err != nil {
		handlers.StorageError(w, err)
		return
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.AuthSession{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return storage.ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		handlers.StorageError(w, err)
		return
	}
	s.invalidate(r, lookupPrefix+"users")
	handlers.WriteJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

func isSelf(s *Service, r *http.Request, id uint) bool {
	actor := s.ActorID(r)
	return actor != nil && *actor == id
}
