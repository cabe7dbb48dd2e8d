package admin

import (
	"net/http"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/s/leadBoard/internal/handlers"
	"github.com/s/leadBoard/internal/models"
	"github.com/s/leadBoard/internal/storage"
)

var courses = resource[models.Course]{
	name:       "course",
	embeddedIn: []string{"batch"},
	order:      "title ASC",
	preload:    []string{"SubCourses"},
	search:     []string{"title", "description"},
	validate: func(_ *gorm.DB, c *models.Course) error {
		c.Title = strings.TrimSpace(c.Title)
		if c.Title == "" {
			return missing("title")
		}
		if c.Fee < 0 {
			return invalid("fee cannot be negative")
		}
		return nil
	},
	inUse: []storage.RefCheck{
		{Model: &models.Lead{}, Column: "course_id"},
		{Model: &models.Batch{}, Column: "course_id"},
	},
}

var subCourses = resource[models.SubCourse]{
	name:       "sub-course",
	order:      "title ASC",
	embeddedIn: []string{"course", "batch"},
	validate: func(db *gorm.DB, sc *models.SubCourse) error {
		sc.Title = strings.TrimSpace(sc.Title)
		if sc.Title == "" {
			return missing("title")
		}
		return exists(db, &models.Course{}, "course_id", sc.CourseID)
	},
	inUse: []storage.RefCheck{
		{Model: &models.Lead{}, Column: "sub_course_id"},
	},
}

// ==========================================
// GET /courses/{id}/sub-courses
// ==========================================
func (s *Service) ListSubCourses(w http.ResponseWriter, r *http.Request) {
	courseID, err := handlers.PathID(r)
	if err != nil {
		handlers.JSONError(w, "Invalid course ID", http.StatusBadRequest)
		return
	}
	items := []models.SubCourse{}
	if err := s.DB.Where("course_id = ?", courseID).Order("title ASC").Find(&items).Error; err != nil {
		handlers.StorageError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, items)
}

// ==========================================
// POST /courses/{id}/sub-courses
// ==========================================
func (s *Service) CreateSubCourse(w http.ResponseWriter, r *http.Request) {
	courseID, err := handlers.PathID(r)
	if err != nil {
		handlers.JSONError(w, "Invalid course ID", http.StatusBadRequest)
		return
	}

	var sc models.SubCourse
	if err := handlers.DecodeJSON(w, r, &sc); err != nil {
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	sc.ID = 0
	sc.CourseID = courseID
	if err := subCourses.check(s.DB, &sc); err != nil {
		handlers.StorageError(w, err)
		return
	}
	if err := s.DB.Omit(clause.Associations).Create(&sc).Error; err != nil {
		handlers.StorageError(w, err)
		return
	}
	s.invalidate(r, subCourses.staleKeys()...)
	handlers.WriteJSON(w, http.StatusCreated, sc)
}
