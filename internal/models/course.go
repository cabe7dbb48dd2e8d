package models

import (
	"time"

	"gorm.io/gorm"
)

// Course is a programme leads can enquire about.
type Course struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Title       string  `gorm:"size:255;not null" json:"title"`
	Description string  `json:"description"`
	Fee         float64 `json:"fee"`
	IsActive    bool    `gorm:"default:true" json:"is_active"`

	SubCourses []SubCourse `json:"sub_courses,omitempty" gorm:"constraint:OnDelete:CASCADE;"`
}

// SubCourse is a track inside a course.
type SubCourse struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	Title    string  `gorm:"size:255;not null" json:"title"`
	CourseID uint    `gorm:"index" json:"course_id"`
	Fee      float64 `json:"fee"`
}
