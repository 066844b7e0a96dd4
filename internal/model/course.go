package model

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel 课程目录类实体共用的字段，删除为软删除
type BaseModel struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// swagger:model Course
type Course struct {
	BaseModel
	Title       string   `gorm:"size:255;not null" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	CreatorID   string   `gorm:"size:64;index" json:"creatorId"`
	Lessons     []Lesson `gorm:"foreignKey:CourseID" json:"lessons,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// Enrollment 课程报名
type Enrollment struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     string    `gorm:"size:64;not null;uniqueIndex:idx_enrollment_user_course" json:"userId"`
	CourseID   uint      `gorm:"not null;uniqueIndex:idx_enrollment_user_course" json:"courseId"`
	EnrolledAt time.Time `json:"enrolledAt"`
	Completed  bool      `gorm:"default:false" json:"completed"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
