package model

import "time"

// UserLessonProgress 用户-课时进度，(user_id, lesson_id) 唯一
// swagger:model UserLessonProgress
type UserLessonProgress struct {
	UserID      string    `gorm:"primaryKey;size:64" json:"userId"`
	LessonID    uint      `gorm:"primaryKey;autoIncrement:false" json:"lessonId"`
	Progress    float64   `gorm:"default:0" json:"progress"`
	IsCompleted bool      `gorm:"default:false" json:"isCompleted"`
	IsLocked    bool      `json:"isLocked"`
	IsNew       bool      `json:"isNew"`
	LastUpdated time.Time `json:"lastUpdated"`
}

func (UserLessonProgress) TableName() string {
	return "user_lessons_progress"
}

// UserActivityProgress 用户-活动进度，(user_id, activity_id) 唯一
// swagger:model UserActivityProgress
type UserActivityProgress struct {
	UserID       string   `gorm:"primaryKey;size:64" json:"userId"`
	ActivityID   uint     `gorm:"primaryKey;autoIncrement:false" json:"activityId"`
	Progress     float64  `gorm:"default:0" json:"progress"`
	IsCompleted  bool     `gorm:"default:false" json:"isCompleted"`
	FinalGrade   *float64 `json:"finalGrade"`
	AttemptCount int      `gorm:"default:0" json:"attemptCount"`
	Revisada     bool     `gorm:"default:false" json:"revisada"`
	// SubmissionHash 最近一次评审写入 KV 的内容哈希，用于对账
	SubmissionHash string    `gorm:"size:64" json:"submissionHash,omitempty"`
	LastUpdated    time.Time `json:"lastUpdated"`
}

func (UserActivityProgress) TableName() string {
	return "user_activities_progress"
}
