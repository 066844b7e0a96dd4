package model

// swagger:model Lesson
type Lesson struct {
	BaseModel
	CourseID    uint    `gorm:"not null;index" json:"courseId"`
	Title       string  `gorm:"size:255;not null" json:"title"`
	Description string  `gorm:"type:text" json:"description"`
	Duration    float64 `json:"duration"`
	// OrderIndex 为 0 表示旧数据尚未回填，排序时退回按标题解析
	OrderIndex    int    `gorm:"default:0;index" json:"orderIndex"`
	CoverVideoKey string `gorm:"size:255" json:"coverVideoKey"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// HasVideo "none" 是前端占位值，不算视频
func (l *Lesson) HasVideo() bool {
	return l.CoverVideoKey != "" && l.CoverVideoKey != "none"
}
