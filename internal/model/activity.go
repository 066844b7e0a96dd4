package model

import "time"

// ActivityType 活动类型
type ActivityType struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"size:255;not null;unique" json:"name"`
	Description string `gorm:"type:text" json:"description"`
}

func (ActivityType) TableName() string {
	return "type_acti"
}

// swagger:model Activity
type Activity struct {
	BaseModel
	LessonID    uint   `gorm:"not null;index" json:"lessonId"`
	TypeID      uint   `gorm:"not null" json:"typeId"`
	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	// Revisada 表示该活动需要教师人工评审
	Revisada           bool       `gorm:"default:false" json:"revisada"`
	ParametroID        *uint      `gorm:"index" json:"parametroId"`
	Porcentaje         int        `gorm:"default:0" json:"porcentaje"`
	FechaMaximaEntrega *time.Time `json:"fechaMaximaEntrega"`
}

func (Activity) TableName() string {
	return "activities"
}
