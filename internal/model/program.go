package model

import "time"

// swagger:model Program
type Program struct {
	BaseModel
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Materias    []Materia `gorm:"foreignKey:ProgramaID" json:"materias,omitempty"`
}

func (Program) TableName() string {
	return "programas"
}

// Materia 项目下的科目，可绑定一门课程
type Materia struct {
	BaseModel
	ProgramaID uint   `gorm:"not null;index" json:"programaId"`
	CourseID   *uint  `gorm:"index" json:"courseId"`
	Title      string `gorm:"size:255;not null" json:"title"`
}

func (Materia) TableName() string {
	return "materias"
}

// swagger:model Certificate
type Certificate struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      string    `gorm:"size:64;not null;uniqueIndex:idx_certificate_user_program" json:"userId"`
	ProgramaID  uint      `gorm:"not null;uniqueIndex:idx_certificate_user_program" json:"programaId"`
	Grade       float64   `json:"grade"`
	StudentName string    `gorm:"size:255" json:"studentName"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (Certificate) TableName() string {
	return "certificates"
}
