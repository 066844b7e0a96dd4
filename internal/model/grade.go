package model

import "time"

// Parametro 课程评分参数，同一课程的 porcentaje 之和不超过 100
// 不做软删除，否则预算求和会把已删除行算进去
// swagger:model Parametro
type Parametro struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CourseID    uint      `gorm:"not null;index" json:"courseId"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Porcentaje  int       `gorm:"not null;default:0" json:"porcentaje"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Parametro) TableName() string {
	return "parametros"
}

type ParameterGrade struct {
	ParametroID uint      `gorm:"primaryKey;autoIncrement:false" json:"parameterId"`
	UserID      string    `gorm:"primaryKey;size:64" json:"userId"`
	Grade       float64   `json:"grade"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (ParameterGrade) TableName() string {
	return "parameter_grades"
}

type MateriaGrade struct {
	MateriaID uint      `gorm:"primaryKey;autoIncrement:false" json:"materiaId"`
	UserID    string    `gorm:"primaryKey;size:64" json:"userId"`
	Grade     float64   `json:"grade"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (MateriaGrade) TableName() string {
	return "materia_grades"
}
