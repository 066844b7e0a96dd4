package repository

import (
	"artiefy_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GradeRepository struct {
	DB *gorm.DB
}

func NewGradeRepository(db *gorm.DB) *GradeRepository {
	return &GradeRepository{DB: db}
}

func (r *GradeRepository) WithTx(tx *gorm.DB) *GradeRepository {
	return &GradeRepository{DB: tx}
}

func (r *GradeRepository) UpsertParameterGrade(parametroID uint, userID string, grade float64) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "parametro_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"grade", "updated_at"}),
	}).Create(&model.ParameterGrade{
		ParametroID: parametroID,
		UserID:      userID,
		Grade:       grade,
		UpdatedAt:   time.Now(),
	}).Error
}

func (r *GradeRepository) UpsertMateriaGrade(materiaID uint, userID string, grade float64) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "materia_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"grade", "updated_at"}),
	}).Create(&model.MateriaGrade{
		MateriaID: materiaID,
		UserID:    userID,
		Grade:     grade,
		UpdatedAt: time.Now(),
	}).Error
}

func (r *GradeRepository) MateriasByCourse(courseID uint) ([]model.Materia, error) {
	var materias []model.Materia
	err := r.DB.Where("course_id = ?", courseID).Order("id").Find(&materias).Error
	return materias, err
}

func (r *GradeRepository) MateriasByProgram(programID uint) ([]model.Materia, error) {
	var materias []model.Materia
	err := r.DB.Where("programa_id = ?", programID).Order("id").Find(&materias).Error
	return materias, err
}

// MateriaGrades 返回 materiaID -> grade
func (r *GradeRepository) MateriaGrades(userID string, materiaIDs []uint) (map[uint]float64, error) {
	out := make(map[uint]float64, len(materiaIDs))
	if len(materiaIDs) == 0 {
		return out, nil
	}
	var rows []model.MateriaGrade
	if err := r.DB.Where("user_id = ? AND materia_id IN ?", userID, materiaIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.MateriaID] = row.Grade
	}
	return out, nil
}

func (r *GradeRepository) FindProgram(id uint) (*model.Program, error) {
	var program model.Program
	err := r.DB.First(&program, id).Error
	return &program, err
}

func (r *GradeRepository) FindCertificate(userID string, programID uint) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.DB.Where("user_id = ? AND programa_id = ?", userID, programID).First(&cert).Error
	return &cert, err
}

// CreateCertificate 并发重复签发时以已存在的证书为准
func (r *GradeRepository) CreateCertificate(cert *model.Certificate) error {
	res := r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(cert)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		existing, err := r.FindCertificate(cert.UserID, cert.ProgramaID)
		if err != nil {
			return err
		}
		*cert = *existing
	}
	return nil
}
