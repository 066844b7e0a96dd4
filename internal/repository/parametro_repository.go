package repository

import (
	"artiefy_backend/internal/model"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrBudgetExceeded 条件写入未命中：写入后课程权重之和会超过上限
var ErrBudgetExceeded = errors.New("parametro weight budget exceeded")

type ParametroRepository struct {
	DB *gorm.DB
}

func NewParametroRepository(db *gorm.DB) *ParametroRepository {
	return &ParametroRepository{DB: db}
}

func (r *ParametroRepository) WithTx(tx *gorm.DB) *ParametroRepository {
	return &ParametroRepository{DB: tx}
}

// Transaction 锁住课程行后执行 fn，同一课程的参数写入因此串行化
func (r *ParametroRepository) Transaction(courseID uint, fn func(tx *ParametroRepository) error) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var course model.Course
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			First(&course, courseID).Error; err != nil {
			return err
		}
		return fn(r.WithTx(tx))
	})
}

func (r *ParametroRepository) ListByCourse(courseID uint) ([]model.Parametro, error) {
	var params []model.Parametro
	err := r.DB.Where("course_id = ?", courseID).Order("id").Find(&params).Error
	return params, err
}

func (r *ParametroRepository) FindByID(id uint) (*model.Parametro, error) {
	var p model.Parametro
	err := r.DB.First(&p, id).Error
	return &p, err
}

func (r *ParametroRepository) TotalWeight(courseID uint) (int, error) {
	var total int
	err := r.DB.Model(&model.Parametro{}).
		Where("course_id = ?", courseID).
		Select("COALESCE(SUM(porcentaje), 0)").
		Scan(&total).Error
	return total, err
}

// postgres 无法从 INSERT ... SELECT 的选择列表推断参数类型，需要显式转换
func (r *ParametroRepository) placeholder(sqlType string) string {
	if r.DB.Dialector.Name() == "postgres" {
		return fmt.Sprintf("CAST(? AS %s)", sqlType)
	}
	return "?"
}

// CreateWithinBudget 单条语句完成“校验总和 + 插入”，不满足预算时不写入并返回 ErrBudgetExceeded
func (r *ParametroRepository) CreateWithinBudget(p *model.Parametro, max int) error {
	now := time.Now()
	sql := fmt.Sprintf(`INSERT INTO parametros (course_id, name, description, porcentaje, created_at, updated_at)
SELECT %s, %s, %s, %s, %s, %s
FROM (SELECT COALESCE(SUM(porcentaje), 0) AS total FROM parametros WHERE course_id = ?) AS t
WHERE t.total + ? <= ?`,
		r.placeholder("BIGINT"), r.placeholder("TEXT"), r.placeholder("TEXT"),
		r.placeholder("BIGINT"), r.placeholder("TIMESTAMPTZ"), r.placeholder("TIMESTAMPTZ"),
	)

	res := r.DB.Exec(sql,
		p.CourseID, p.Name, p.Description, p.Porcentaje, now, now,
		p.CourseID, p.Porcentaje, max,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBudgetExceeded
	}

	// 回读刚插入的行，同课程同名时取最新一条
	return r.DB.Where("course_id = ? AND name = ?", p.CourseID, p.Name).
		Order("id DESC").
		First(p).Error
}

// UpdateWithinBudget 仅当其余参数之和加上新权重不超过上限时更新
func (r *ParametroRepository) UpdateWithinBudget(p *model.Parametro, max int) error {
	res := r.DB.Exec(`UPDATE parametros SET name = ?, description = ?, porcentaje = ?, updated_at = ?
WHERE id = ? AND course_id = ?
AND (SELECT t.total FROM (SELECT COALESCE(SUM(porcentaje), 0) AS total FROM parametros WHERE course_id = ? AND id <> ?) AS t) + ? <= ?`,
		p.Name, p.Description, p.Porcentaje, time.Now(),
		p.ID, p.CourseID,
		p.CourseID, p.ID, p.Porcentaje, max,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(p.ID); err != nil {
			return err
		}
		return ErrBudgetExceeded
	}
	return nil
}

// Delete 删除参数并解除活动绑定、清理参数成绩，须在事务内调用
func (r *ParametroRepository) Delete(ids ...uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if err := r.DB.Model(&model.Activity{}).
		Where("parametro_id IN ?", ids).
		Update("parametro_id", nil).Error; err != nil {
		return 0, err
	}
	if err := r.DB.Where("parametro_id IN ?", ids).Delete(&model.ParameterGrade{}).Error; err != nil {
		return 0, err
	}
	res := r.DB.Where("id IN ?", ids).Delete(&model.Parametro{})
	return res.RowsAffected, res.Error
}

func (r *ParametroRepository) IDsByCourse(courseID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.Parametro{}).Where("course_id = ?", courseID).Pluck("id", &ids).Error
	return ids, err
}
