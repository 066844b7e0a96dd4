package repository

import (
	"artiefy_backend/internal/model"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx}
}

// Transaction 在事务内执行 fn，fn 拿到绑定事务的仓库
func (r *ProgressRepository) Transaction(fn func(tx *ProgressRepository) error) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

func (r *ProgressRepository) ListLessonProgress(userID string, lessonIDs []uint) ([]model.UserLessonProgress, error) {
	var rows []model.UserLessonProgress
	if len(lessonIDs) == 0 {
		return rows, nil
	}
	err := r.DB.Where("user_id = ? AND lesson_id IN ?", userID, lessonIDs).Find(&rows).Error
	return rows, err
}

// LockLessonProgress 读取并锁定进度行，不存在时 found 为 false
func (r *ProgressRepository) LockLessonProgress(userID string, lessonID uint) (row model.UserLessonProgress, found bool, err error) {
	err = r.DB.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.UserLessonProgress{UserID: userID, LessonID: lessonID}, false, nil
	}
	return row, err == nil, err
}

// SaveLessonProgress 按 (user_id, lesson_id) upsert 整行
func (r *ProgressRepository) SaveLessonProgress(row *model.UserLessonProgress) error {
	row.LastUpdated = time.Now()
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
		UpdateAll: true,
	}).Create(row).Error
}

// UnlockLesson 解锁课时；行不存在时以 progress 0、isNew 插入，已存在只改锁状态
func (r *ProgressRepository) UnlockLesson(userID string, lessonID uint) error {
	now := time.Now()
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"is_locked":    false,
			"last_updated": now,
		}),
	}).Create(&model.UserLessonProgress{
		UserID:      userID,
		LessonID:    lessonID,
		IsLocked:    false,
		IsNew:       true,
		LastUpdated: now,
	}).Error
}

// InitLessonRows 报名时批量创建进度行，已有的行保持不变
func (r *ProgressRepository) InitLessonRows(rows []model.UserLessonProgress) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now()
	for i := range rows {
		rows[i].LastUpdated = now
	}
	return r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func (r *ProgressRepository) FindActivityProgress(userID string, activityID uint) (*model.UserActivityProgress, error) {
	var row model.UserActivityProgress
	err := r.DB.Where("user_id = ? AND activity_id = ?", userID, activityID).First(&row).Error
	return &row, err
}

func (r *ProgressRepository) ListActivityProgress(userID string, activityIDs []uint) ([]model.UserActivityProgress, error) {
	var rows []model.UserActivityProgress
	if len(activityIDs) == 0 {
		return rows, nil
	}
	err := r.DB.Where("user_id = ? AND activity_id IN ?", userID, activityIDs).Find(&rows).Error
	return rows, err
}

func (r *ProgressRepository) LockActivityProgress(userID string, activityID uint) (row model.UserActivityProgress, found bool, err error) {
	err = r.DB.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND activity_id = ?", userID, activityID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.UserActivityProgress{UserID: userID, ActivityID: activityID}, false, nil
	}
	return row, err == nil, err
}

// SaveActivityProgress 按 (user_id, activity_id) upsert 整行
func (r *ProgressRepository) SaveActivityProgress(row *model.UserActivityProgress) error {
	row.LastUpdated = time.Now()
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "activity_id"}},
		UpdateAll: true,
	}).Create(row).Error
}

// ListReviewedHashes 返回 activityID -> submission_hash，供对账使用
func (r *ProgressRepository) ListReviewedHashes(userID string, activityIDs []uint) (map[uint]string, error) {
	rows, err := r.ListActivityProgress(userID, activityIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[uint]string, len(rows))
	for _, row := range rows {
		if row.Revisada {
			out[row.ActivityID] = row.SubmissionHash
		}
	}
	return out, nil
}
