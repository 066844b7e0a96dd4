package repository

import (
	"artiefy_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) WithTx(tx *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: tx}
}

func (r *CourseRepository) FindCourse(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.First(&course, id).Error
	return &course, err
}

func (r *CourseRepository) ListCourseIDs() ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.Course{}).Order("id").Pluck("id", &ids).Error
	return ids, err
}

func (r *CourseRepository) FindLesson(id uint) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.First(&lesson, id).Error
	return &lesson, err
}

// ListLessons 课程下全部课时，顺序由调用方用 SortLessons 决定
func (r *CourseRepository) ListLessons(courseID uint) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.Where("course_id = ?", courseID).Order("id").Find(&lessons).Error
	return lessons, err
}

func (r *CourseRepository) FindLessonsByIDs(ids []uint) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.Where("id IN ?", ids).Find(&lessons).Error
	return lessons, err
}

// UpdateOrderIndexes 两阶段写入：先整体偏移到临时区间再写最终值，
// 避免 (course_id, order_index) 上有唯一约束时中途冲突。须在事务内调用。
func (r *CourseRepository) UpdateOrderIndexes(courseID uint, orders map[uint]int) error {
	var maxOrder int
	if err := r.DB.Model(&model.Lesson{}).
		Where("course_id = ?", courseID).
		Select("COALESCE(MAX(order_index), 0)").
		Scan(&maxOrder).Error; err != nil {
		return err
	}

	offset := maxOrder + 100000
	for id, order := range orders {
		if err := r.DB.Model(&model.Lesson{}).Where("id = ?", id).
			Update("order_index", order+offset).Error; err != nil {
			return err
		}
	}
	for id, order := range orders {
		if err := r.DB.Model(&model.Lesson{}).Where("id = ?", id).
			Update("order_index", order).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *CourseRepository) FindActivity(id uint) (*model.Activity, error) {
	var activity model.Activity
	err := r.DB.First(&activity, id).Error
	return &activity, err
}

func (r *CourseRepository) ListActivitiesByLesson(lessonID uint) ([]model.Activity, error) {
	var activities []model.Activity
	err := r.DB.Where("lesson_id = ?", lessonID).Order("id").Find(&activities).Error
	return activities, err
}

func (r *CourseRepository) ListActivitiesByCourse(courseID uint) ([]model.Activity, error) {
	var activities []model.Activity
	err := r.DB.Joins("JOIN lessons ON lessons.id = activities.lesson_id AND lessons.deleted_at IS NULL").
		Where("lessons.course_id = ?", courseID).
		Order("activities.id").
		Find(&activities).Error
	return activities, err
}

// CourseIDOfActivity 活动所属课程
func (r *CourseRepository) CourseIDOfActivity(activityID uint) (uint, error) {
	var courseID uint
	err := r.DB.Model(&model.Activity{}).
		Select("lessons.course_id").
		Joins("JOIN lessons ON lessons.id = activities.lesson_id").
		Where("activities.id = ?", activityID).
		Scan(&courseID).Error
	if err == nil && courseID == 0 {
		err = gorm.ErrRecordNotFound
	}
	return courseID, err
}

// CreateEnrollment 已报名时不重复插入
func (r *CourseRepository) CreateEnrollment(userID string, courseID uint) error {
	return r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.Enrollment{
		UserID:     userID,
		CourseID:   courseID,
		EnrolledAt: time.Now(),
	}).Error
}

func (r *CourseRepository) IsEnrolled(userID string, courseID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error
	return count > 0, err
}
