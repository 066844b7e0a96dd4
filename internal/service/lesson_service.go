package service

import (
	"context"

	"artiefy_backend/internal/model"
	"artiefy_backend/internal/repository"
	"artiefy_backend/internal/util"
	"artiefy_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LessonOrder 单个课时的目标顺序
type LessonOrder struct {
	ID         uint `json:"id" validate:"required"`
	OrderIndex int  `json:"orderIndex" validate:"min=1"`
}

type LessonService struct {
	CourseRepo *repository.CourseRepository
}

func NewLessonService(courseRepo *repository.CourseRepository) *LessonService {
	return &LessonService{CourseRepo: courseRepo}
}

// ListOrdered 按课程顺序返回课时
func (s *LessonService) ListOrdered(ctx context.Context, courseID uint) ([]model.Lesson, error) {
	if _, err := s.CourseRepo.FindCourse(courseID); err != nil {
		return nil, notFoundAs(err, util.ErrCourseNotFound)
	}
	lessons, err := s.CourseRepo.ListLessons(courseID)
	if err != nil {
		return nil, err
	}
	return SortLessons(lessons), nil
}

// Reorder 批量写入 order_index，所有课时须属于同一课程
func (s *LessonService) Reorder(ctx context.Context, orders []LessonOrder) ([]model.Lesson, error) {
	if len(orders) == 0 {
		return nil, util.ErrBadRequest("no lessons to reorder")
	}
	ids := make([]uint, 0, len(orders))
	byID := make(map[uint]int, len(orders))
	seen := make(map[int]struct{}, len(orders))
	for _, o := range orders {
		if err := util.Validate.Struct(o); err != nil {
			return nil, err
		}
		if _, dup := byID[o.ID]; dup {
			return nil, util.ErrBadRequest("duplicate lesson id")
		}
		if _, dup := seen[o.OrderIndex]; dup {
			return nil, util.ErrBadRequest("duplicate orderIndex")
		}
		seen[o.OrderIndex] = struct{}{}
		byID[o.ID] = o.OrderIndex
		ids = append(ids, o.ID)
	}

	lessons, err := s.CourseRepo.FindLessonsByIDs(ids)
	if err != nil {
		return nil, err
	}
	if len(lessons) != len(ids) {
		return nil, util.ErrLessonNotFound
	}
	courseID := lessons[0].CourseID
	for _, l := range lessons[1:] {
		if l.CourseID != courseID {
			return nil, util.ErrBadRequest("lessons belong to different courses")
		}
	}

	err = s.CourseRepo.DB.Transaction(func(tx *gorm.DB) error {
		return s.CourseRepo.WithTx(tx).UpdateOrderIndexes(courseID, byID)
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("lessons reordered", zap.Uint("course_id", courseID), zap.Int("count", len(orders)))
	return s.ListOrdered(ctx, courseID)
}

// BackfillOrderIndex 旧课程按标题顺序一次性写入 1..N；已有完整顺序的课程不变
func (s *LessonService) BackfillOrderIndex(ctx context.Context, courseID uint) (int, error) {
	if _, err := s.CourseRepo.FindCourse(courseID); err != nil {
		return 0, notFoundAs(err, util.ErrCourseNotFound)
	}
	lessons, err := s.CourseRepo.ListLessons(courseID)
	if err != nil {
		return 0, err
	}
	if len(lessons) == 0 || hasExplicitOrder(lessons) {
		return 0, nil
	}

	sorted := SortLessons(lessons)
	orders := make(map[uint]int, len(sorted))
	for i, l := range sorted {
		orders[l.ID] = i + 1
	}
	err = s.CourseRepo.DB.Transaction(func(tx *gorm.DB) error {
		return s.CourseRepo.WithTx(tx).UpdateOrderIndexes(courseID, orders)
	})
	if err != nil {
		return 0, err
	}

	logger.FromContext(ctx).Info("lesson order backfilled", zap.Uint("course_id", courseID), zap.Int("lessons", len(sorted)))
	return len(sorted), nil
}

// BackfillAll 对所有课程执行回填，返回更新的课时数
func (s *LessonService) BackfillAll(ctx context.Context) (int, error) {
	ids, err := s.CourseRepo.ListCourseIDs()
	if err != nil {
		return 0, err
	}
	total := 0
	for _, id := range ids {
		n, err := s.BackfillOrderIndex(ctx, id)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
