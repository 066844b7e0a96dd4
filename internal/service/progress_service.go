package service

import (
	"context"
	"errors"
	"time"

	"artiefy_backend/internal/model"
	"artiefy_backend/internal/repository"
	"artiefy_backend/internal/util"
	"artiefy_backend/pkg/logger"
	"artiefy_backend/pkg/monitoring"
	"artiefy_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LessonProgressView 课时与当前用户进度
type LessonProgressView struct {
	LessonID    uint      `json:"lessonId"`
	Title       string    `json:"title"`
	OrderIndex  int       `json:"orderIndex"`
	Position    int       `json:"position"`
	Progress    float64   `json:"progress"`
	IsCompleted bool      `json:"isCompleted"`
	IsLocked    bool      `json:"isLocked"`
	IsNew       bool      `json:"isNew"`
	LastUpdated time.Time `json:"lastUpdated,omitempty"`
}

type CourseProgress struct {
	CourseID uint                 `json:"courseId"`
	Lessons  []LessonProgressView `json:"lessons"`
}

// LessonProgressResult 更新课时进度后的结果，UnlockedLessonID 为本次解锁的下一课时
type LessonProgressResult struct {
	Lesson           LessonProgressView `json:"lesson"`
	UnlockedLessonID *uint              `json:"unlockedLessonId,omitempty"`
}

type ActivityProgressResult struct {
	ActivityID       uint    `json:"activityId"`
	Progress         float64 `json:"progress"`
	IsCompleted      bool    `json:"isCompleted"`
	LessonCompleted  bool    `json:"lessonCompleted"`
	UnlockedLessonID *uint   `json:"unlockedLessonId,omitempty"`
}

type ProgressService struct {
	CourseRepo   *repository.CourseRepository
	ProgressRepo *repository.ProgressRepository
}

func NewProgressService(courseRepo *repository.CourseRepository, progressRepo *repository.ProgressRepository) *ProgressService {
	return &ProgressService{
		CourseRepo:   courseRepo,
		ProgressRepo: progressRepo,
	}
}

func validateProgress(progress float64) error {
	if err := util.Validate.Var(progress, "gte=0,lte=100"); err != nil {
		return util.ErrInvalidProgress
	}
	return nil
}

func notFoundAs(err error, appErr *util.AppError) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return appErr
	}
	return err
}

func (s *ProgressService) sortedLessons(courseRepo *repository.CourseRepository, courseID uint) ([]model.Lesson, error) {
	lessons, err := courseRepo.ListLessons(courseID)
	if err != nil {
		return nil, err
	}
	return SortLessons(lessons), nil
}

func toView(lesson model.Lesson, position int, row *model.UserLessonProgress) LessonProgressView {
	v := LessonProgressView{
		LessonID:   lesson.ID,
		Title:      lesson.Title,
		OrderIndex: lesson.OrderIndex,
		Position:   position,
		IsLocked:   true,
		IsNew:      true,
	}
	if row != nil {
		v.Progress = row.Progress
		v.IsCompleted = row.IsCompleted
		v.IsLocked = row.IsLocked
		v.IsNew = row.IsNew
		v.LastUpdated = row.LastUpdated
	}
	if position == 1 {
		v.IsLocked = false
	}
	return v
}

// EnrollInCourse 报名并初始化全部课时进度：首课时解锁，其余锁定
func (s *ProgressService) EnrollInCourse(ctx context.Context, userID string, courseID uint) (*CourseProgress, error) {
	ctx, span := tracing.StartSpan(ctx, "ProgressService.EnrollInCourse", attribute.Int64("course.id", int64(courseID)))
	var err error
	defer func() { tracing.End(span, err) }()

	if _, err = s.CourseRepo.FindCourse(courseID); err != nil {
		err = notFoundAs(err, util.ErrCourseNotFound)
		return nil, err
	}

	sorted, err := s.sortedLessons(s.CourseRepo, courseID)
	if err != nil {
		return nil, err
	}

	err = s.ProgressRepo.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.CourseRepo.WithTx(tx).CreateEnrollment(userID, courseID); err != nil {
			return err
		}

		progressRepo := s.ProgressRepo.WithTx(tx)
		rows := make([]model.UserLessonProgress, 0, len(sorted))
		for i, l := range sorted {
			rows = append(rows, model.UserLessonProgress{
				UserID:   userID,
				LessonID: l.ID,
				IsLocked: i > 0,
				IsNew:    true,
			})
		}
		if err := progressRepo.InitLessonRows(rows); err != nil {
			return err
		}
		if len(sorted) > 0 {
			return progressRepo.UnlockLesson(userID, sorted[0].ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("user enrolled",
		zap.String("user_id", userID),
		zap.Uint("course_id", courseID),
		zap.Int("lessons", len(sorted)),
	)

	return s.GetCourseProgress(ctx, userID, courseID)
}

// GetCourseProgress 按课程顺序返回进度，没有进度行的课时视为锁定，首课时总是可访问
func (s *ProgressService) GetCourseProgress(ctx context.Context, userID string, courseID uint) (*CourseProgress, error) {
	if _, err := s.CourseRepo.FindCourse(courseID); err != nil {
		return nil, notFoundAs(err, util.ErrCourseNotFound)
	}

	sorted, err := s.sortedLessons(s.CourseRepo, courseID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, len(sorted))
	for i, l := range sorted {
		ids[i] = l.ID
	}
	rows, err := s.ProgressRepo.ListLessonProgress(userID, ids)
	if err != nil {
		return nil, err
	}
	byLesson := make(map[uint]*model.UserLessonProgress, len(rows))
	for i := range rows {
		byLesson[rows[i].LessonID] = &rows[i]
	}

	out := &CourseProgress{CourseID: courseID, Lessons: make([]LessonProgressView, 0, len(sorted))}
	for i, l := range sorted {
		out.Lessons = append(out.Lessons, toView(l, i+1, byLesson[l.ID]))
	}
	return out, nil
}

// lessonCompletion 课时完成判定：有活动时以活动全部完成为准，否则以进度达到 100 为准
func lessonCompletion(hasActivities, allActivitiesDone bool, progress float64) bool {
	if hasActivities {
		return allActivitiesDone
	}
	return progress >= 100
}

func (s *ProgressService) activitiesDone(tx *gorm.DB, userID string, lessonID uint) (has bool, done bool, err error) {
	activities, err := s.CourseRepo.WithTx(tx).ListActivitiesByLesson(lessonID)
	if err != nil || len(activities) == 0 {
		return false, false, err
	}
	ids := make([]uint, len(activities))
	for i, a := range activities {
		ids[i] = a.ID
	}
	rows, err := s.ProgressRepo.WithTx(tx).ListActivityProgress(userID, ids)
	if err != nil {
		return true, false, err
	}
	completed := 0
	for _, r := range rows {
		if r.IsCompleted {
			completed++
		}
	}
	return true, completed == len(activities), nil
}

// unlockNext 解锁规则：课时完成后解锁排序中的下一课时
func (s *ProgressService) unlockNext(ctx context.Context, tx *gorm.DB, sorted []model.Lesson, userID string, lessonID uint) (*uint, error) {
	next, ok := NextLesson(sorted, lessonID)
	if !ok {
		return nil, nil
	}
	progressRepo := s.ProgressRepo.WithTx(tx)
	existing, found, err := progressRepo.LockLessonProgress(userID, next.ID)
	if err != nil {
		return nil, err
	}
	if found && !existing.IsLocked {
		return nil, nil
	}
	if err := progressRepo.UnlockLesson(userID, next.ID); err != nil {
		return nil, err
	}
	monitoring.LessonsUnlocked.Inc()
	logger.FromContext(ctx).Info("lesson unlocked",
		zap.String("user_id", userID),
		zap.Uint("completed_lesson_id", lessonID),
		zap.Uint("unlocked_lesson_id", next.ID),
	)
	id := next.ID
	return &id, nil
}

// UpdateLessonProgress 写入课时进度；完成状态与进度只增不减，完成时解锁下一课时
func (s *ProgressService) UpdateLessonProgress(ctx context.Context, userID string, lessonID uint, progress float64) (*LessonProgressResult, error) {
	ctx, span := tracing.StartSpan(ctx, "ProgressService.UpdateLessonProgress", attribute.Int64("lesson.id", int64(lessonID)))
	var err error
	defer func() { tracing.End(span, err) }()

	if err = validateProgress(progress); err != nil {
		return nil, err
	}

	lesson, err := s.CourseRepo.FindLesson(lessonID)
	if err != nil {
		err = notFoundAs(err, util.ErrLessonNotFound)
		return nil, err
	}
	sorted, err := s.sortedLessons(s.CourseRepo, lesson.CourseID)
	if err != nil {
		return nil, err
	}

	result := &LessonProgressResult{}
	err = s.ProgressRepo.DB.Transaction(func(tx *gorm.DB) error {
		progressRepo := s.ProgressRepo.WithTx(tx)
		row, found, err := progressRepo.LockLessonProgress(userID, lessonID)
		if err != nil {
			return err
		}
		if !IsFirstLesson(sorted, lessonID) && (!found || row.IsLocked) {
			return util.ErrLessonLocked
		}

		hasActivities, allDone, err := s.activitiesDone(tx, userID, lessonID)
		if err != nil {
			return err
		}

		if progress > row.Progress {
			row.Progress = progress
		}
		row.IsCompleted = row.IsCompleted || lessonCompletion(hasActivities, allDone, row.Progress)
		if row.IsCompleted {
			row.Progress = 100
		}
		row.IsLocked = false
		row.IsNew = row.Progress < 1
		if err := progressRepo.SaveLessonProgress(&row); err != nil {
			return err
		}

		if row.IsCompleted {
			unlocked, err := s.unlockNext(ctx, tx, sorted, userID, lessonID)
			if err != nil {
				return err
			}
			result.UnlockedLessonID = unlocked
		}

		result.Lesson = toView(*lesson, positionOf(sorted, lessonID), &row)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Debug("lesson progress updated",
		zap.String("user_id", userID),
		zap.Uint("lesson_id", lessonID),
		zap.Float64("progress", result.Lesson.Progress),
		zap.Bool("completed", result.Lesson.IsCompleted),
		zap.Bool("has_video", lesson.HasVideo()),
	)
	return result, nil
}

func positionOf(sorted []model.Lesson, lessonID uint) int {
	for i, l := range sorted {
		if l.ID == lessonID {
			return i + 1
		}
	}
	return 0
}

// UpdateActivityProgress 活动进度达到 100 时标记完成（之后不再回退），不改动 finalGrade
func (s *ProgressService) UpdateActivityProgress(ctx context.Context, userID string, activityID uint, progress float64) (*ActivityProgressResult, error) {
	ctx, span := tracing.StartSpan(ctx, "ProgressService.UpdateActivityProgress", attribute.Int64("activity.id", int64(activityID)))
	var err error
	defer func() { tracing.End(span, err) }()

	if err = validateProgress(progress); err != nil {
		return nil, err
	}

	activity, err := s.CourseRepo.FindActivity(activityID)
	if err != nil {
		err = notFoundAs(err, util.ErrActivityNotFound)
		return nil, err
	}

	result := &ActivityProgressResult{ActivityID: activityID}
	err = s.ProgressRepo.DB.Transaction(func(tx *gorm.DB) error {
		progressRepo := s.ProgressRepo.WithTx(tx)
		row, _, err := progressRepo.LockActivityProgress(userID, activityID)
		if err != nil {
			return err
		}
		if progress > row.Progress {
			row.Progress = progress
		}
		row.IsCompleted = row.IsCompleted || progress == 100
		if err := progressRepo.SaveActivityProgress(&row); err != nil {
			return err
		}
		result.Progress = row.Progress
		result.IsCompleted = row.IsCompleted

		completed, unlocked, err := s.reevaluateLesson(ctx, tx, userID, activity.LessonID)
		if err != nil {
			return err
		}
		result.LessonCompleted = completed
		result.UnlockedLessonID = unlocked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// reevaluateLesson 活动状态变化后重新判定所属课时；锁定中的课时不处理
func (s *ProgressService) reevaluateLesson(ctx context.Context, tx *gorm.DB, userID string, lessonID uint) (bool, *uint, error) {
	lesson, err := s.CourseRepo.WithTx(tx).FindLesson(lessonID)
	if err != nil {
		return false, nil, err
	}
	sorted, err := s.sortedLessons(s.CourseRepo.WithTx(tx), lesson.CourseID)
	if err != nil {
		return false, nil, err
	}

	progressRepo := s.ProgressRepo.WithTx(tx)
	row, found, err := progressRepo.LockLessonProgress(userID, lessonID)
	if err != nil {
		return false, nil, err
	}
	if !IsFirstLesson(sorted, lessonID) && (!found || row.IsLocked) {
		return false, nil, nil
	}
	if row.IsCompleted {
		return true, nil, nil
	}

	hasActivities, allDone, err := s.activitiesDone(tx, userID, lessonID)
	if err != nil || !hasActivities || !allDone {
		return false, nil, err
	}

	row.IsCompleted = true
	row.Progress = 100
	row.IsLocked = false
	row.IsNew = false
	if err := progressRepo.SaveLessonProgress(&row); err != nil {
		return false, nil, err
	}
	unlocked, err := s.unlockNext(ctx, tx, sorted, userID, lessonID)
	return true, unlocked, err
}

// ReevaluateLesson 供提交流程在事务外调用
func (s *ProgressService) ReevaluateLesson(ctx context.Context, userID string, lessonID uint) (*uint, error) {
	var unlocked *uint
	err := s.ProgressRepo.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		_, unlocked, err = s.reevaluateLesson(ctx, tx, userID, lessonID)
		return err
	})
	return unlocked, err
}

// UnlockLesson 显式解锁：当前课时进度 100 且活动全部完成，目标须是排序中的下一课时
func (s *ProgressService) UnlockLesson(ctx context.Context, userID string, lessonID, currentLessonID uint) error {
	ctx, span := tracing.StartSpan(ctx, "ProgressService.UnlockLesson")
	var err error
	defer func() { tracing.End(span, err) }()

	current, err := s.CourseRepo.FindLesson(currentLessonID)
	if err != nil {
		err = notFoundAs(err, util.ErrLessonNotFound)
		return err
	}
	if _, err = s.CourseRepo.FindLesson(lessonID); err != nil {
		err = notFoundAs(err, util.ErrLessonNotFound)
		return err
	}
	sorted, err := s.sortedLessons(s.CourseRepo, current.CourseID)
	if err != nil {
		return err
	}

	err = s.ProgressRepo.DB.Transaction(func(tx *gorm.DB) error {
		row, found, err := s.ProgressRepo.WithTx(tx).LockLessonProgress(userID, currentLessonID)
		if err != nil {
			return err
		}
		if !found || row.Progress < 100 {
			return util.ErrLessonNotCompleted
		}
		hasActivities, allDone, err := s.activitiesDone(tx, userID, currentLessonID)
		if err != nil {
			return err
		}
		if hasActivities && !allDone {
			return util.ErrActivitiesPending
		}
		next, ok := NextLesson(sorted, currentLessonID)
		if !ok || next.ID != lessonID {
			return util.ErrNotNextLesson
		}
		_, err = s.unlockNext(ctx, tx, sorted, userID, currentLessonID)
		return err
	})
	return err
}
