package service

import (
	"context"
	"testing"

	"artiefy_backend/internal/testutil"
	"artiefy_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialUnlock(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	course := testutil.SeedCourse(t, s.db, "Go")
	// 按乱序插入，顺序由标题决定
	seeded := testutil.SeedLessons(t, s.db, course.ID, "Sesión 2: Clase 1", "Sesión 1: Clase 2", "Sesión 1: Clase 1")
	s21, s12, s11 := seeded[0], seeded[1], seeded[2]

	cp, err := s.progress.EnrollInCourse(ctx, "u1", course.ID)
	require.NoError(t, err)
	require.Len(t, cp.Lessons, 3)
	assert.Equal(t, []uint{s11.ID, s12.ID, s21.ID}, []uint{cp.Lessons[0].LessonID, cp.Lessons[1].LessonID, cp.Lessons[2].LessonID})
	assert.False(t, cp.Lessons[0].IsLocked)
	assert.True(t, cp.Lessons[1].IsLocked)
	assert.True(t, cp.Lessons[2].IsLocked)

	_, err = s.progress.UpdateLessonProgress(ctx, "u1", s12.ID, 10)
	assert.ErrorIs(t, err, util.ErrLessonLocked)

	res, err := s.progress.UpdateLessonProgress(ctx, "u1", s11.ID, 50)
	require.NoError(t, err)
	assert.False(t, res.Lesson.IsCompleted)
	assert.False(t, res.Lesson.IsNew)
	assert.Nil(t, res.UnlockedLessonID)

	res, err = s.progress.UpdateLessonProgress(ctx, "u1", s11.ID, 100)
	require.NoError(t, err)
	assert.True(t, res.Lesson.IsCompleted)
	require.NotNil(t, res.UnlockedLessonID)
	assert.Equal(t, s12.ID, *res.UnlockedLessonID)

	// 进度只增不减
	res, err = s.progress.UpdateLessonProgress(ctx, "u1", s11.ID, 30)
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.Lesson.Progress)
	assert.True(t, res.Lesson.IsCompleted)
	assert.Nil(t, res.UnlockedLessonID)

	res, err = s.progress.UpdateLessonProgress(ctx, "u1", s12.ID, 100)
	require.NoError(t, err)
	require.NotNil(t, res.UnlockedLessonID)
	assert.Equal(t, s21.ID, *res.UnlockedLessonID)

	res, err = s.progress.UpdateLessonProgress(ctx, "u1", s21.ID, 100)
	require.NoError(t, err)
	assert.True(t, res.Lesson.IsCompleted)
	assert.Nil(t, res.UnlockedLessonID)

	cp, err = s.progress.GetCourseProgress(ctx, "u1", course.ID)
	require.NoError(t, err)
	for _, l := range cp.Lessons {
		assert.True(t, l.IsCompleted, l.Title)
		assert.False(t, l.IsLocked, l.Title)
	}
}

func TestFirstLessonAccessibleWithoutRows(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	course := testutil.SeedCourse(t, s.db, "Go")
	lessons := testutil.SeedLessons(t, s.db, course.ID, "Clase 1", "Clase 2")

	cp, err := s.progress.GetCourseProgress(ctx, "u1", course.ID)
	require.NoError(t, err)
	assert.False(t, cp.Lessons[0].IsLocked)
	assert.True(t, cp.Lessons[1].IsLocked)
	assert.Zero(t, cp.Lessons[1].Progress)

	res, err := s.progress.UpdateLessonProgress(ctx, "u1", lessons[0].ID, 100)
	require.NoError(t, err)
	require.NotNil(t, res.UnlockedLessonID)
	assert.Equal(t, lessons[1].ID, *res.UnlockedLessonID)
}

func TestUpdateLessonProgressValidation(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	course := testutil.SeedCourse(t, s.db, "Go")
	lessons := testutil.SeedLessons(t, s.db, course.ID, "Clase 1")

	for _, p := range []float64{-1, 100.5, 250} {
		_, err := s.progress.UpdateLessonProgress(ctx, "u1", lessons[0].ID, p)
		assert.ErrorIs(t, err, util.ErrInvalidProgress, "progress %v", p)
	}

	_, err := s.progress.UpdateLessonProgress(ctx, "u1", 9999, 10)
	assert.ErrorIs(t, err, util.ErrLessonNotFound)
}

func TestActivityCompletionOnlyAt100(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	course := testutil.SeedCourse(t, s.db, "Go")
	lessons := testutil.SeedLessons(t, s.db, course.ID, "Clase 1", "Clase 2")
	a1 := testutil.SeedActivity(t, s.db, lessons[0].ID, nil, 0)
	a2 := testutil.SeedActivity(t, s.db, lessons[0].ID, nil, 0)

	_, err := s.progress.EnrollInCourse(ctx, "u1", course.ID)
	require.NoError(t, err)

	res, err := s.progress.UpdateActivityProgress(ctx, "u1", a1.ID, 99)
	require.NoError(t, err)
	assert.False(t, res.IsCompleted)
	assert.False(t, res.LessonCompleted)

	// 有活动的课时不以进度判定完成
	lp, err := s.progress.UpdateLessonProgress(ctx, "u1", lessons[0].ID, 100)
	require.NoError(t, err)
	assert.False(t, lp.Lesson.IsCompleted)
	assert.Nil(t, lp.UnlockedLessonID)

	res, err = s.progress.UpdateActivityProgress(ctx, "u1", a1.ID, 100)
	require.NoError(t, err)
	assert.True(t, res.IsCompleted)
	assert.False(t, res.LessonCompleted)

	// 完成状态保持
	res, err = s.progress.UpdateActivityProgress(ctx, "u1", a1.ID, 20)
	require.NoError(t, err)
	assert.True(t, res.IsCompleted)
	assert.Equal(t, 100.0, res.Progress)

	res, err = s.progress.UpdateActivityProgress(ctx, "u1", a2.ID, 100)
	require.NoError(t, err)
	assert.True(t, res.LessonCompleted)
	require.NotNil(t, res.UnlockedLessonID)
	assert.Equal(t, lessons[1].ID, *res.UnlockedLessonID)

	row, err := s.progressRep.FindActivityProgress("u1", a2.ID)
	require.NoError(t, err)
	assert.Nil(t, row.FinalGrade)
}

func TestUnlockLessonExplicit(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	course := testutil.SeedCourse(t, s.db, "Go")
	lessons := testutil.SeedLessons(t, s.db, course.ID, "Clase 1", "Clase 2", "Clase 3")
	activity := testutil.SeedActivity(t, s.db, lessons[0].ID, nil, 0)

	_, err := s.progress.EnrollInCourse(ctx, "u1", course.ID)
	require.NoError(t, err)

	err = s.progress.UnlockLesson(ctx, "u1", lessons[1].ID, lessons[0].ID)
	assert.ErrorIs(t, err, util.ErrLessonNotCompleted)

	_, err = s.progress.UpdateLessonProgress(ctx, "u1", lessons[0].ID, 100)
	require.NoError(t, err)
	err = s.progress.UnlockLesson(ctx, "u1", lessons[1].ID, lessons[0].ID)
	assert.ErrorIs(t, err, util.ErrActivitiesPending)

	_, err = s.progress.UpdateActivityProgress(ctx, "u1", activity.ID, 100)
	require.NoError(t, err)

	err = s.progress.UnlockLesson(ctx, "u1", lessons[2].ID, lessons[0].ID)
	assert.ErrorIs(t, err, util.ErrNotNextLesson)

	require.NoError(t, s.progress.UnlockLesson(ctx, "u1", lessons[1].ID, lessons[0].ID))
	cp, err := s.progress.GetCourseProgress(ctx, "u1", course.ID)
	require.NoError(t, err)
	assert.False(t, cp.Lessons[1].IsLocked)
	assert.True(t, cp.Lessons[2].IsLocked)
}
