package service

import (
	"context"
	"testing"

	"artiefy_backend/internal/testutil"
	"artiefy_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLessonReorder(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	course := testutil.SeedCourse(t, s.db, "Go")
	lessons := testutil.SeedLessons(t, s.db, course.ID, "Clase 1", "Clase 2", "Clase 3")

	ordered, err := s.lessons.Reorder(ctx, []LessonOrder{
		{ID: lessons[2].ID, OrderIndex: 1},
		{ID: lessons[0].ID, OrderIndex: 2},
		{ID: lessons[1].ID, OrderIndex: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{lessons[2].ID, lessons[0].ID, lessons[1].ID}, ids(ordered))

	// order_index 优先于标题
	listed, err := s.lessons.ListOrdered(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, ids(ordered), ids(listed))

	_, err = s.lessons.Reorder(ctx, nil)
	assert.Error(t, err)

	_, err = s.lessons.Reorder(ctx, []LessonOrder{{ID: 9999, OrderIndex: 1}})
	assert.ErrorIs(t, err, util.ErrLessonNotFound)

	other := testutil.SeedCourse(t, s.db, "SQL")
	foreign := testutil.SeedLessons(t, s.db, other.ID, "Clase 1")
	_, err = s.lessons.Reorder(ctx, []LessonOrder{
		{ID: lessons[0].ID, OrderIndex: 1},
		{ID: foreign[0].ID, OrderIndex: 2},
	})
	assert.Error(t, err)

	_, err = s.lessons.Reorder(ctx, []LessonOrder{
		{ID: lessons[0].ID, OrderIndex: 1},
		{ID: lessons[1].ID, OrderIndex: 1},
	})
	assert.Error(t, err)
}

func TestBackfillOrderIndex(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	course := testutil.SeedCourse(t, s.db, "Go")
	seeded := testutil.SeedLessons(t, s.db, course.ID, "Sesión 2: Clase 1", "Introducción", "Sesión 1: Clase 2", "Sesión 1: Clase 1")

	n, err := s.lessons.BackfillOrderIndex(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	stored, err := s.courses.ListLessons(course.ID)
	require.NoError(t, err)
	byID := make(map[uint]int, len(stored))
	for _, l := range stored {
		byID[l.ID] = l.OrderIndex
	}
	assert.Equal(t, 1, byID[seeded[3].ID])
	assert.Equal(t, 2, byID[seeded[2].ID])
	assert.Equal(t, 3, byID[seeded[0].ID])
	// 无数字的标题排在最后
	assert.Equal(t, 4, byID[seeded[1].ID])

	// 第二次执行不改动
	n, err = s.lessons.BackfillOrderIndex(ctx, course.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	total, err := s.lessons.BackfillAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}
