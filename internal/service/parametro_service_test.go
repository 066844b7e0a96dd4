package service

import (
	"context"
	"sync"
	"testing"

	"artiefy_backend/internal/model"
	"artiefy_backend/internal/testutil"
	"artiefy_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParametroServiceCreate(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	course := testutil.SeedCourse(t, s.db, "Go")

	p, err := s.parametros.Create(ctx, ParametroRequest{CourseID: course.ID, Name: "Talleres", Porcentaje: 50})
	require.NoError(t, err)
	assert.NotZero(t, p.ID)

	_, err = s.parametros.Create(ctx, ParametroRequest{CourseID: course.ID, Name: "Examen", Porcentaje: 60})
	assert.ErrorIs(t, err, util.ErrWeightBudgetExceeded)

	_, err = s.parametros.Create(ctx, ParametroRequest{CourseID: course.ID, Name: "Examen", Porcentaje: 101})
	assert.Error(t, err)

	_, err = s.parametros.Create(ctx, ParametroRequest{CourseID: 9999, Name: "x", Porcentaje: 10})
	assert.ErrorIs(t, err, util.ErrCourseNotFound)

	list, err := s.parametros.List(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 50, list[0].Porcentaje)
}

func TestParametroServiceConcurrentCreates(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	course := testutil.SeedCourse(t, s.db, "Go")

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.parametros.Create(ctx, ParametroRequest{CourseID: course.ID, Name: "p", Porcentaje: 30})
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
		} else {
			assert.ErrorIs(t, err, util.ErrWeightBudgetExceeded)
		}
	}
	assert.Equal(t, 3, accepted)

	list, err := s.parametros.List(ctx, course.ID)
	require.NoError(t, err)
	total := 0
	for _, p := range list {
		total += p.Porcentaje
	}
	assert.Equal(t, 90, total)
}

func TestParametroServiceUpdateBatch(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	course := testutil.SeedCourse(t, s.db, "Go")
	p1 := testutil.SeedParametro(t, s.db, course.ID, "Talleres", 60)
	p2 := testutil.SeedParametro(t, s.db, course.ID, "Examen", 40)

	// 交换权重：按顺序逐条执行会中途超限，先降后升则不会
	list, err := s.parametros.UpdateBatch(ctx, []ParametroRequest{
		{ID: p2.ID, CourseID: course.ID, Name: "Examen", Porcentaje: 60},
		{ID: p1.ID, CourseID: course.ID, Name: "Talleres", Porcentaje: 40},
	})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 40, list[0].Porcentaje)
	assert.Equal(t, 60, list[1].Porcentaje)

	_, err = s.parametros.UpdateBatch(ctx, []ParametroRequest{
		{ID: p1.ID, CourseID: course.ID, Name: "Talleres", Porcentaje: 41},
	})
	assert.ErrorIs(t, err, util.ErrWeightBudgetExceeded)

	_, err = s.parametros.UpdateBatch(ctx, nil)
	assert.Error(t, err)

	_, err = s.parametros.UpdateBatch(ctx, []ParametroRequest{
		{ID: 9999, CourseID: course.ID, Name: "x", Porcentaje: 1},
	})
	assert.ErrorIs(t, err, util.ErrParametroNotFound)

	other := testutil.SeedCourse(t, s.db, "Other")
	_, err = s.parametros.UpdateBatch(ctx, []ParametroRequest{
		{ID: p1.ID, CourseID: course.ID, Name: "Talleres", Porcentaje: 10},
		{ID: p2.ID, CourseID: other.ID, Name: "Examen", Porcentaje: 10},
	})
	assert.Error(t, err)
}

func TestParametroServiceDelete(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	course := testutil.SeedCourse(t, s.db, "Go")
	lessons := testutil.SeedLessons(t, s.db, course.ID, "Clase 1")
	p1 := testutil.SeedParametro(t, s.db, course.ID, "Talleres", 60)
	testutil.SeedParametro(t, s.db, course.ID, "Examen", 40)
	activity := testutil.SeedActivity(t, s.db, lessons[0].ID, &p1.ID, 0)

	require.NoError(t, s.parametros.Delete(ctx, p1.ID))
	assert.ErrorIs(t, s.parametros.Delete(ctx, p1.ID), util.ErrParametroNotFound)

	var a model.Activity
	require.NoError(t, s.db.First(&a, activity.ID).Error)
	assert.Nil(t, a.ParametroID)

	_, err := s.parametros.Create(ctx, ParametroRequest{CourseID: course.ID, Name: "Proyecto", Porcentaje: 60})
	require.NoError(t, err)

	deleted, err := s.parametros.DeleteByCourse(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	list, err := s.parametros.List(ctx, course.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
