package service

import (
	"context"
	"testing"

	"artiefy_backend/internal/model"
	"artiefy_backend/internal/testutil"
	"artiefy_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradeActivity(t *testing.T, s *services, userID string, activityID uint, grade float64) {
	t.Helper()
	g := grade
	require.NoError(t, s.progressRep.SaveActivityProgress(&model.UserActivityProgress{
		UserID:      userID,
		ActivityID:  activityID,
		Progress:    100,
		IsCompleted: true,
		Revisada:    true,
		FinalGrade:  &g,
	}))
}

func completeLessons(t *testing.T, s *services, userID string, lessons ...model.Lesson) {
	t.Helper()
	for _, l := range lessons {
		require.NoError(t, s.progressRep.SaveLessonProgress(&model.UserLessonProgress{
			UserID:      userID,
			LessonID:    l.ID,
			Progress:    100,
			IsCompleted: true,
		}))
	}
}

func TestRecalculateGrades(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	course := testutil.SeedCourse(t, s.db, "Go")
	lessons := testutil.SeedLessons(t, s.db, course.ID, "Clase 1", "Clase 2")
	talleres := testutil.SeedParametro(t, s.db, course.ID, "Talleres", 60)
	examen := testutil.SeedParametro(t, s.db, course.ID, "Examen", 40)
	t1 := testutil.SeedActivity(t, s.db, lessons[0].ID, &talleres.ID, 0)
	t2 := testutil.SeedActivity(t, s.db, lessons[1].ID, &talleres.ID, 0)
	ex := testutil.SeedActivity(t, s.db, lessons[1].ID, &examen.ID, 0)
	_, materias := testutil.SeedProgram(t, s.db, "Programa", course.ID)

	gradeActivity(t, s, "u1", t1.ID, 4)
	gradeActivity(t, s, "u1", t2.ID, 5)

	cg, err := s.grades.RecalculateGrades(ctx, course.ID, "u1")
	require.NoError(t, err)
	assert.False(t, cg.Completed)
	// (4.5*60 + 0*40) / 100
	assert.Equal(t, 2.7, cg.FinalGrade)

	var pgs []model.ParameterGrade
	require.NoError(t, s.db.Where("user_id = ?", "u1").Find(&pgs).Error)
	require.Len(t, pgs, 1)
	assert.Equal(t, talleres.ID, pgs[0].ParametroID)
	assert.Equal(t, 4.5, pgs[0].Grade)

	var mgCount int64
	require.NoError(t, s.db.Model(&model.MateriaGrade{}).Count(&mgCount).Error)
	assert.Zero(t, mgCount)

	gradeActivity(t, s, "u1", ex.ID, 3)
	cg, err = s.grades.RecalculateGrades(ctx, course.ID, "u1")
	require.NoError(t, err)
	assert.True(t, cg.Completed)
	// 4.5*0.6 + 3*0.4
	assert.Equal(t, 3.9, cg.FinalGrade)

	var mg model.MateriaGrade
	require.NoError(t, s.db.Where("materia_id = ? AND user_id = ?", materias[0].ID, "u1").First(&mg).Error)
	assert.Equal(t, 3.9, mg.Grade)

	// 只读查询不落库，结果一致
	view, err := s.grades.GetCourseGrades(ctx, course.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, cg.FinalGrade, view.FinalGrade)

	_, err = s.grades.GetCourseGrades(ctx, 9999, "u1")
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestRecalculateMateriaGradeIgnoresEmptyParametro(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	course := testutil.SeedCourse(t, s.db, "Go")
	lessons := testutil.SeedLessons(t, s.db, course.ID, "Clase 1")
	talleres := testutil.SeedParametro(t, s.db, course.ID, "Talleres", 50)
	testutil.SeedParametro(t, s.db, course.ID, "Proyecto", 50)
	a := testutil.SeedActivity(t, s.db, lessons[0].ID, &talleres.ID, 0)
	_, materias := testutil.SeedProgram(t, s.db, "Programa", course.ID)

	gradeActivity(t, s, "u1", a.ID, 5)

	cg, err := s.grades.RecalculateGrades(ctx, course.ID, "u1")
	require.NoError(t, err)
	assert.True(t, cg.Completed)
	assert.Equal(t, 5.0, cg.FinalGrade)

	var mg model.MateriaGrade
	require.NoError(t, s.db.Where("materia_id = ? AND user_id = ?", materias[0].ID, "u1").First(&mg).Error)
	assert.Equal(t, 5.0, mg.Grade)
}

func TestRecalculateIgnoresUnreviewedGrades(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	course := testutil.SeedCourse(t, s.db, "Go")
	lessons := testutil.SeedLessons(t, s.db, course.ID, "Clase 1")
	p := testutil.SeedParametro(t, s.db, course.ID, "Talleres", 100)
	a := testutil.SeedActivity(t, s.db, lessons[0].ID, &p.ID, 0)

	g := 5.0
	require.NoError(t, s.progressRep.SaveActivityProgress(&model.UserActivityProgress{
		UserID: "u1", ActivityID: a.ID, Progress: 100, IsCompleted: true, FinalGrade: &g,
	}))

	cg, err := s.grades.RecalculateGrades(ctx, course.ID, "u1")
	require.NoError(t, err)
	assert.Zero(t, cg.FinalGrade)
	assert.False(t, cg.Completed)
}

func TestCertificateEligibility(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	c1 := testutil.SeedCourse(t, s.db, "Go")
	c2 := testutil.SeedCourse(t, s.db, "SQL")
	l1 := testutil.SeedLessons(t, s.db, c1.ID, "Clase 1")
	l2 := testutil.SeedLessons(t, s.db, c2.ID, "Clase 1", "Clase 2")
	program, materias := testutil.SeedProgram(t, s.db, "Backend", c1.ID, c2.ID)
	require.NoError(t, s.db.Create(&model.User{ID: "u1", Name: "Ana", Role: model.Student}).Error)

	elig, err := s.certs.CheckEligibility(ctx, "u1", program.ID)
	require.NoError(t, err)
	assert.False(t, elig.Eligible)
	require.Len(t, elig.Materias, 2)
	assert.Nil(t, elig.Materias[0].Grade)

	_, err = s.certs.Issue(ctx, "u1", program.ID)
	assert.ErrorIs(t, err, util.ErrNotEligible)

	gradeRepo := s.certs.GradeRepo
	require.NoError(t, gradeRepo.UpsertMateriaGrade(materias[0].ID, "u1", 4))
	require.NoError(t, gradeRepo.UpsertMateriaGrade(materias[1].ID, "u1", 3))
	completeLessons(t, s, "u1", l1...)
	completeLessons(t, s, "u1", l2[0])

	// 第二门课未全部完成
	elig, err = s.certs.CheckEligibility(ctx, "u1", program.ID)
	require.NoError(t, err)
	assert.False(t, elig.Eligible)
	assert.False(t, elig.Materias[1].LessonsCompleted)

	completeLessons(t, s, "u1", l2[1])
	elig, err = s.certs.CheckEligibility(ctx, "u1", program.ID)
	require.NoError(t, err)
	assert.True(t, elig.Eligible)
	assert.Equal(t, 3.5, elig.Average)

	cert, err := s.certs.Issue(ctx, "u1", program.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.5, cert.Grade)
	assert.Equal(t, "Ana", cert.StudentName)

	again, err := s.certs.Issue(ctx, "u1", program.ID)
	require.NoError(t, err)
	assert.Equal(t, cert.ID, again.ID)

	require.NoError(t, gradeRepo.UpsertMateriaGrade(materias[1].ID, "u2", 2.9))
	elig, err = s.certs.CheckEligibility(ctx, "u2", program.ID)
	require.NoError(t, err)
	assert.False(t, elig.Eligible)

	_, err = s.certs.CheckEligibility(ctx, "u1", 9999)
	assert.ErrorIs(t, err, util.ErrProgramNotFound)
}
