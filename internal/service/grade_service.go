package service

import (
	"context"

	"artiefy_backend/internal/model"
	"artiefy_backend/internal/repository"
	"artiefy_backend/internal/util"
	"artiefy_backend/pkg/logger"
	"artiefy_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type GradeService struct {
	CourseRepo    *repository.CourseRepository
	ProgressRepo  *repository.ProgressRepository
	ParametroRepo *repository.ParametroRepository
	GradeRepo     *repository.GradeRepository
}

func NewGradeService(
	courseRepo *repository.CourseRepository,
	progressRepo *repository.ProgressRepository,
	parametroRepo *repository.ParametroRepository,
	gradeRepo *repository.GradeRepository,
) *GradeService {
	return &GradeService{
		CourseRepo:    courseRepo,
		ProgressRepo:  progressRepo,
		ParametroRepo: parametroRepo,
		GradeRepo:     gradeRepo,
	}
}

// load 读取课程参数、活动及该学生已评审的成绩
func (s *GradeService) load(courseID uint, userID string) ([]model.Parametro, []model.Activity, map[uint]float64, error) {
	if _, err := s.CourseRepo.FindCourse(courseID); err != nil {
		return nil, nil, nil, notFoundAs(err, util.ErrCourseNotFound)
	}
	params, err := s.ParametroRepo.ListByCourse(courseID)
	if err != nil {
		return nil, nil, nil, err
	}
	activities, err := s.CourseRepo.ListActivitiesByCourse(courseID)
	if err != nil {
		return nil, nil, nil, err
	}

	ids := make([]uint, len(activities))
	for i, a := range activities {
		ids[i] = a.ID
	}
	rows, err := s.ProgressRepo.ListActivityProgress(userID, ids)
	if err != nil {
		return nil, nil, nil, err
	}
	grades := make(map[uint]float64, len(rows))
	for _, r := range rows {
		if r.Revisada && r.FinalGrade != nil {
			grades[r.ActivityID] = *r.FinalGrade
		}
	}
	return params, activities, grades, nil
}

// GetCourseGrades 只计算，不落库
func (s *GradeService) GetCourseGrades(ctx context.Context, courseID uint, userID string) (*CourseGrade, error) {
	params, activities, grades, err := s.load(courseID, userID)
	if err != nil {
		return nil, err
	}
	cg := ComputeCourseGrade(params, activities, grades)
	return &cg, nil
}

// RecalculateGrades 计算并写入参数成绩；课程全部评完时同步绑定该课程的科目成绩
func (s *GradeService) RecalculateGrades(ctx context.Context, courseID uint, userID string) (*CourseGrade, error) {
	ctx, span := tracing.StartSpan(ctx, "GradeService.RecalculateGrades",
		attribute.Int64("course.id", int64(courseID)),
		attribute.String("user.id", userID),
	)
	var err error
	defer func() { tracing.End(span, err) }()

	params, activities, grades, err := s.load(courseID, userID)
	if err != nil {
		return nil, err
	}
	cg := ComputeCourseGrade(params, activities, grades)

	var materias []model.Materia
	if cg.Completed {
		if materias, err = s.GradeRepo.MateriasByCourse(courseID); err != nil {
			return nil, err
		}
	}

	err = s.GradeRepo.DB.Transaction(func(tx *gorm.DB) error {
		gradeRepo := s.GradeRepo.WithTx(tx)
		for _, pr := range cg.Parameters {
			if pr.Activities == 0 || pr.Graded < pr.Activities {
				continue
			}
			if err := gradeRepo.UpsertParameterGrade(pr.ParametroID, userID, pr.Grade); err != nil {
				return err
			}
		}
		for _, m := range materias {
			if err := gradeRepo.UpsertMateriaGrade(m.ID, userID, cg.FinalGrade); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("course grades recalculated",
		zap.Uint("course_id", courseID),
		zap.String("user_id", userID),
		zap.Float64("final_grade", cg.FinalGrade),
		zap.Bool("completed", cg.Completed),
		zap.Int("materias", len(materias)),
	)
	return &cg, nil
}
