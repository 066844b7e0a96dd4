package service

import (
	"context"
	"errors"

	"artiefy_backend/internal/config"
	"artiefy_backend/internal/model"
	"artiefy_backend/internal/repository"
	"artiefy_backend/internal/util"
	"artiefy_backend/pkg/logger"
	"artiefy_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MateriaStatus 单个科目的结业判定
type MateriaStatus struct {
	MateriaID        uint     `json:"materiaId"`
	Title            string   `json:"title"`
	Grade            *float64 `json:"grade"`
	Passed           bool     `json:"passed"`
	LessonsCompleted bool     `json:"lessonsCompleted"`
}

type Eligibility struct {
	ProgramID    uint            `json:"programId"`
	Eligible     bool            `json:"eligible"`
	Average      float64         `json:"average"`
	PassingGrade float64         `json:"passingGrade"`
	Materias     []MateriaStatus `json:"materias"`
}

type CertificateService struct {
	CourseRepo   *repository.CourseRepository
	ProgressRepo *repository.ProgressRepository
	GradeRepo    *repository.GradeRepository
	UserRepo     *repository.UserRepository
	Grading      func() config.GradingConfig
}

func NewCertificateService(
	courseRepo *repository.CourseRepository,
	progressRepo *repository.ProgressRepository,
	gradeRepo *repository.GradeRepository,
	userRepo *repository.UserRepository,
	grading func() config.GradingConfig,
) *CertificateService {
	return &CertificateService{
		CourseRepo:   courseRepo,
		ProgressRepo: progressRepo,
		GradeRepo:    gradeRepo,
		UserRepo:     userRepo,
		Grading:      grading,
	}
}

// courseCompleted 课程全部课时均已完成
func (s *CertificateService) courseCompleted(userID string, courseID uint) (bool, error) {
	lessons, err := s.CourseRepo.ListLessons(courseID)
	if err != nil || len(lessons) == 0 {
		return false, err
	}
	ids := make([]uint, len(lessons))
	for i, l := range lessons {
		ids[i] = l.ID
	}
	rows, err := s.ProgressRepo.ListLessonProgress(userID, ids)
	if err != nil {
		return false, err
	}
	done := 0
	for _, r := range rows {
		if r.IsCompleted {
			done++
		}
	}
	return done == len(lessons), nil
}

// CheckEligibility 每个科目成绩达到及格线且绑定课程已全部完成，平均分（两位小数）也须及格
func (s *CertificateService) CheckEligibility(ctx context.Context, userID string, programID uint) (*Eligibility, error) {
	ctx, span := tracing.StartSpan(ctx, "CertificateService.CheckEligibility", attribute.Int64("program.id", int64(programID)))
	var err error
	defer func() { tracing.End(span, err) }()

	if _, err = s.GradeRepo.FindProgram(programID); err != nil {
		err = notFoundAs(err, util.ErrProgramNotFound)
		return nil, err
	}
	materias, err := s.GradeRepo.MateriasByProgram(programID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, len(materias))
	for i, m := range materias {
		ids[i] = m.ID
	}
	grades, err := s.GradeRepo.MateriaGrades(userID, ids)
	if err != nil {
		return nil, err
	}

	passing := s.Grading().PassingGrade
	out := &Eligibility{
		ProgramID:    programID,
		Eligible:     len(materias) > 0,
		PassingGrade: passing,
		Materias:     make([]MateriaStatus, 0, len(materias)),
	}
	var sum float64
	for _, m := range materias {
		st := MateriaStatus{MateriaID: m.ID, Title: m.Title, LessonsCompleted: true}
		if g, ok := grades[m.ID]; ok {
			grade := g
			st.Grade = &grade
			st.Passed = g >= passing
			sum += g
		}
		if m.CourseID != nil {
			if st.LessonsCompleted, err = s.courseCompleted(userID, *m.CourseID); err != nil {
				return nil, err
			}
		}
		if !st.Passed || !st.LessonsCompleted {
			out.Eligible = false
		}
		out.Materias = append(out.Materias, st)
	}
	if len(materias) > 0 {
		out.Average = Round2(sum / float64(len(materias)))
	}
	if out.Average < passing {
		out.Eligible = false
	}
	return out, nil
}

// Issue 已有证书直接返回，否则在满足条件时签发
func (s *CertificateService) Issue(ctx context.Context, userID string, programID uint) (*model.Certificate, error) {
	existing, err := s.GradeRepo.FindCertificate(userID, programID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	elig, err := s.CheckEligibility(ctx, userID, programID)
	if err != nil {
		return nil, err
	}
	if !elig.Eligible {
		return nil, util.ErrNotEligible.WithDetails(elig)
	}

	cert := &model.Certificate{UserID: userID, ProgramaID: programID, Grade: elig.Average}
	if user, err := s.UserRepo.FindByID(userID); err == nil {
		cert.StudentName = user.Name
	}
	if err := s.GradeRepo.CreateCertificate(cert); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("certificate issued",
		zap.String("user_id", userID),
		zap.Uint("program_id", programID),
		zap.Float64("grade", cert.Grade),
	)
	return cert, nil
}
