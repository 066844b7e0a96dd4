package service

import (
	"testing"

	"artiefy_backend/internal/config"
	"artiefy_backend/internal/repository"
	"artiefy_backend/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"gorm.io/gorm"
)

// services 测试用的完整服务集合，共享一个内存库与一个 miniredis
type services struct {
	db          *gorm.DB
	mr          *miniredis.Miniredis
	grading     config.GradingConfig
	courses     *repository.CourseRepository
	progressRep *repository.ProgressRepository
	store       *repository.SubmissionStore

	progress    *ProgressService
	submissions *SubmissionService
	reviews     *ReviewService
	grades      *GradeService
	parametros  *ParametroService
	lessons     *LessonService
	questions   *QuestionService
	certs       *CertificateService
}

func newServices(t *testing.T) *services {
	t.Helper()

	db := testutil.DB(t)
	rdb, mr := testutil.Redis(t)

	s := &services{
		db: db,
		mr: mr,
		grading: config.GradingConfig{
			MaxGrade:           5,
			PassingGrade:       3,
			MaxWeight:          100,
			SubmissionTTLHours: 720,
		},
	}
	grading := func() config.GradingConfig { return s.grading }

	s.courses = repository.NewCourseRepository(db)
	s.progressRep = repository.NewProgressRepository(db)
	s.store = repository.NewSubmissionStore(rdb)
	parametroRepo := repository.NewParametroRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	userRepo := repository.NewUserRepository(db)
	storage := NewStorageService(&config.Config{Storage: config.StorageConfig{Type: "local", LocalPath: t.TempDir()}})

	s.progress = NewProgressService(s.courses, s.progressRep)
	s.grades = NewGradeService(s.courses, s.progressRep, parametroRepo, gradeRepo)
	s.submissions = NewSubmissionService(s.courses, s.progressRep, s.store, storage, s.progress, grading)
	s.reviews = NewReviewService(s.courses, s.progressRep, s.store, storage, s.grades, grading)
	s.parametros = NewParametroService(s.courses, parametroRepo, grading)
	s.lessons = NewLessonService(s.courses)
	s.questions = NewQuestionService(s.courses, repository.NewQuestionStore(rdb))
	s.certs = NewCertificateService(s.courses, s.progressRep, gradeRepo, userRepo, grading)
	return s
}
