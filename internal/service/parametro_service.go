package service

import (
	"context"
	"errors"
	"sort"

	"artiefy_backend/internal/config"
	"artiefy_backend/internal/model"
	"artiefy_backend/internal/repository"
	"artiefy_backend/internal/util"
	"artiefy_backend/pkg/logger"
	"artiefy_backend/pkg/monitoring"
	"artiefy_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ParametroRequest 创建或更新评分参数；更新时 ID 必填
type ParametroRequest struct {
	ID          uint   `json:"id"`
	CourseID    uint   `json:"courseId" validate:"required"`
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
	Porcentaje  int    `json:"porcentaje" validate:"min=0,max=100"`
}

type ParametroService struct {
	CourseRepo    *repository.CourseRepository
	ParametroRepo *repository.ParametroRepository
	Grading       func() config.GradingConfig
}

func NewParametroService(courseRepo *repository.CourseRepository, parametroRepo *repository.ParametroRepository, grading func() config.GradingConfig) *ParametroService {
	return &ParametroService{
		CourseRepo:    courseRepo,
		ParametroRepo: parametroRepo,
		Grading:       grading,
	}
}

// budgetErr 把仓库层的预算错误映射为对外错误并计数
func budgetErr(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrBudgetExceeded):
		monitoring.ParametroRejections.WithLabelValues(op).Inc()
		return util.ErrWeightBudgetExceeded
	default:
		return notFoundAs(err, util.ErrParametroNotFound)
	}
}

func (s *ParametroService) List(ctx context.Context, courseID uint) ([]model.Parametro, error) {
	if _, err := s.CourseRepo.FindCourse(courseID); err != nil {
		return nil, notFoundAs(err, util.ErrCourseNotFound)
	}
	return s.ParametroRepo.ListByCourse(courseID)
}

func (s *ParametroService) Create(ctx context.Context, req ParametroRequest) (*model.Parametro, error) {
	ctx, span := tracing.StartSpan(ctx, "ParametroService.Create", attribute.Int64("course.id", int64(req.CourseID)))
	var err error
	defer func() { tracing.End(span, err) }()

	if err = util.Validate.Struct(req); err != nil {
		return nil, err
	}
	if _, err = s.CourseRepo.FindCourse(req.CourseID); err != nil {
		err = notFoundAs(err, util.ErrCourseNotFound)
		return nil, err
	}

	max := s.Grading().MaxWeight
	p := &model.Parametro{
		CourseID:    req.CourseID,
		Name:        req.Name,
		Description: req.Description,
		Porcentaje:  req.Porcentaje,
	}
	err = s.ParametroRepo.Transaction(req.CourseID, func(tx *repository.ParametroRepository) error {
		return tx.CreateWithinBudget(p, max)
	})
	if err != nil {
		err = budgetErr("create", err)
		return nil, err
	}

	logger.FromContext(ctx).Info("parametro created",
		zap.Uint("id", p.ID),
		zap.Uint("course_id", p.CourseID),
		zap.Int("porcentaje", p.Porcentaje),
	)
	return p, nil
}

// UpdateBatch 批量更新同一课程的参数：先按最终总和校验，再在一个事务内先降后升逐条条件更新
func (s *ParametroService) UpdateBatch(ctx context.Context, reqs []ParametroRequest) ([]model.Parametro, error) {
	ctx, span := tracing.StartSpan(ctx, "ParametroService.UpdateBatch", attribute.Int("batch.size", len(reqs)))
	var err error
	defer func() { tracing.End(span, err) }()

	if len(reqs) == 0 {
		err = util.ErrBadRequest("no parametros to update")
		return nil, err
	}
	courseID := reqs[0].CourseID
	for _, r := range reqs {
		if err = util.Validate.Struct(r); err != nil {
			return nil, err
		}
		if r.ID == 0 {
			err = util.ErrBadRequest("parametro id is required")
			return nil, err
		}
		if r.CourseID != courseID {
			err = util.ErrBadRequest("all parametros must belong to the same course")
			return nil, err
		}
	}

	existing, err := s.ParametroRepo.ListByCourse(courseID)
	if err != nil {
		return nil, err
	}
	current := make(map[uint]int, len(existing))
	for _, p := range existing {
		current[p.ID] = p.Porcentaje
	}

	max := s.Grading().MaxWeight
	final := make([]model.Parametro, 0, len(existing))
	replaced := make(map[uint]int, len(reqs))
	for _, r := range reqs {
		if _, ok := current[r.ID]; !ok {
			err = util.ErrParametroNotFound
			return nil, err
		}
		replaced[r.ID] = r.Porcentaje
	}
	for _, p := range existing {
		if w, ok := replaced[p.ID]; ok {
			p.Porcentaje = w
		}
		final = append(final, p)
	}
	if !CheckWeightBudget(final, 0, 0, max) {
		monitoring.ParametroRejections.WithLabelValues("update").Inc()
		err = util.ErrWeightBudgetExceeded
		return nil, err
	}

	ordered := append([]ParametroRequest(nil), reqs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Porcentaje-current[ordered[i].ID] < ordered[j].Porcentaje-current[ordered[j].ID]
	})

	err = s.ParametroRepo.Transaction(courseID, func(tx *repository.ParametroRepository) error {
		for _, r := range ordered {
			p := &model.Parametro{
				ID:          r.ID,
				CourseID:    r.CourseID,
				Name:        r.Name,
				Description: r.Description,
				Porcentaje:  r.Porcentaje,
			}
			if err := tx.UpdateWithinBudget(p, max); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		err = budgetErr("update", err)
		return nil, err
	}

	logger.FromContext(ctx).Info("parametros updated", zap.Uint("course_id", courseID), zap.Int("count", len(reqs)))
	return s.ParametroRepo.ListByCourse(courseID)
}

// Delete 删除参数，活动解除绑定
func (s *ParametroService) Delete(ctx context.Context, id uint) error {
	p, err := s.ParametroRepo.FindByID(id)
	if err != nil {
		return notFoundAs(err, util.ErrParametroNotFound)
	}
	err = s.ParametroRepo.Transaction(p.CourseID, func(tx *repository.ParametroRepository) error {
		_, err := tx.Delete(id)
		return err
	})
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Info("parametro deleted", zap.Uint("id", id), zap.Uint("course_id", p.CourseID))
	return nil
}

// DeleteByCourse 删除课程的全部参数，返回删除条数
func (s *ParametroService) DeleteByCourse(ctx context.Context, courseID uint) (int64, error) {
	var deleted int64
	err := s.ParametroRepo.Transaction(courseID, func(tx *repository.ParametroRepository) error {
		ids, err := tx.IDsByCourse(courseID)
		if err != nil {
			return err
		}
		deleted, err = tx.Delete(ids...)
		return err
	})
	if err != nil {
		return 0, notFoundAs(err, util.ErrCourseNotFound)
	}
	logger.FromContext(ctx).Info("course parametros deleted", zap.Uint("course_id", courseID), zap.Int64("deleted", deleted))
	return deleted, nil
}
