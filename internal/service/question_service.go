package service

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"artiefy_backend/internal/repository"
	"artiefy_backend/internal/util"
	"artiefy_backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QuestionBudget 计分题库每个活动共享的总分
const QuestionBudget = 100.0

type WeightBreakdown struct {
	OpcionMultiple float64 `json:"opcionMultiple"`
	VerdaderoFalso float64 `json:"verdaderoFalso"`
	Completar      float64 `json:"completar"`
}

type WeightSummary struct {
	Usado      float64         `json:"usado"`
	Disponible float64         `json:"disponible"`
	Resumen    WeightBreakdown `json:"resumen"`
}

type QuestionService struct {
	CourseRepo *repository.CourseRepository
	Store      *repository.QuestionStore
}

func NewQuestionService(courseRepo *repository.CourseRepository, store *repository.QuestionStore) *QuestionService {
	return &QuestionService{CourseRepo: courseRepo, Store: store}
}

// questionWeight 取 pesoPregunta，缺省时取 porcentaje；兼容数字与数字字符串
func questionWeight(q repository.Question) float64 {
	for _, field := range []string{"pesoPregunta", "porcentaje"} {
		switch v := q[field].(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f
			}
		}
	}
	return 0
}

// checkWeight 分值不能为负，也不能是 NaN/Inf
func checkWeight(q repository.Question) error {
	w := questionWeight(q)
	if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
		return util.ErrBadRequest("question weight must be a non-negative number")
	}
	return nil
}

func sumWeights(qs []repository.Question) float64 {
	var total float64
	for _, q := range qs {
		total += questionWeight(q)
	}
	return total
}

func isWeighted(bank repository.QuestionBank) bool {
	for _, b := range repository.WeightedBanks {
		if b == bank {
			return true
		}
	}
	return false
}

func (s *QuestionService) check(activityID uint, bank repository.QuestionBank) error {
	if !bank.Valid() {
		return util.ErrBadRequest("invalid question bank")
	}
	if _, err := s.CourseRepo.FindActivity(activityID); err != nil {
		return notFoundAs(err, util.ErrActivityNotFound)
	}
	return nil
}

// withinBudget next 为目标题库写入后的内容
func withinBudget(bank repository.QuestionBank, next []repository.Question, weighted map[repository.QuestionBank][]repository.Question) bool {
	if !isWeighted(bank) {
		return true
	}
	var total float64
	for _, b := range repository.WeightedBanks {
		if b == bank {
			total += sumWeights(next)
		} else {
			total += sumWeights(weighted[b])
		}
	}
	return total <= QuestionBudget
}

func (s *QuestionService) List(ctx context.Context, activityID uint, bank repository.QuestionBank) ([]repository.Question, error) {
	if err := s.check(activityID, bank); err != nil {
		return nil, err
	}
	return s.Store.List(ctx, activityID, bank)
}

// Add 追加题目，id 为空时生成
func (s *QuestionService) Add(ctx context.Context, activityID uint, bank repository.QuestionBank, q repository.Question) (repository.Question, error) {
	if err := s.check(activityID, bank); err != nil {
		return nil, err
	}
	if len(q) == 0 {
		return nil, util.ErrBadRequest("question must not be empty")
	}
	if err := checkWeight(q); err != nil {
		return nil, err
	}
	if q.ID() == "" {
		q["id"] = uuid.NewString()
	}

	err := s.Store.Mutate(ctx, activityID, bank, func(current []repository.Question, weighted map[repository.QuestionBank][]repository.Question) ([]repository.Question, error) {
		for _, existing := range current {
			if existing.ID() == q.ID() {
				return nil, util.ErrConflict("question id already exists")
			}
		}
		next := append(append([]repository.Question(nil), current...), q)
		if !withinBudget(bank, next, weighted) {
			return nil, util.ErrWeightBudgetExceeded
		}
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("question added",
		zap.Uint("activity_id", activityID),
		zap.String("bank", string(bank)),
		zap.String("question_id", q.ID()),
	)
	return q, nil
}

// Update 按 id 整体替换题目
func (s *QuestionService) Update(ctx context.Context, activityID uint, bank repository.QuestionBank, q repository.Question) (repository.Question, error) {
	if err := s.check(activityID, bank); err != nil {
		return nil, err
	}
	if q.ID() == "" {
		return nil, util.ErrBadRequest("question id is required")
	}
	if err := checkWeight(q); err != nil {
		return nil, err
	}

	err := s.Store.Mutate(ctx, activityID, bank, func(current []repository.Question, weighted map[repository.QuestionBank][]repository.Question) ([]repository.Question, error) {
		next := make([]repository.Question, 0, len(current))
		found := false
		for _, existing := range current {
			if existing.ID() == q.ID() {
				next = append(next, q)
				found = true
				continue
			}
			next = append(next, existing)
		}
		if !found {
			return nil, util.ErrQuestionNotFound
		}
		if !withinBudget(bank, next, weighted) {
			return nil, util.ErrWeightBudgetExceeded
		}
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionService) Delete(ctx context.Context, activityID uint, bank repository.QuestionBank, questionID string) error {
	if err := s.check(activityID, bank); err != nil {
		return err
	}
	return s.Store.Mutate(ctx, activityID, bank, func(current []repository.Question, _ map[repository.QuestionBank][]repository.Question) ([]repository.Question, error) {
		next := make([]repository.Question, 0, len(current))
		for _, existing := range current {
			if existing.ID() != questionID {
				next = append(next, existing)
			}
		}
		if len(next) == len(current) {
			return nil, util.ErrQuestionNotFound
		}
		return next, nil
	})
}

// WeightSummary 计分题库已用与剩余分值
func (s *QuestionService) WeightSummary(ctx context.Context, activityID uint) (*WeightSummary, error) {
	if _, err := s.CourseRepo.FindActivity(activityID); err != nil {
		return nil, notFoundAs(err, util.ErrActivityNotFound)
	}
	totals := make(map[repository.QuestionBank]float64, len(repository.WeightedBanks))
	for _, b := range repository.WeightedBanks {
		qs, err := s.Store.List(ctx, activityID, b)
		if err != nil {
			return nil, err
		}
		totals[b] = sumWeights(qs)
	}

	out := &WeightSummary{
		Resumen: WeightBreakdown{
			OpcionMultiple: totals[repository.BankOM],
			VerdaderoFalso: totals[repository.BankVOF],
			Completar:      totals[repository.BankCompletar],
		},
	}
	out.Usado = out.Resumen.OpcionMultiple + out.Resumen.VerdaderoFalso + out.Resumen.Completar
	out.Disponible = QuestionBudget - out.Usado
	if out.Disponible < 0 {
		out.Disponible = 0
	}
	return out, nil
}
