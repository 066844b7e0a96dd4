package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"artiefy_backend/internal/config"
	"artiefy_backend/internal/repository"
	"artiefy_backend/internal/util"
	"artiefy_backend/pkg/logger"
	"artiefy_backend/pkg/monitoring"
	"artiefy_backend/pkg/retry"
	"artiefy_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GradeRequest 教师评审请求；activityId 兼容字符串与数字
type GradeRequest struct {
	ActivityID    FlexibleID `json:"activityId" validate:"required"`
	QuestionID    string     `json:"questionId"`
	UserID        string     `json:"userId" validate:"required"`
	Grade         *float64   `json:"grade" validate:"required"`
	SubmissionKey string     `json:"submissionKey" validate:"required"`
	Feedback      *string    `json:"feedback"`
}

type GradeResult struct {
	SubmissionKey string             `json:"submissionKey"`
	Payload       repository.Payload `json:"payload"`
	FinalGrade    float64            `json:"finalGrade"`
	Hash          string             `json:"hash"`
	CourseGrade   *CourseGrade       `json:"courseGrade,omitempty"`
}

type ReviewService struct {
	CourseRepo   *repository.CourseRepository
	ProgressRepo *repository.ProgressRepository
	Store        *repository.SubmissionStore
	Storage      *StorageService
	Grades       *GradeService
	Grading      func() config.GradingConfig
	Retry        retry.Policy
}

func NewReviewService(
	courseRepo *repository.CourseRepository,
	progressRepo *repository.ProgressRepository,
	store *repository.SubmissionStore,
	storage *StorageService,
	grades *GradeService,
	grading func() config.GradingConfig,
) *ReviewService {
	return &ReviewService{
		CourseRepo:   courseRepo,
		ProgressRepo: progressRepo,
		Store:        store,
		Storage:      storage,
		Grades:       grades,
		Grading:      grading,
		Retry:        retry.Default,
	}
}

// GradeSubmission 评审流程：
//  1. 校验成绩范围与 submissionKey 归属
//  2. 合并 grade/status/lastUpdated 等字段
//  3. 写入内容寻址副本，再覆盖旧键（各自最多重试 3 次）
//  4. 单事务更新关系库 finalGrade、revisada 与内容哈希
//  5. 重算课程成绩，失败只记日志
func (s *ReviewService) GradeSubmission(ctx context.Context, educatorID string, req GradeRequest) (*GradeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewService.GradeSubmission", attribute.String("submission.key", req.SubmissionKey))
	var err error
	defer func() { tracing.End(span, err) }()

	if err = util.Validate.Struct(req); err != nil {
		return nil, err
	}
	grading := s.Grading()
	grade := *req.Grade
	if grade < 0 || grade > grading.MaxGrade {
		err = util.ErrInvalidGrade.WithMessage("grade must be between 0 and %v", grading.MaxGrade)
		return nil, err
	}

	activityID := uint(req.ActivityID)
	key, err := repository.ParseSubmissionKey(req.SubmissionKey)
	if err != nil || key.ActivityID != activityID || key.UserID != req.UserID {
		err = util.ErrInvalidSubmissionKey
		return nil, err
	}

	activity, err := s.CourseRepo.FindActivity(activityID)
	if err != nil {
		err = notFoundAs(err, util.ErrActivityNotFound)
		return nil, err
	}

	payload, err := s.Store.Get(ctx, req.SubmissionKey)
	if errors.Is(err, repository.ErrPayloadNotFound) {
		err = util.ErrSubmissionNotFound
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	payload["grade"] = grade
	payload["status"] = StatusReviewed
	payload["lastUpdated"] = nowISO()
	payload["reviewedBy"] = educatorID
	if req.QuestionID != "" {
		payload["questionId"] = req.QuestionID
	}
	if req.Feedback != nil {
		payload["feedback"] = *req.Feedback
	}

	var hash string
	err = s.Retry.Do(ctx, "submission.blob", func() error {
		var err error
		hash, err = s.Store.PutBlob(ctx, payload, grading.SubmissionTTL())
		return err
	})
	if err != nil {
		return nil, err
	}
	err = s.Retry.Do(ctx, "submission.rewrite", func() error {
		return s.Store.Rewrite(ctx, req.SubmissionKey, payload, grading.SubmissionTTL())
	})
	if err != nil {
		return nil, err
	}

	if err = s.applyGrade(req.UserID, activityID, grade, hash); err != nil {
		return nil, err
	}
	monitoring.SubmissionsReviewed.Inc()

	logger.FromContext(ctx).Info("submission graded",
		zap.String("educator_id", educatorID),
		zap.String("user_id", req.UserID),
		zap.Uint("activity_id", activityID),
		zap.Float64("grade", grade),
		zap.String("hash", hash),
	)

	result := &GradeResult{
		SubmissionKey: req.SubmissionKey,
		Payload:       payload,
		FinalGrade:    grade,
		Hash:          hash,
	}

	// 成绩重算失败不影响评审结果
	if courseID, cerr := s.CourseRepo.CourseIDOfActivity(activity.ID); cerr != nil {
		logger.FromContext(ctx).Warn("course lookup for recalculation failed", zap.Uint("activity_id", activity.ID), zap.Error(cerr))
	} else if cg, gerr := s.Grades.RecalculateGrades(ctx, courseID, req.UserID); gerr != nil {
		logger.FromContext(ctx).Warn("grade recalculation failed", zap.Uint("course_id", courseID), zap.Error(gerr))
	} else {
		result.CourseGrade = cg
	}

	return result, nil
}

// applyGrade 关系库一侧的单事务写入
func (s *ReviewService) applyGrade(userID string, activityID uint, grade float64, hash string) error {
	return s.ProgressRepo.Transaction(func(tx *repository.ProgressRepository) error {
		row, _, err := tx.LockActivityProgress(userID, activityID)
		if err != nil {
			return err
		}
		g := grade
		row.FinalGrade = &g
		row.Revisada = true
		row.SubmissionHash = hash
		row.IsCompleted = true
		row.Progress = 100
		return tx.SaveActivityProgress(&row)
	})
}

// ReconcileReviewed 扫描 KV 中已评审的提交，修复关系库中缺失或过期的成绩
func (s *ReviewService) ReconcileReviewed(ctx context.Context, batch int64) (int, error) {
	if batch <= 0 {
		batch = 200
	}
	repaired := 0
	var cursor uint64
	for {
		keys, next, err := s.Store.Scan(ctx, cursor, batch)
		if err != nil {
			return repaired, err
		}
		for _, raw := range keys {
			ok, err := s.reconcileKey(ctx, raw)
			if err != nil {
				logger.FromContext(ctx).Warn("reconcile key failed", zap.String("key", raw), zap.Error(err))
				continue
			}
			if ok {
				repaired++
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if repaired > 0 {
		monitoring.ReconcileRepairs.Add(float64(repaired))
		logger.FromContext(ctx).Info("reconciled reviewed submissions", zap.Int("repaired", repaired))
	}
	return repaired, nil
}

// reviewedAt 评审写入 KV 时记录的 lastUpdated；缺失或无法解析时视为未知
func reviewedAt(p repository.Payload) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, p.String("lastUpdated"))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// reconcileKey 只修复评审晚于关系库最后写入的记录：
// 之后再次提交（revisada=false）或其它类型的更新评审都会让行的 LastUpdated 更晚
func (s *ReviewService) reconcileKey(ctx context.Context, raw string) (bool, error) {
	key, err := repository.ParseSubmissionKey(raw)
	if err != nil {
		return false, nil
	}
	payload, err := s.Store.Get(ctx, raw)
	if errors.Is(err, repository.ErrPayloadNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if payload.String("status") != StatusReviewed {
		return false, nil
	}
	grade, ok := payload.Float("grade")
	if !ok {
		return false, nil
	}
	at, ok := reviewedAt(payload)
	if !ok {
		return false, nil
	}
	hash, _, err := payload.Hash()
	if err != nil {
		return false, err
	}

	row, err := s.ProgressRepo.FindActivityProgress(key.UserID, key.ActivityID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	if err == nil {
		if row.Revisada && row.SubmissionHash == hash {
			return false, nil
		}
		if !at.After(row.LastUpdated) {
			return false, nil
		}
	}
	courseID, err := s.CourseRepo.CourseIDOfActivity(key.ActivityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := s.applyGrade(key.UserID, key.ActivityID, grade, hash); err != nil {
		return false, err
	}
	logger.FromContext(ctx).Info("repaired reviewed submission",
		zap.String("key", raw),
		zap.Float64("grade", grade),
	)
	if _, err := s.Grades.RecalculateGrades(ctx, courseID, key.UserID); err != nil {
		logger.FromContext(ctx).Warn("grade recalculation after repair failed", zap.Uint("course_id", courseID), zap.Error(err))
	}
	return true, nil
}

// DocumentURL 返回学生文档的限时访问链接
func (s *ReviewService) DocumentURL(ctx context.Context, activityID uint, userID string) (string, error) {
	key := repository.SubmissionKey{ActivityID: activityID, UserID: userID, Kind: repository.KindDocument}.String()
	payload, err := s.Store.Get(ctx, key)
	if errors.Is(err, repository.ErrPayloadNotFound) {
		return "", util.ErrSubmissionNotFound
	}
	if err != nil {
		return "", err
	}
	objectKey := payload.String("documentKey")
	if objectKey == "" {
		return "", util.ErrSubmissionNotFound
	}
	return s.Storage.PresignedURL(ctx, objectKey)
}

// FlexibleID JSON 中既可能是数字也可能是字符串
type FlexibleID uint

func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return util.ErrBadRequest("invalid id " + string(data))
	}
	*f = FlexibleID(id)
	return nil
}
