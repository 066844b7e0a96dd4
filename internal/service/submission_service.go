package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strconv"
	"time"

	"artiefy_backend/internal/config"
	"artiefy_backend/internal/model"
	"artiefy_backend/internal/repository"
	"artiefy_backend/internal/util"
	"artiefy_backend/pkg/logger"
	"artiefy_backend/pkg/monitoring"
	"artiefy_backend/pkg/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	StatusPending  = "pending"
	StatusReviewed = "reviewed"
)

// FileInfo 学生上传文件后提交的元数据
type FileInfo struct {
	FileName    string `json:"fileName" validate:"required,max=255"`
	FileURL     string `json:"fileUrl" validate:"required"`
	DocumentKey string `json:"documentKey"`
	UploadDate  string `json:"uploadDate"`
	Status      string `json:"status" validate:"omitempty,oneof=pending reviewed"`
}

// URLSubmission 以链接形式提交
type URLSubmission struct {
	URL        string `json:"url" validate:"required,url"`
	Type       string `json:"type"`
	UploadDate string `json:"uploadDate"`
	Status     string `json:"status" validate:"omitempty,oneof=pending reviewed"`
}

// SubmissionResult 保存后的 KV 键与最新活动状态
type SubmissionResult struct {
	SubmissionKey    string                  `json:"submissionKey"`
	Payload          repository.Payload      `json:"payload"`
	Progress         *ActivityProgressResult `json:"progress"`
	UnlockedLessonID *uint                   `json:"unlockedLessonId,omitempty"`
}

type SubmissionService struct {
	CourseRepo   *repository.CourseRepository
	ProgressRepo *repository.ProgressRepository
	Store        *repository.SubmissionStore
	Storage      *StorageService
	Progress     *ProgressService
	Grading      func() config.GradingConfig
}

func NewSubmissionService(
	courseRepo *repository.CourseRepository,
	progressRepo *repository.ProgressRepository,
	store *repository.SubmissionStore,
	storage *StorageService,
	progress *ProgressService,
	grading func() config.GradingConfig,
) *SubmissionService {
	return &SubmissionService{
		CourseRepo:   courseRepo,
		ProgressRepo: progressRepo,
		Store:        store,
		Storage:      storage,
		Progress:     progress,
		Grading:      grading,
	}
}

func nowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func uintString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func (s *SubmissionService) ttlFor(kind repository.SubmissionKind) time.Duration {
	switch kind {
	case repository.KindSubmission, repository.KindURLSubmission:
		return s.Grading().SubmissionTTL()
	}
	return 0
}

// SaveFileSubmission 保存文件提交，状态固定为 pending
func (s *SubmissionService) SaveFileSubmission(ctx context.Context, userID string, activityID uint, info FileInfo) (*SubmissionResult, error) {
	if err := util.Validate.Struct(info); err != nil {
		return nil, err
	}
	if info.UploadDate == "" {
		info.UploadDate = nowISO()
	}
	payload := repository.Payload{
		"activityId":  activityID,
		"userId":      userID,
		"fileName":    info.FileName,
		"fileUrl":     info.FileURL,
		"documentKey": info.DocumentKey,
		"uploadDate":  info.UploadDate,
		"status":      StatusPending,
		"submittedAt": nowISO(),
	}
	return s.save(ctx, userID, activityID, repository.KindSubmission, payload)
}

// SaveURLSubmission 保存链接提交，初始 grade 为 0、feedback 为空
func (s *SubmissionService) SaveURLSubmission(ctx context.Context, userID string, activityID uint, sub URLSubmission) (*SubmissionResult, error) {
	if err := util.Validate.Struct(sub); err != nil {
		return nil, err
	}
	if sub.Type == "" {
		sub.Type = "drive"
	}
	if sub.UploadDate == "" {
		sub.UploadDate = nowISO()
	}
	payload := repository.Payload{
		"activityId":  activityID,
		"userId":      userID,
		"url":         sub.URL,
		"type":        sub.Type,
		"uploadDate":  sub.UploadDate,
		"status":      StatusPending,
		"grade":       0,
		"feedback":    nil,
		"submittedAt": nowISO(),
	}
	return s.save(ctx, userID, activityID, repository.KindURLSubmission, payload)
}

// SaveAnswers 保存作答内容
func (s *SubmissionService) SaveAnswers(ctx context.Context, userID string, activityID uint, answers map[string]interface{}) (*SubmissionResult, error) {
	if len(answers) == 0 {
		return nil, util.ErrBadRequest("answers must not be empty")
	}
	payload := repository.Payload{
		"activityId":  activityID,
		"userId":      userID,
		"answers":     answers,
		"status":      StatusPending,
		"submittedAt": nowISO(),
	}
	return s.save(ctx, userID, activityID, repository.KindAnswers, payload)
}

// UploadDocument 上传作业文档到对象存储并登记 document 记录
func (s *SubmissionService) UploadDocument(ctx context.Context, userID string, activityID uint, file *multipart.FileHeader) (*SubmissionResult, error) {
	if file.Size > util.MaxDocumentSize {
		return nil, util.ErrBadRequest("file too large")
	}
	if _, err := s.CourseRepo.FindActivity(activityID); err != nil {
		return nil, notFoundAs(err, util.ErrActivityNotFound)
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	mimeType, err := util.SniffDocumentType(src, util.AllowedDocumentTypes)
	if err != nil {
		return nil, util.ErrBadRequest(err.Error())
	}

	ext := util.DocumentExt(file.Filename)
	objectKey := "documents/activity-" + uintString(activityID) + "/" + userID + "/" + uuid.NewString() + ext
	fileURL, err := s.Storage.Upload(ctx, objectKey, src, file.Size, mimeType)
	if err != nil {
		return nil, err
	}

	payload := repository.Payload{
		"activityId":  activityID,
		"userId":      userID,
		"fileName":    file.Filename,
		"fileUrl":     fileURL,
		"documentKey": objectKey,
		"contentType": mimeType,
		"size":        file.Size,
		"uploadDate":  nowISO(),
		"status":      StatusPending,
	}
	result, err := s.save(ctx, userID, activityID, repository.KindDocument, payload)
	if err != nil {
		// KV 写失败时清理已上传的对象
		if delErr := s.Storage.Delete(ctx, objectKey); delErr != nil {
			logger.FromContext(ctx).Warn("failed to remove orphaned document", zap.String("key", objectKey), zap.Error(delErr))
		}
		return nil, err
	}
	return result, nil
}

// save 先写 KV，再更新关系库中的活动进度（100、完成、尝试次数 +1、待评审），finalGrade 不动
func (s *SubmissionService) save(ctx context.Context, userID string, activityID uint, kind repository.SubmissionKind, payload repository.Payload) (*SubmissionResult, error) {
	ctx, span := tracing.StartSpan(ctx, "SubmissionService.save",
		attribute.Int64("activity.id", int64(activityID)),
		attribute.String("submission.kind", string(kind)),
	)
	var err error
	defer func() { tracing.End(span, err) }()

	activity, err := s.CourseRepo.FindActivity(activityID)
	if err != nil {
		err = notFoundAs(err, util.ErrActivityNotFound)
		return nil, err
	}

	key := repository.SubmissionKey{ActivityID: activityID, UserID: userID, Kind: kind}.String()
	if err = s.Store.Put(ctx, key, payload, s.ttlFor(kind)); err != nil {
		return nil, err
	}
	monitoring.SubmissionsSaved.WithLabelValues(string(kind)).Inc()

	result := &SubmissionResult{SubmissionKey: key, Payload: payload}
	progress, err := s.recordAttempt(ctx, userID, activity)
	if err != nil {
		return nil, err
	}
	result.Progress = progress
	result.UnlockedLessonID = progress.UnlockedLessonID

	logger.FromContext(ctx).Info("submission saved",
		zap.String("user_id", userID),
		zap.Uint("activity_id", activityID),
		zap.String("key", key),
	)
	return result, nil
}

func (s *SubmissionService) recordAttempt(ctx context.Context, userID string, activity *model.Activity) (*ActivityProgressResult, error) {
	result := &ActivityProgressResult{ActivityID: activity.ID}
	err := s.ProgressRepo.DB.Transaction(func(tx *gorm.DB) error {
		progressRepo := s.ProgressRepo.WithTx(tx)
		row, _, err := progressRepo.LockActivityProgress(userID, activity.ID)
		if err != nil {
			return err
		}
		row.Progress = 100
		row.IsCompleted = true
		row.AttemptCount++
		row.Revisada = false
		if err := progressRepo.SaveActivityProgress(&row); err != nil {
			return err
		}
		result.Progress = row.Progress
		result.IsCompleted = row.IsCompleted

		completed, unlocked, err := s.Progress.reevaluateLesson(ctx, tx, userID, activity.LessonID)
		if err != nil {
			return err
		}
		result.LessonCompleted = completed
		result.UnlockedLessonID = unlocked
		return nil
	})
	return result, err
}

// GetSubmission 读取某学生某活动的提交
func (s *SubmissionService) GetSubmission(ctx context.Context, activityID uint, userID string, kind repository.SubmissionKind) (repository.Payload, error) {
	if !kind.Valid() {
		return nil, util.ErrBadRequest("invalid submission kind")
	}
	key := repository.SubmissionKey{ActivityID: activityID, UserID: userID, Kind: kind}.String()
	payload, err := s.Store.Get(ctx, key)
	if errors.Is(err, repository.ErrPayloadNotFound) {
		return nil, util.ErrSubmissionNotFound
	}
	return payload, err
}
