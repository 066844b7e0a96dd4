package util

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError 携带 HTTP 状态码的业务错误
type AppError struct {
	Status  int         `json:"-"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return e.Message
}

// Is 按 Code 比较，便于 errors.Is 匹配带不同 Details 的同类错误
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails 复制一份并附加细节
func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithMessage 复制一份并替换提示信息
func (e *AppError) WithMessage(format string, args ...interface{}) *AppError {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

func newAppError(status int, code, message string) *AppError {
	return &AppError{Status: status, Code: code, Message: message}
}

func ErrBadRequest(message string) *AppError {
	return newAppError(http.StatusBadRequest, "bad_request", message)
}

func ErrNotFound(message string) *AppError {
	return newAppError(http.StatusNotFound, "not_found", message)
}

func ErrForbidden(message string) *AppError {
	return newAppError(http.StatusForbidden, "forbidden", message)
}

func ErrConflict(message string) *AppError {
	return newAppError(http.StatusConflict, "conflict", message)
}

var (
	ErrUnauthorized = newAppError(http.StatusUnauthorized, "unauthorized", "Unauthorized")

	ErrLessonNotFound       = newAppError(http.StatusNotFound, "lesson_not_found", "lesson not found")
	ErrActivityNotFound     = newAppError(http.StatusNotFound, "activity_not_found", "activity not found")
	ErrCourseNotFound       = newAppError(http.StatusNotFound, "course_not_found", "course not found")
	ErrProgramNotFound      = newAppError(http.StatusNotFound, "program_not_found", "program not found")
	ErrParametroNotFound    = newAppError(http.StatusNotFound, "parametro_not_found", "parametro not found")
	ErrSubmissionNotFound   = newAppError(http.StatusNotFound, "submission_not_found", "submission not found")
	ErrQuestionNotFound     = newAppError(http.StatusNotFound, "question_not_found", "question not found")
	ErrLessonLocked         = newAppError(http.StatusForbidden, "lesson_locked", "lesson is locked")
	ErrNotEligible          = newAppError(http.StatusForbidden, "not_eligible", "requirements for the certificate are not met")
	ErrLessonNotCompleted   = newAppError(http.StatusBadRequest, "lesson_not_completed", "current lesson is not completed")
	ErrActivitiesPending    = newAppError(http.StatusBadRequest, "activities_pending", "current lesson has pending activities")
	ErrNotNextLesson        = newAppError(http.StatusBadRequest, "not_next_lesson", "lesson is not the next one in course order")
	ErrInvalidProgress      = newAppError(http.StatusBadRequest, "invalid_progress", "progress must be between 0 and 100")
	ErrInvalidGrade         = newAppError(http.StatusBadRequest, "invalid_grade", "grade is out of range")
	ErrInvalidSubmissionKey = newAppError(http.StatusBadRequest, "invalid_submission_key", "submission key does not match activity and user")
	ErrWeightBudgetExceeded = newAppError(http.StatusBadRequest, "weight_budget_exceeded", "total porcentaje would exceed the allowed maximum")
)

// AsAppError 解包出 AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
