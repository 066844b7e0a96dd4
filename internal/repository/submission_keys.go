package repository

import (
	"fmt"
	"strconv"
	"strings"
)

// SubmissionKind KV 中提交记录的类别
type SubmissionKind string

const (
	KindAnswers       SubmissionKind = "answers"
	KindSubmission    SubmissionKind = "submission"
	KindFile          SubmissionKind = "file"
	KindDocument      SubmissionKind = "document"
	KindURLSubmission SubmissionKind = "urlsubmission"
)

var submissionKinds = map[SubmissionKind]struct{}{
	KindAnswers:       {},
	KindSubmission:    {},
	KindFile:          {},
	KindDocument:      {},
	KindURLSubmission: {},
}

func (k SubmissionKind) Valid() bool {
	_, ok := submissionKinds[k]
	return ok
}

// SubmissionKey activity:{activityId}:user:{userId}:{kind}
type SubmissionKey struct {
	ActivityID uint
	UserID     string
	Kind       SubmissionKind
}

func (k SubmissionKey) String() string {
	return fmt.Sprintf("activity:%d:user:%s:%s", k.ActivityID, k.UserID, k.Kind)
}

// SubmissionKeyPattern 用于 SCAN 全部提交记录
const SubmissionKeyPattern = "activity:*:user:*:*"

// ParseSubmissionKey 解析并校验 KV 键
func ParseSubmissionKey(raw string) (SubmissionKey, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 5 || parts[0] != "activity" || parts[2] != "user" || parts[3] == "" {
		return SubmissionKey{}, fmt.Errorf("malformed submission key %q", raw)
	}
	id, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil || id == 0 {
		return SubmissionKey{}, fmt.Errorf("malformed activity id in key %q", raw)
	}
	kind := SubmissionKind(parts[4])
	if !kind.Valid() {
		return SubmissionKey{}, fmt.Errorf("unknown submission kind %q", parts[4])
	}
	return SubmissionKey{ActivityID: uint(id), UserID: parts[3], Kind: kind}, nil
}
