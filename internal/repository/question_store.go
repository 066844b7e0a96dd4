package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// QuestionBank 活动题库在 KV 中的分类
type QuestionBank string

const (
	BankGeneral    QuestionBank = "questions"
	BankFileUpload QuestionBank = "questionsFilesSubida"
	BankOM         QuestionBank = "questionsOM"
	BankVOF        QuestionBank = "questionsVOF"
	BankCompletar  QuestionBank = "questionsACompletar"
)

// WeightedBanks 共享同一个 100 分预算的题库
var WeightedBanks = []QuestionBank{BankOM, BankVOF, BankCompletar}

func (b QuestionBank) Valid() bool {
	switch b {
	case BankGeneral, BankFileUpload, BankOM, BankVOF, BankCompletar:
		return true
	}
	return false
}

func QuestionKey(activityID uint, bank QuestionBank) string {
	return fmt.Sprintf("activity:%d:%s", activityID, bank)
}

// Question 题目文档，结构由前端决定，只约定 id 与权重字段
type Question map[string]interface{}

func (q Question) ID() string {
	id, _ := q["id"].(string)
	return id
}

const maxWatchRetries = 5

type QuestionStore struct {
	Redis *redis.Client
}

func NewQuestionStore(rdb *redis.Client) *QuestionStore {
	return &QuestionStore{Redis: rdb}
}

func decodeQuestions(raw string) ([]Question, error) {
	var qs []Question
	if err := json.Unmarshal([]byte(raw), &qs); err != nil {
		return nil, err
	}
	return qs, nil
}

func (s *QuestionStore) List(ctx context.Context, activityID uint, bank QuestionBank) ([]Question, error) {
	raw, err := s.Redis.Get(ctx, QuestionKey(activityID, bank)).Result()
	if errors.Is(err, redis.Nil) {
		return []Question{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeQuestions(raw)
}

// Mutate 乐观锁读改写目标题库；fn 同时拿到全部计分题库用于预算校验
func (s *QuestionStore) Mutate(ctx context.Context, activityID uint, bank QuestionBank,
	fn func(current []Question, weighted map[QuestionBank][]Question) ([]Question, error)) error {

	keys := []string{QuestionKey(activityID, bank)}
	for _, b := range WeightedBanks {
		if b != bank {
			keys = append(keys, QuestionKey(activityID, b))
		}
	}

	txf := func(tx *redis.Tx) error {
		loaded := make(map[QuestionBank][]Question, len(WeightedBanks)+1)
		for _, b := range append([]QuestionBank{bank}, WeightedBanks...) {
			if _, done := loaded[b]; done {
				continue
			}
			raw, err := tx.Get(ctx, QuestionKey(activityID, b)).Result()
			switch {
			case errors.Is(err, redis.Nil):
				loaded[b] = []Question{}
			case err != nil:
				return err
			default:
				qs, err := decodeQuestions(raw)
				if err != nil {
					return err
				}
				loaded[b] = qs
			}
		}

		weighted := make(map[QuestionBank][]Question, len(WeightedBanks))
		for _, b := range WeightedBanks {
			weighted[b] = loaded[b]
		}

		next, err := fn(loaded[bank], weighted)
		if err != nil {
			return err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, QuestionKey(activityID, bank), data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.Redis.Watch(ctx, txf, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return redis.TxFailedErr
}
