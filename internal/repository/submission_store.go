package repository

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/crypto/blake2b"
)

// ErrPayloadNotFound KV 中没有该键
var ErrPayloadNotFound = errors.New("submission payload not found")

// Payload 提交记录的 JSON 文档，字段随提交类型不同
type Payload map[string]interface{}

func (p Payload) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Float 数字或数字字符串
func (p Payload) Float(key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// Hash 对规范化 JSON 取 blake2b-256，map 序列化时键有序
func (p Payload) Hash() (string, []byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", nil, err
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), data, nil
}

type SubmissionStore struct {
	Redis *redis.Client
}

func NewSubmissionStore(rdb *redis.Client) *SubmissionStore {
	return &SubmissionStore{Redis: rdb}
}

func blobKey(hash string) string {
	return "submission:blob:" + hash
}

func (s *SubmissionStore) Get(ctx context.Context, key string) (Payload, error) {
	raw, err := s.Redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrPayloadNotFound
	}
	if err != nil {
		return nil, err
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// Put ttl 为 0 表示不过期
func (s *SubmissionStore) Put(ctx context.Context, key string, p Payload, ttl time.Duration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.Redis.Set(ctx, key, data, ttl).Err()
}

// Rewrite 覆盖写入并保留原有的剩余 TTL；键不存在时用 fallback
func (s *SubmissionStore) Rewrite(ctx context.Context, key string, p Payload, fallback time.Duration) error {
	ttl, err := s.Redis.PTTL(ctx, key).Result()
	if err != nil {
		return err
	}
	switch {
	case ttl > 0:
	case ttl == -1:
		// 原键无过期时间
		ttl = 0
	default:
		ttl = fallback
	}
	return s.Put(ctx, key, p, ttl)
}

func (s *SubmissionStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	return s.Redis.PTTL(ctx, key).Result()
}

// PutBlob 按内容寻址写入不可变副本，已存在时不覆盖
func (s *SubmissionStore) PutBlob(ctx context.Context, p Payload, ttl time.Duration) (string, error) {
	hash, data, err := p.Hash()
	if err != nil {
		return "", err
	}
	if err := s.Redis.SetNX(ctx, blobKey(hash), data, ttl).Err(); err != nil {
		return "", err
	}
	return hash, nil
}

func (s *SubmissionStore) GetBlob(ctx context.Context, hash string) (Payload, error) {
	return s.Get(ctx, blobKey(hash))
}

// Scan 分批遍历提交记录键
func (s *SubmissionStore) Scan(ctx context.Context, cursor uint64, count int64) ([]string, uint64, error) {
	return s.Redis.Scan(ctx, cursor, SubmissionKeyPattern, count).Result()
}
