package retry

import (
	"context"
	"time"

	"artiefy_backend/pkg/logger"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Policy 固定间隔重试，只包在单次对外写操作外面
type Policy struct {
	Attempts uint
	Interval time.Duration
}

// Default 最多 3 次，间隔 1 秒
var Default = Policy{Attempts: 3, Interval: time.Second}

// Permanent 标记不应重试的错误
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do 执行 op，失败时按 Policy 重试，返回最后一次的错误
func (p Policy) Do(ctx context.Context, name string, op func() error) error {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := op()
		if err != nil {
			logger.FromContext(ctx).Warn("retryable operation failed",
				zap.String("op", name),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(p.Interval)),
		backoff.WithMaxTries(p.Attempts),
	)
	return err
}
