package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const (
	lockTTL        = 30 * time.Second
	lockRetryEvery = 100 * time.Millisecond
	lockRetryLimit = 50
)

// Locker 订单级临界区
// 同一内部单号的所有写操作必须串行：幂等检查 + 当前状态读取 + 状态写入
// 在持锁期间完成
type Locker struct {
	lk *redislock.Client
}

// NewLocker 创建分布式锁客户端
func NewLocker(client *redis.Client) *Locker {
	return &Locker{
		lk: redislock.New(client),
	}
}

// WithLock 在订单锁内执行 fn
func (l *Locker) WithLock(ctx context.Context, orderNo string, fn func(ctx context.Context) error) error {
	key := "mpsync:orderlock:" + orderNo

	lock, err := l.lk.Obtain(ctx, key, lockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(lockRetryEvery), lockRetryLimit),
	})
	if err != nil {
		return fmt.Errorf("obtain order lock %s failed: %w", orderNo, err)
	}
	defer lock.Release(ctx)

	return fn(ctx)
}
