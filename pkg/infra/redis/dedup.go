package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Dedup 幂等守卫：记录"某个订单的某个原因已经处理过"
//
// 约定：Check 在副作用之前调用，Commit 仅在副作用持久化成功之后调用
// （write-after-effect）。崩溃在 Commit 之前发生时最多导致一次安全的
// 重放，不会丢失副作用。
type Dedup struct {
	client    *redis.Client
	keyPrefix string
}

// NewDedup 创建幂等守卫
func NewDedup(client *redis.Client) *Dedup {
	return &Dedup{
		client:    client,
		keyPrefix: "mpsync:dedup:",
	}
}

// DedupKey 组合幂等键
// namespace 区分业务场景，parts 通常为 单号 + 目标状态 + 处理器标识，
// 同一订单的不同原因由此互不冲突
func DedupKey(namespace string, parts ...string) string {
	return namespace + ":" + strings.Join(parts, ":")
}

// Check 检查该原因是否已处理
// 返回 true 表示 fresh（尚未处理），false 表示 alreadyDone
func (d *Dedup) Check(ctx context.Context, namespace string, parts ...string) (bool, error) {
	key := d.keyPrefix + DedupKey(namespace, parts...)

	exists, err := d.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check failed: %w", err)
	}

	return exists == 0, nil
}

// Commit 记录该原因已处理（仅在副作用成功后调用）
func (d *Dedup) Commit(ctx context.Context, namespace string, ttl time.Duration, parts ...string) error {
	key := d.keyPrefix + DedupKey(namespace, parts...)

	if err := d.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("dedup commit failed: %w", err)
	}

	return nil
}
