package retrydispatch

import (
	"context"
	"fmt"
	"time"

	"oms/mpsync/pkg/logger"
)

// Cause 重试原因（决定固定延迟）
type Cause string

const (
	// CauseOrderSync 订单同步失败
	CauseOrderSync Cause = "order_sync"
	// CauseLabelFetch 面单/贴纸拉取失败
	CauseLabelFetch Cause = "label_fetch"
	// CauseStatusPush 状态推送失败
	CauseStatusPush Cause = "status_push"
	// CauseCancelCheck 取消复查失败
	CauseCancelCheck Cause = "cancel_check"
)

// causeDelays 原因 → 固定延迟
// 市场 API 限流相对单量很宽松，小额定延迟优于指数退避；
// 重试不设上限，死信由队列侧策略兜底
var causeDelays = map[Cause]time.Duration{
	CauseOrderSync:   5 * time.Second,
	CauseLabelFetch:  3 * time.Second,
	CauseStatusPush:  time.Minute,
	CauseCancelCheck: 30 * time.Second,
}

const defaultDelay = 5 * time.Second

// DelayFor 返回原因对应的重试延迟
func DelayFor(cause Cause) time.Duration {
	if d, ok := causeDelays[cause]; ok {
		return d
	}
	return defaultDelay
}

// QueueForProfile 派生 Profile 作用域的队列名
// 单个慢/坏 Profile 的重试积压由此与其他 Profile 隔离
func QueueForProfile(prefix string, profileID int64) string {
	return fmt.Sprintf("%s_p%d", prefix, profileID)
}

// Publisher 队列发布契约
type Publisher interface {
	Publish(queue string, data []byte, ttl, delay uint32) error
}

// Envelope 重试信封
type Envelope struct {
	Payload     []byte
	NotBefore   time.Time
	TargetQueue string
}

// Dispatcher 重试调度器
// 业务逻辑决定"是否重试"，调度器只负责"何时、投到哪里"
type Dispatcher struct {
	pub         Publisher
	queuePrefix string
	logger      logger.Logger
}

// NewDispatcher 创建重试调度器
func NewDispatcher(pub Publisher, queuePrefix string, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		pub:         pub,
		queuePrefix: queuePrefix,
		logger:      log,
	}
}

// ScheduleRetry 按原因延迟重投工作项到 Profile 队列
func (d *Dispatcher) ScheduleRetry(ctx context.Context, cause Cause, profileID int64, payload []byte) (*Envelope, error) {
	delay := DelayFor(cause)

	env := &Envelope{
		Payload:     payload,
		NotBefore:   time.Now().Add(delay),
		TargetQueue: QueueForProfile(d.queuePrefix, profileID),
	}

	if err := d.pub.Publish(env.TargetQueue, env.Payload, 0, uint32(delay.Seconds())); err != nil {
		return nil, fmt.Errorf("schedule retry failed: %w", err)
	}

	d.logger.Infof(ctx, "[RetryDispatch] cause=%s profile=%d queue=%s delay=%v",
		cause, profileID, env.TargetQueue, delay)

	return env, nil
}
