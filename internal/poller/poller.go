package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"oms/mpsync/internal/business/retrydispatch"
	"oms/mpsync/internal/business/snapshot"
	"oms/mpsync/internal/domains/common/job"
	"oms/mpsync/internal/domains/handlers/order/cancelcheck"
	ordersync "oms/mpsync/internal/domains/handlers/order/sync"
	"oms/mpsync/internal/entity"
	"oms/mpsync/internal/marketplace"
	"oms/mpsync/pkg/config"
	"oms/mpsync/pkg/logger"
)

// 单轮并发拉取的 Profile 上限
const profileConcurrency = 4

const dateLayout = "02-01-2006"

// Cursor 分页游标（页码 + 起始时间），轮询器显式持有并推进
type Cursor struct {
	Page        int
	UpdatedFrom time.Time
}

// ProfileLister 商户档案列表契约
type ProfileLister interface {
	ListProfiles(ctx context.Context) ([]entity.Profile, error)
}

// CompletedLister 已完成订单列表契约（取消复查数据源）
type CompletedLister interface {
	ListCompletedSince(ctx context.Context, profileID int64, since time.Time) ([]entity.Order, error)
}

// Publisher 队列发布契约
type Publisher interface {
	Publish(queue string, data []byte, ttl, delay uint32) error
}

// Poller 增量轮询器
// 定期扫描各 Profile 店铺的订单变更，投递同步 Job 到 Profile 队列；
// 同时为近期完成的订单投递取消复查 Job
type Poller struct {
	cfg          *config.PollerConfig
	numberPrefix string
	mp           marketplace.Client
	profiles     ProfileLister
	orders       CompletedLister
	pub          Publisher
	logger       logger.Logger

	// lastRun 上一轮成功开始时间，作为增量起点；零值表示全量
	lastRun time.Time
}

// NewPoller 创建轮询器
func NewPoller(
	cfg *config.PollerConfig,
	numberPrefix string,
	mp marketplace.Client,
	profiles ProfileLister,
	orders CompletedLister,
	pub Publisher,
	log logger.Logger,
) *Poller {
	return &Poller{
		cfg:          cfg,
		numberPrefix: numberPrefix,
		mp:           mp,
		profiles:     profiles,
		orders:       orders,
		pub:          pub,
		logger:       log,
	}
}

// Run 周期运行直到 Context 取消
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// 启动即跑一轮，不等第一个 tick
	if err := p.RunOnce(ctx); err != nil {
		p.logger.Errorf(ctx, "[Poller] initial round failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			p.logger.Infof(ctx, "[Poller] Context cancelled, exiting")
			return ctx.Err()
		case <-ticker.C:
			if err := p.RunOnce(ctx); err != nil {
				p.logger.Errorf(ctx, "[Poller] round failed: %v", err)
			}
		}
	}
}

// RunOnce 执行一轮扫描
// 单个 Profile 失败不影响其他 Profile，增量游标只在整轮成功后推进
func (p *Poller) RunOnce(ctx context.Context) error {
	startTime := time.Now()

	profiles, err := p.profiles.ListProfiles(ctx)
	if err != nil {
		return fmt.Errorf("list profiles failed: %w", err)
	}

	p.logger.Infof(ctx, "[Poller] Round started: profiles=%d, updated_from=%v", len(profiles), p.lastRun)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(profileConcurrency)

	for i := range profiles {
		profile := &profiles[i]
		g.Go(func() error {
			if err := p.pollProfile(gctx, profile); err != nil {
				// 只记录，不让坏 Profile 中断整轮
				p.logger.Errorf(gctx, "[Poller] profile %d failed: %v", profile.ID, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	p.lastRun = startTime
	p.logger.Infof(ctx, "[Poller] Round complete: duration=%v", time.Since(startTime))
	return nil
}

// pollProfile 扫描单个 Profile：全部店铺的订单变更 + 取消复查
func (p *Poller) pollProfile(ctx context.Context, profile *entity.Profile) error {
	for _, campaignID := range profile.Campaigns() {
		if err := p.pollCampaign(ctx, profile, campaignID); err != nil {
			return fmt.Errorf("campaign %s: %w", campaignID, err)
		}
	}
	return p.enqueueCancelChecks(ctx, profile)
}

// pollCampaign 翻页拉取单个店铺的订单并投递同步 Job
func (p *Poller) pollCampaign(ctx context.Context, profile *entity.Profile, campaignID string) error {
	cursor := Cursor{Page: 1, UpdatedFrom: p.lastRun}

	for {
		filter := marketplace.ListFilter{
			Statuses: p.cfg.Statuses,
			Page:     cursor.Page,
			PageSize: p.cfg.PageSize,
		}
		if !cursor.UpdatedFrom.IsZero() {
			filter.UpdatedFrom = cursor.UpdatedFrom.Format(dateLayout)
		}

		page, err := p.mp.ListOrders(ctx, campaignID, filter)
		if err != nil {
			return fmt.Errorf("list orders page %d: %w", cursor.Page, err)
		}

		for _, raw := range page.Orders {
			if err := p.enqueueSync(ctx, profile, campaignID, raw.ID); err != nil {
				// 投递失败跳过该单，下一轮会重新扫到
				p.logger.Warnf(ctx, "[Poller] enqueue sync failed for order %d: %v", raw.ID, err)
			}
		}

		if !page.HasNext {
			return nil
		}
		cursor.Page++
	}
}

// enqueueSync 投递订单同步 Job
func (p *Poller) enqueueSync(ctx context.Context, profile *entity.Profile, campaignID string, externalOrderID int64) error {
	number := snapshot.OrderNumber(p.numberPrefix, externalOrderID)
	return p.enqueue(ctx, profile.ID, job.ActionOrderSync, number, &ordersync.Payload{
		ExternalOrderID: externalOrderID,
		CampaignID:      campaignID,
	})
}

// enqueueCancelChecks 为时间窗内完成的订单投递取消复查 Job
func (p *Poller) enqueueCancelChecks(ctx context.Context, profile *entity.Profile) error {
	since := time.Now().Add(-p.cfg.CancelCheckWindow)

	completed, err := p.orders.ListCompletedSince(ctx, profile.ID, since)
	if err != nil {
		return fmt.Errorf("list completed orders: %w", err)
	}

	for _, order := range completed {
		err := p.enqueue(ctx, profile.ID, job.ActionOrderCancelCheck, order.Number, &cancelcheck.Payload{
			ExternalOrderID: order.ExternalID,
			CampaignID:      order.CampaignID,
		})
		if err != nil {
			p.logger.Warnf(ctx, "[Poller] enqueue cancel check failed for %s: %v", order.Number, err)
		}
	}
	return nil
}

// enqueue 封装标准 Job 并发布到 Profile 队列
func (p *Poller) enqueue(ctx context.Context, profileID int64, actionType, id string, data interface{}) error {
	envelope := &job.Job{
		Payload: &job.JobPayload{
			Data: &job.JobPayloadData{
				RequestID:  uuid.New().String(),
				ProfileID:  profileID,
				ActionType: actionType,
				ID:         id,
				Data:       data,
			},
		},
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal job failed: %w", err)
	}

	queue := retrydispatch.QueueForProfile(p.cfg.SyncQueuePrefix, profileID)
	if err := p.pub.Publish(queue, body, 0, 0); err != nil {
		return fmt.Errorf("publish to %s failed: %w", queue, err)
	}

	p.logger.Debugf(ctx, "[Poller] Enqueued %s job for %s to %s", actionType, id, queue)
	return nil
}
