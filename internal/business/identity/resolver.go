package identity

import (
	"context"
	"fmt"

	"oms/mpsync/internal/business/snapshot"
	"oms/mpsync/internal/entity"
	"oms/mpsync/internal/marketplace"
	"oms/mpsync/pkg/errorutil"
	"oms/mpsync/pkg/logger"
)

// OrderFetcher 订单查询契约（市场客户端的最小切面）
type OrderFetcher interface {
	GetOrder(ctx context.Context, campaignID string, orderID int64) (*marketplace.RawOrder, error)
}

// Resolver 多店铺订单定位器
// 单号仅在单个市场店铺内唯一，Profile 级操作（如"按单号取消"）
// 不一定知道单号归属哪个店铺：按序尝试主店铺与备选店铺，
// 命中即短路返回
type Resolver struct {
	fetcher      OrderFetcher
	numberPrefix string
	logger       logger.Logger
}

// NewResolver 创建定位器
func NewResolver(fetcher OrderFetcher, numberPrefix string, log logger.Logger) *Resolver {
	return &Resolver{
		fetcher:      fetcher,
		numberPrefix: numberPrefix,
		logger:       log,
	}
}

// FindUnderAnyIdentity 在 Profile 的全部店铺下查找订单
// 全部未命中返回 KindNotFound；网络类错误立即上抛（不继续遍历，
// 避免把瞬时故障误判为"订单不存在"）
func (r *Resolver) FindUnderAnyIdentity(ctx context.Context, profile *entity.Profile, orderID int64) (*snapshot.Snapshot, error) {
	for _, campaignID := range profile.Campaigns() {
		raw, err := r.fetcher.GetOrder(ctx, campaignID, orderID)
		if err != nil {
			if errorutil.IsKind(err, errorutil.KindNotFound) {
				r.logger.Debugf(ctx, "[Identity] order %d not under campaign %s, trying next", orderID, campaignID)
				continue
			}
			return nil, err
		}

		r.logger.Infof(ctx, "[Identity] order %d located under campaign %s", orderID, campaignID)
		return snapshot.Map(raw, profile.ID, campaignID, r.numberPrefix)
	}

	return nil, errorutil.NotFound(
		fmt.Sprintf("order %d not found under any of profile %d campaigns", orderID, profile.ID))
}
