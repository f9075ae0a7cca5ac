package reconcile

import (
	"context"
	"time"

	"gorm.io/datatypes"

	"oms/mpsync/internal/business/snapshot"
	"oms/mpsync/internal/entity"
	"oms/mpsync/internal/marketplace"
	"oms/mpsync/pkg/errorutil"
	"oms/mpsync/pkg/logger"
)

// 幂等命名空间（同一订单按原因独立去重）
const (
	nsOrderSync   = "order_sync"
	nsCancelCheck = "order_cancel_check"
	nsStatusPush  = "status_push"
)

// 处理器标识（幂等键组成部分）
const (
	handlerReconcile = "reconcile"
	handlerReversal  = "reversal"
	handlerPush      = "push"
)

// CatalogRef 货号在内部目录中的解析结果
type CatalogRef struct {
	CatalogEventID int64
	OfferID        *int64
	VariationID    *int64
	ModificationID *int64
}

// CatalogLookup 目录查询契约（外部协作方）
type CatalogLookup interface {
	// ResolveByArticle 按货号解析，不存在返回 KindNotFound
	ResolveByArticle(ctx context.Context, article string) (*CatalogRef, error)
}

// AccountResolver 账号解析契约（外部协作方）
type AccountResolver interface {
	// AccountForProfile 解析 Profile 绑定的内部账号，不存在返回 KindNotFound
	AccountForProfile(ctx context.Context, profileID int64) (int64, error)
}

// OrderStore 内部订单存储契约（外部协作方）
type OrderStore interface {
	// GetByNumber 按单号读取当前状态，不存在返回 KindNotFound
	GetByNumber(ctx context.Context, number string) (*entity.Order, error)

	// Create 事务性创建订单与订单行
	Create(ctx context.Context, order *entity.Order) error

	// ApplyTransition 带乐观版本检查的状态写入，版本不符返回 KindConflict
	ApplyTransition(ctx context.Context, number string, version int64, updates map[string]interface{}) error
}

// DedupGuard 幂等守卫契约
type DedupGuard interface {
	Check(ctx context.Context, namespace string, parts ...string) (bool, error)
	Commit(ctx context.Context, namespace string, ttl time.Duration, parts ...string) error
}

// OrderLocker 订单级临界区契约
type OrderLocker interface {
	WithLock(ctx context.Context, orderNo string, fn func(ctx context.Context) error) error
}

// Service 状态调解服务
// 创建与流转对调用方而言都是原子操作：目录/账号解析失败时
// 不会留下半创建的订单
type Service struct {
	catalog  CatalogLookup
	accounts AccountResolver
	store    OrderStore
	dedup    DedupGuard
	locker   OrderLocker
	mp       marketplace.Client
	dedupTTL time.Duration
	logger   logger.Logger
}

// NewService 创建调解服务
func NewService(
	catalog CatalogLookup,
	accounts AccountResolver,
	store OrderStore,
	dedup DedupGuard,
	locker OrderLocker,
	mp marketplace.Client,
	dedupTTL time.Duration,
	log logger.Logger,
) *Service {
	return &Service{
		catalog:  catalog,
		accounts: accounts,
		store:    store,
		dedup:    dedup,
		locker:   locker,
		mp:       mp,
		dedupTTL: dedupTTL,
		logger:   log,
	}
}

// Reconcile 常规调解入口：对一个订单快照决定创建/流转/no-op 并落库
func (s *Service) Reconcile(ctx context.Context, snap *snapshot.Snapshot) error {
	return s.locker.WithLock(ctx, snap.Number, func(ctx context.Context) error {
		return s.reconcileLocked(ctx, snap)
	})
}

func (s *Service) reconcileLocked(ctx context.Context, snap *snapshot.Snapshot) error {
	dedupParts := []string{snap.Number, string(snap.DerivedStatus), handlerReconcile}

	fresh, err := s.dedup.Check(ctx, nsOrderSync, dedupParts...)
	if err != nil {
		return errorutil.TransientNetworkWrap("dedup check failed", err)
	}
	if !fresh {
		s.logger.Infof(ctx, "[Reconcile] %s: cause already processed, skipping", snap.Number)
		return nil
	}

	order, err := s.currentOrder(ctx, snap.Number)
	if err != nil {
		return err
	}

	var current *snapshot.Status
	if order != nil {
		st := snapshot.Status(order.Status)
		current = &st
	}

	decision := Decide(current, snap.DerivedStatus, snap.ExternalSubstatus)

	switch decision.Action {
	case ActionNone:
		s.logger.Infof(ctx, "[Reconcile] %s: no-op (%s)", snap.Number, decision.NoopCause)
		return nil

	case ActionCreate:
		if err := s.createOrder(ctx, snap, decision.Target); err != nil {
			return err
		}
		s.logger.Infof(ctx, "[Reconcile] %s: created in status %s", snap.Number, decision.Target)

	case ActionTransition:
		if err := s.applyTransition(ctx, order, decision); err != nil {
			return err
		}
		s.logger.Infof(ctx, "[Reconcile] %s: transitioned %s -> %s", snap.Number, *current, decision.Target)
	}

	// write-after-effect：副作用落库成功后才记录幂等
	// Commit 失败不回滚业务：重放会被状态机判定为 no-op
	if err := s.dedup.Commit(ctx, nsOrderSync, s.dedupTTL, dedupParts...); err != nil {
		s.logger.Warnf(ctx, "[Reconcile] %s: dedup commit failed: %v", snap.Number, err)
	}

	return nil
}

// ReconcileReversal 补偿回退入口
// 由显式复查触发："内部已 Completed 而市场侧显示已取消"
func (s *Service) ReconcileReversal(ctx context.Context, snap *snapshot.Snapshot) error {
	return s.locker.WithLock(ctx, snap.Number, func(ctx context.Context) error {
		return s.reversalLocked(ctx, snap)
	})
}

func (s *Service) reversalLocked(ctx context.Context, snap *snapshot.Snapshot) error {
	dedupParts := []string{snap.Number, string(snapshot.StatusCanceled), handlerReversal}

	fresh, err := s.dedup.Check(ctx, nsCancelCheck, dedupParts...)
	if err != nil {
		return errorutil.TransientNetworkWrap("dedup check failed", err)
	}
	if !fresh {
		s.logger.Infof(ctx, "[Reversal] %s: already processed, skipping", snap.Number)
		return nil
	}

	order, err := s.currentOrder(ctx, snap.Number)
	if err != nil {
		return err
	}
	if order == nil {
		s.logger.Warnf(ctx, "[Reversal] %s: internal order not found", snap.Number)
		return nil
	}

	decision := DecideReversal(snapshot.Status(order.Status), snap.DerivedStatus, snap.ExternalSubstatus)
	if decision.Action == ActionNone {
		s.logger.Infof(ctx, "[Reversal] %s: no-op (%s)", snap.Number, decision.NoopCause)
		return nil
	}

	if err := s.applyTransition(ctx, order, decision); err != nil {
		return err
	}
	s.logger.Warnf(ctx, "[Reversal] %s: completed order canceled by marketplace, reason: %s",
		snap.Number, decision.Reason)

	if err := s.dedup.Commit(ctx, nsCancelCheck, s.dedupTTL, dedupParts...); err != nil {
		s.logger.Warnf(ctx, "[Reversal] %s: dedup commit failed: %v", snap.Number, err)
	}

	return nil
}

// PushExternalStatus 推送内部状态到市场侧（按原因去重）
func (s *Service) PushExternalStatus(ctx context.Context, campaignID, number string, externalID int64, extStatus, extSubstatus string) error {
	dedupParts := []string{number, extStatus, handlerPush}

	fresh, err := s.dedup.Check(ctx, nsStatusPush, dedupParts...)
	if err != nil {
		return errorutil.TransientNetworkWrap("dedup check failed", err)
	}
	if !fresh {
		s.logger.Infof(ctx, "[StatusPush] %s: already pushed, skipping", number)
		return nil
	}

	if err := s.mp.PushStatus(ctx, campaignID, externalID, extStatus, extSubstatus); err != nil {
		return err
	}

	if err := s.dedup.Commit(ctx, nsStatusPush, s.dedupTTL, dedupParts...); err != nil {
		s.logger.Warnf(ctx, "[StatusPush] %s: dedup commit failed: %v", number, err)
	}

	s.logger.Infof(ctx, "[StatusPush] %s: pushed %s/%s", number, extStatus, extSubstatus)
	return nil
}

// currentOrder 读取内部订单，nil 表示不存在
func (s *Service) currentOrder(ctx context.Context, number string) (*entity.Order, error) {
	order, err := s.store.GetByNumber(ctx, number)
	if err != nil {
		if errorutil.IsKind(err, errorutil.KindNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return order, nil
}

// createOrder 创建内部订单
// 前置条件全部通过后才落库：每个订单行必须解析到目录，Profile 必须
// 绑定唯一账号
func (s *Service) createOrder(ctx context.Context, snap *snapshot.Snapshot, target snapshot.Status) error {
	accountID, err := s.accounts.AccountForProfile(ctx, snap.ProfileID)
	if err != nil {
		if errorutil.IsKind(err, errorutil.KindNotFound) {
			s.logger.Errorf(ctx, "[Reconcile] %s: no account for profile %d, order not created",
				snap.Number, snap.ProfileID)
			return errorutil.NoAccountForProfile(snap.ProfileID)
		}
		return err
	}

	items := make([]entity.OrderItem, 0, len(snap.Lines))
	for _, line := range snap.Lines {
		ref, err := s.catalog.ResolveByArticle(ctx, line.Article)
		if err != nil {
			if errorutil.IsKind(err, errorutil.KindNotFound) {
				s.logger.Errorf(ctx, "[Reconcile] %s: article %q unresolved, order not created",
					snap.Number, line.Article)
				return errorutil.UnresolvedProduct(line.Article)
			}
			return err
		}

		items = append(items, entity.OrderItem{
			Article:        line.Article,
			UnitPrice:      line.UnitPrice,
			Currency:       line.Currency,
			Quantity:       line.Quantity,
			CatalogEventID: ref.CatalogEventID,
			OfferID:        ref.OfferID,
			VariationID:    ref.VariationID,
			ModificationID: ref.ModificationID,
		})
	}

	order := &entity.Order{
		Number:          snap.Number,
		ExternalID:      snap.ExternalID,
		ProfileID:       snap.ProfileID,
		CampaignID:      snap.CampaignID,
		Status:          string(target),
		Channel:         string(snap.Channel),
		ChannelFlagged:  snap.ChannelFlagged,
		DeliveryAddress: snap.DeliveryAddress,
		DeliveryComment: snap.DeliveryComment,
		DeliveryDate:    snap.DeliveryDate,
		GeoLat:          snap.GeoLat,
		GeoLon:          snap.GeoLon,
		RawPayload:      datatypes.JSON(snap.Raw),
		OrderedAt:       snap.CreatedAt,
		Items:           items,
	}

	if snap.Buyer != nil {
		order.BuyerName = snap.Buyer.Name
		order.BuyerPhone = snap.Buyer.Phone
		order.BuyerEmail = snap.Buyer.Email
	}

	// 未付款订单绑定责任账号，付款晋升时解除
	if target == snapshot.StatusUnpaid {
		order.PinnedAccountID = &accountID
	}

	if snap.ChannelFlagged {
		s.logger.Warnf(ctx, "[Reconcile] %s: unrecognized delivery partner type, defaulted to merchant-fulfilled",
			snap.Number)
	}

	return s.store.Create(ctx, order)
}

// applyTransition 执行状态写入（带乐观版本检查）
func (s *Service) applyTransition(ctx context.Context, order *entity.Order, decision Decision) error {
	updates := map[string]interface{}{
		"status": string(decision.Target),
	}
	if decision.Reason != "" {
		updates["cancel_reason"] = decision.Reason
	}
	if decision.ClearPin {
		updates["pinned_account_id"] = nil
	}

	return s.store.ApplyTransition(ctx, order.Number, order.Version, updates)
}
