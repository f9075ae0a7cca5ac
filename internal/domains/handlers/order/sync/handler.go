package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"oms/mpsync/internal/business/snapshot"
	"oms/mpsync/internal/domains/common"
	"oms/mpsync/internal/domains/common/job"
	"oms/mpsync/internal/domains/common/response"
	"oms/mpsync/internal/entity"
	"oms/mpsync/internal/framework"
	"oms/mpsync/pkg/errorutil"
)

// Payload Job 消息中的业务数据
type Payload struct {
	ExternalOrderID int64 `json:"external_order_id"`
	// CampaignID 已知归属店铺时直查；为空则走多店铺定位
	CampaignID string `json:"campaign_id"`
}

// Handler 订单同步 Handler
// 拉取市场订单 → 构造快照 → 状态调解落库
type Handler struct {
	ctx     context.Context
	meta    *job.Meta
	payload *Payload
	deps    *common.Deps

	profile *entity.Profile
	snap    *snapshot.Snapshot
}

// NewHandler 创建同步 Handler
func NewHandler(ctx context.Context, meta *job.Meta, payload interface{}, deps *common.Deps) (common.HandlerServ, error) {
	// 解析 payload（业务数据）
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload failed: %w", err)
	}

	var p Payload
	if err := json.Unmarshal(payloadBytes, &p); err != nil {
		return nil, fmt.Errorf("unmarshal business data failed: %w", err)
	}

	return &Handler{
		ctx:     ctx,
		meta:    meta,
		payload: &p,
		deps:    deps,
	}, nil
}

// GetProcess 处理同步请求
func (h *Handler) GetProcess() *response.Response {
	result := response.NewSyncResult()

	chain := framework.NewPreProcessor([]framework.ProcessorFunc{
		h.PreProcess,
		h.Process,
		h.PostProcess,
	})
	err := chain.Run(h.ctx)

	resp := &response.Response{}
	resp.WrapResponse(result, h.meta, err)

	return resp
}

// PreProcess 校验必填字段
func (h *Handler) PreProcess(ctx context.Context) error {
	if h.payload.ExternalOrderID == 0 {
		return errorutil.NonRetriable("external_order_id is required")
	}
	if h.meta.ProfileID == 0 {
		return errorutil.NonRetriable("profile_id is required")
	}
	return nil
}

// Process 拉取订单并构造快照
func (h *Handler) Process(ctx context.Context) error {
	profile, err := h.deps.Profiles.GetProfile(ctx, h.meta.ProfileID)
	if err != nil {
		return err
	}
	h.profile = profile

	// 已知店铺直查，否则按序遍历 Profile 的全部店铺
	if h.payload.CampaignID != "" {
		raw, err := h.deps.Marketplace.GetOrder(ctx, h.payload.CampaignID, h.payload.ExternalOrderID)
		if err != nil {
			return err
		}
		h.snap, err = snapshot.Map(raw, profile.ID, h.payload.CampaignID, h.deps.NumberPrefix)
		return err
	}

	snap, err := h.deps.Identity.FindUnderAnyIdentity(ctx, profile, h.payload.ExternalOrderID)
	if err != nil {
		return err
	}
	h.snap = snap
	return nil
}

// PostProcess 执行状态调解
func (h *Handler) PostProcess(ctx context.Context) error {
	h.deps.Logger.Infof(ctx, "[SyncHandler] reconciling %s", h.snap)
	return h.deps.Reconciler.Reconcile(ctx, h.snap)
}
