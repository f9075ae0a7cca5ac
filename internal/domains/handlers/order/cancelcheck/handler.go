package cancelcheck

import (
	"context"
	"encoding/json"
	"fmt"

	"oms/mpsync/internal/business/snapshot"
	"oms/mpsync/internal/domains/common"
	"oms/mpsync/internal/domains/common/job"
	"oms/mpsync/internal/domains/common/response"
	"oms/mpsync/internal/framework"
	"oms/mpsync/pkg/errorutil"
)

// Payload Job 消息中的业务数据
type Payload struct {
	ExternalOrderID int64  `json:"external_order_id"`
	CampaignID      string `json:"campaign_id"`
}

// Handler 取消复查 Handler
// 检查"内部已 Completed 的订单是否被市场侧取消"，命中则触发补偿回退
// （退货/退款信号）。终态被重访的唯一路径
type Handler struct {
	ctx     context.Context
	meta    *job.Meta
	payload *Payload
	deps    *common.Deps

	snap *snapshot.Snapshot
}

// NewHandler 创建取消复查 Handler
func NewHandler(ctx context.Context, meta *job.Meta, payload interface{}, deps *common.Deps) (common.HandlerServ, error) {
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

// GetProcess 处理取消复查请求
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
	if h.payload.CampaignID == "" {
		return errorutil.NonRetriable("campaign_id is required")
	}
	return nil
}

// Process 拉取市场侧当前状态
func (h *Handler) Process(ctx context.Context) error {
	raw, err := h.deps.Marketplace.GetOrder(ctx, h.payload.CampaignID, h.payload.ExternalOrderID)
	if err != nil {
		if errorutil.IsKind(err, errorutil.KindNotFound) {
			// 市场侧暂时查不到不代表已取消，静默跳过等下一轮复查
			h.deps.Logger.Warnf(ctx, "[CancelCheck] order %d not visible on marketplace, skipping",
				h.payload.ExternalOrderID)
			return nil
		}
		return err
	}

	h.snap, err = snapshot.Map(raw, h.meta.ProfileID, h.payload.CampaignID, h.deps.NumberPrefix)
	return err
}

// PostProcess 命中取消则执行补偿回退
func (h *Handler) PostProcess(ctx context.Context) error {
	if h.snap == nil {
		return nil
	}
	return h.deps.Reconciler.ReconcileReversal(ctx, h.snap)
}
