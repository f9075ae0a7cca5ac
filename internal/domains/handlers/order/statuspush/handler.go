package statuspush

import (
	"context"
	"encoding/json"
	"fmt"

	"oms/mpsync/internal/domains/common"
	"oms/mpsync/internal/domains/common/job"
	"oms/mpsync/internal/domains/common/response"
	"oms/mpsync/internal/framework"
	"oms/mpsync/pkg/errorutil"
)

// Payload Job 消息中的业务数据
// 订单存储的事件通知（如"订单进入待发货"）触发该 Job
type Payload struct {
	OrderNumber     string `json:"order_number"`
	ExternalOrderID int64  `json:"external_order_id"`
	CampaignID      string `json:"campaign_id"`
	Status          string `json:"status"`
	Substatus       string `json:"substatus"`
}

// Handler 状态推送 Handler
// 把内部状态变更推送回市场侧，按 单号+状态 去重
type Handler struct {
	ctx     context.Context
	meta    *job.Meta
	payload *Payload
	deps    *common.Deps
}

// NewHandler 创建状态推送 Handler
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

// GetProcess 处理状态推送请求
func (h *Handler) GetProcess() *response.Response {
	result := response.NewSyncResult()

	chain := framework.NewPreProcessor([]framework.ProcessorFunc{
		h.PreProcess,
		h.Process,
	})
	err := chain.Run(h.ctx)

	resp := &response.Response{}
	resp.WrapResponse(result, h.meta, err)

	return resp
}

// PreProcess 校验必填字段
func (h *Handler) PreProcess(ctx context.Context) error {
	if h.payload.OrderNumber == "" {
		return errorutil.NonRetriable("order_number is required")
	}
	if h.payload.ExternalOrderID == 0 {
		return errorutil.NonRetriable("external_order_id is required")
	}
	if h.payload.CampaignID == "" {
		return errorutil.NonRetriable("campaign_id is required")
	}
	if h.payload.Status == "" {
		return errorutil.NonRetriable("status is required")
	}
	return nil
}

// Process 执行推送
func (h *Handler) Process(ctx context.Context) error {
	return h.deps.Reconciler.PushExternalStatus(ctx,
		h.payload.CampaignID, h.payload.OrderNumber, h.payload.ExternalOrderID,
		h.payload.Status, h.payload.Substatus)
}
