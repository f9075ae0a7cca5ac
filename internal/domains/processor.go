package domains

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitleak/lmstfy/client"
	"github.com/google/uuid"

	"oms/mpsync/internal/business/retrydispatch"
	"oms/mpsync/internal/domains/common"
	"oms/mpsync/internal/domains/common/job"
	"oms/mpsync/internal/domains/common/response"
	"oms/mpsync/pkg/lmstfyx"
	"oms/mpsync/pkg/logger"
)

// GetProcess 返回核心处理函数（注入到 Processor）
func GetProcess(log logger.Logger, deps *common.Deps) lmstfyx.Proc {
	return func(ctx context.Context, lmstfyJob *client.Job) *lmstfyx.JobResp {
		startTime := time.Now()

		// 1. 解析 Job
		meta, bizPayload, err := parseJob(ctx, lmstfyJob, log)
		if err != nil {
			log.Errorf(ctx, "[GetProcess] parseJob failed: %v", err)
			return &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusBury}
		}

		// 2. 注入 TraceID 到 Context
		ctx = context.WithValue(ctx, "trace_id", meta.RequestID)
		ctx = context.WithValue(ctx, "action_type", meta.ActionType)
		ctx = context.WithValue(ctx, "profile_id", meta.ProfileID)
		ctx = context.WithValue(ctx, "order_no", meta.ID)

		log.Infof(ctx, "[GetProcess] Processing job: action_type=%s, request_id=%s, id=%s",
			meta.ActionType, meta.RequestID, meta.ID)

		// 3. 从 HandlerMap 获取 Handler
		handlerFunc, ok := HandlerMap[meta.ActionType]
		if !ok {
			log.Errorf(ctx, "[GetProcess] handler not found for action_type: %s", meta.ActionType)
			return &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusBury}
		}

		// 4. 调用 Handler（捕获 panic）
		var resp *lmstfyx.JobResp
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf(ctx, "[GetProcess] handler panic: %v", r)
					resp = &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusBury}
				}
			}()

			handler, err := handlerFunc(ctx, meta, bizPayload, deps)
			if err != nil {
				log.Errorf(ctx, "[GetProcess] handler creation failed: %v", err)
				resp = &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusBury}
				return
			}

			handlerResp := handler.GetProcess()
			resp = doJobReport(ctx, handlerResp, meta, lmstfyJob, deps, log)
		}()

		// 5. 记录处理时长
		duration := time.Since(startTime)
		log.Infof(ctx, "[GetProcess] Processing complete: action=%d, duration=%v", resp.Action, duration)

		return resp
	}
}

// parseJob 解析 Job
func parseJob(ctx context.Context, lmstfyJob *client.Job, log logger.Logger) (*job.Meta, interface{}, error) {
	// 1. 反序列化 Job
	var standardJob job.Job
	if err := json.Unmarshal(lmstfyJob.Data, &standardJob); err != nil {
		return nil, nil, fmt.Errorf("json unmarshal failed: %w", err)
	}

	// 2. 校验必填字段
	if standardJob.Payload == nil || standardJob.Payload.Data == nil {
		return nil, nil, fmt.Errorf("invalid job structure: payload.data is nil")
	}

	data := standardJob.Payload.Data

	// 3. 提取元数据
	meta := &job.Meta{
		RequestID:  data.RequestID,
		ProfileID:  data.ProfileID,
		ActionType: data.ActionType,
		ID:         data.ID,
	}

	// RequestID 为空则生成一个
	if meta.RequestID == "" {
		meta.RequestID = uuid.New().String()
	}

	log.Debugf(ctx, "[parseJob] Parsed: action_type=%s, request_id=%s, id=%s",
		meta.ActionType, meta.RequestID, meta.ID)

	return meta, data.Data, nil
}

// doJobReport 根据 Response 生成 JobResp
//
// 可重试失败不走同队列 Release：交给重试调度器按原因延迟投递到
// Profile 队列，避免坏 Profile 拖慢共享队列；调度成功后 ACK 原消息
func doJobReport(
	ctx context.Context,
	resp *response.Response,
	meta *job.Meta,
	lmstfyJob *client.Job,
	deps *common.Deps,
	log logger.Logger,
) *lmstfyx.JobResp {
	if resp.Error == nil {
		return &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusSuccess}
	}

	if !resp.Error.Retryable {
		log.Errorf(ctx, "[doJobReport] unrecoverable failure (%s): %s", resp.Error.Kind, resp.Error.Message)
		return &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusBury}
	}

	cause := causeForAction(meta.ActionType)

	if _, err := deps.Retry.ScheduleRetry(ctx, cause, meta.ProfileID, lmstfyJob.Data); err != nil {
		// 调度失败：退化为同队列延迟重投
		log.Warnf(ctx, "[doJobReport] retry dispatch failed: %v, falling back to release", err)
		return &lmstfyx.JobResp{
			Action:  lmstfyx.JobRespStatusRelease,
			RetryIn: retrydispatch.DelayFor(cause),
		}
	}

	return &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusSuccess}
}

// causeForAction 动作类型 → 重试原因
func causeForAction(actionType string) retrydispatch.Cause {
	switch actionType {
	case job.ActionOrderStatusPush:
		return retrydispatch.CauseStatusPush
	case job.ActionOrderCancelCheck:
		return retrydispatch.CauseCancelCheck
	default:
		return retrydispatch.CauseOrderSync
	}
}
