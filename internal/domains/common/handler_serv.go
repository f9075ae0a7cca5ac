package common

import (
	"context"

	"oms/mpsync/internal/business/identity"
	"oms/mpsync/internal/business/reconcile"
	"oms/mpsync/internal/business/retrydispatch"
	"oms/mpsync/internal/domains/common/job"
	"oms/mpsync/internal/domains/common/response"
	"oms/mpsync/internal/entity"
	"oms/mpsync/internal/marketplace"
	"oms/mpsync/pkg/logger"
)

// ProfileSource 商户档案查询契约
type ProfileSource interface {
	GetProfile(ctx context.Context, profileID int64) (*entity.Profile, error)
}

// Deps Handler 共享依赖（Manager 启动时装配一次）
type Deps struct {
	Reconciler  *reconcile.Service
	Identity    *identity.Resolver
	Retry       *retrydispatch.Dispatcher
	Profiles    ProfileSource
	Marketplace marketplace.Client
	// NumberPrefix 内部单号前缀
	NumberPrefix string
	Logger       logger.Logger
}

// HandlerServProc Handler 构造函数类型
type HandlerServProc func(ctx context.Context, meta *job.Meta, payload interface{}, deps *Deps) (HandlerServ, error)

// HandlerServ Handler 接口
type HandlerServ interface {
	GetProcess() *response.Response
}
