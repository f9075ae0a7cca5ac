package domains

import (
	"oms/mpsync/internal/domains/common"
	"oms/mpsync/internal/domains/common/job"
	"oms/mpsync/internal/domains/handlers/order/cancelcheck"
	"oms/mpsync/internal/domains/handlers/order/statuspush"
	"oms/mpsync/internal/domains/handlers/order/sync"
)

// HandlerMap 路由表（ActionType → Handler 映射）
var HandlerMap = map[string]common.HandlerServProc{
	job.ActionOrderSync:        sync.NewHandler,
	job.ActionOrderCancelCheck: cancelcheck.NewHandler,
	job.ActionOrderStatusPush:  statuspush.NewHandler,
}
