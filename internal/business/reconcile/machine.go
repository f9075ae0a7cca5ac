package reconcile

import (
	"oms/mpsync/internal/business/snapshot"
)

// Action 调解动作
type Action int

const (
	// ActionNone 无需操作（幂等 no-op，非错误）
	ActionNone Action = iota
	// ActionCreate 创建内部订单
	ActionCreate
	// ActionTransition 状态流转
	ActionTransition
)

// Decision 调解决策
type Decision struct {
	Action Action
	Target snapshot.Status
	// ClearPin Unpaid → New 晋升时解除 Profile 责任账号绑定
	ClearPin bool
	// Reason 取消时附带的人读原因文本
	Reason string
	// NoopCause ActionNone 时的成因，用于日志
	NoopCause string
}

// statusRank 正向生命周期的单调序
// Canceled 不在序内，单独判定
var statusRank = map[snapshot.Status]int{
	snapshot.StatusUnpaid:     0,
	snapshot.StatusNew:        1,
	snapshot.StatusProcessing: 2,
	snapshot.StatusDelivery:   3,
	snapshot.StatusCompleted:  4,
}

// Decide 常规调解：根据现有内部状态（nil 表示不存在）与快照派生状态
// 决定创建/流转/no-op
//
// Completed 与 Canceled 为终态；Completed → Canceled 的补偿回退不走
// 此函数，见 DecideReversal
func Decide(current *snapshot.Status, incoming snapshot.Status, extSubstatus string) Decision {
	// 无内部订单：仅 Unpaid/New 快照触发创建
	if current == nil {
		switch incoming {
		case snapshot.StatusUnpaid, snapshot.StatusNew:
			return Decision{Action: ActionCreate, Target: incoming}
		default:
			return Decision{Action: ActionNone, NoopCause: "no internal order for mid-flight snapshot"}
		}
	}

	cur := *current

	// 同状态重放：幂等 no-op
	if cur == incoming {
		return Decision{Action: ActionNone, NoopCause: "already in target status"}
	}

	// 已取消订单不再变化
	if cur == snapshot.StatusCanceled {
		return Decision{Action: ActionNone, NoopCause: "order already canceled"}
	}

	// Completed 终态：取消回退仅由显式复查路径触发
	if cur == snapshot.StatusCompleted {
		return Decision{Action: ActionNone, NoopCause: "order already completed"}
	}

	// 非终态 → 取消
	if incoming == snapshot.StatusCanceled {
		return Decision{
			Action: ActionTransition,
			Target: snapshot.StatusCanceled,
			Reason: CancelReason(extSubstatus),
		}
	}

	// 正向推进：rank 必须严格增长，否则视为过期/乱序快照
	if statusRank[incoming] > statusRank[cur] {
		return Decision{
			Action:   ActionTransition,
			Target:   incoming,
			ClearPin: cur == snapshot.StatusUnpaid,
		}
	}

	return Decision{Action: ActionNone, NoopCause: "stale or backward snapshot"}
}

// DecideReversal 补偿回退判定
// 仅当内部订单已 Completed 而市场侧显示 Canceled 时触发（退货/退款信号）；
// 已取消的订单保证不再次触发
func DecideReversal(current snapshot.Status, incoming snapshot.Status, extSubstatus string) Decision {
	if current != snapshot.StatusCompleted {
		return Decision{Action: ActionNone, NoopCause: "reversal applies to completed orders only"}
	}
	if incoming != snapshot.StatusCanceled {
		return Decision{Action: ActionNone, NoopCause: "marketplace order is not canceled"}
	}

	return Decision{
		Action: ActionTransition,
		Target: snapshot.StatusCanceled,
		Reason: CancelReason(extSubstatus),
	}
}
