package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"oms/mpsync/internal/business/reconcile"
	"oms/mpsync/internal/business/snapshot"
	"oms/mpsync/internal/marketplace"
)

var (
	orderPath  = flag.String("order", "./testcase/order.json", "市场原始报文路径")
	profileID  = flag.Int64("profile", 1, "Profile ID")
	campaignID = flag.String("campaign", "111", "店铺 ID")
	prefix     = flag.String("prefix", "MP", "内部单号前缀")
	current    = flag.String("current", "", "当前内部状态（空表示订单不存在）")
	reversal   = flag.Bool("reversal", false, "按取消复查路径判定")
)

// FastTest 离线快速测试工具
// 不连接任何外部依赖：读取一份市场原始报文，跑 快照映射 + 状态机判定，
// 打印派生结果和调解决策
func main() {
	flag.Parse()

	fmt.Println("========================================")
	fmt.Println("  FastTest - MPSYNC 快照/状态机测试工具")
	fmt.Println("========================================")

	// 1. 加载原始报文
	data, err := os.ReadFile(*orderPath)
	if err != nil {
		fmt.Printf("❌ Failed to read order file: %v\n", err)
		os.Exit(1)
	}

	var raw marketplace.RawOrder
	if err := json.Unmarshal(data, &raw); err != nil {
		fmt.Printf("❌ Failed to parse order file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Loaded raw order %d (%s/%s)\n", raw.ID, raw.Status, raw.Substatus)

	// 2. 快照映射
	snap, err := snapshot.Map(&raw, *profileID, *campaignID, *prefix)
	if err != nil {
		fmt.Printf("❌ Snapshot mapping failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Snapshot: %s\n", snap)
	fmt.Printf("   channel=%s flagged=%v lines=%d\n", snap.Channel, snap.ChannelFlagged, len(snap.Lines))
	if snap.DeliveryAddress != "" {
		fmt.Printf("   address=%q\n", snap.DeliveryAddress)
	}
	if snap.DeliveryComment != "" {
		fmt.Printf("   comment=%q\n", snap.DeliveryComment)
	}

	// 3. 状态机判定
	var decision reconcile.Decision
	if *reversal {
		if *current == "" {
			fmt.Println("❌ -reversal requires -current")
			os.Exit(1)
		}
		decision = reconcile.DecideReversal(snapshot.Status(*current), snap.DerivedStatus, snap.ExternalSubstatus)
	} else {
		var cur *snapshot.Status
		if *current != "" {
			st := snapshot.Status(*current)
			cur = &st
		}
		decision = reconcile.Decide(cur, snap.DerivedStatus, snap.ExternalSubstatus)
	}

	// 4. 打印决策
	fmt.Println("----------------------------------------")
	switch decision.Action {
	case reconcile.ActionNone:
		fmt.Printf("✅ Decision: NO-OP (%s)\n", decision.NoopCause)
	case reconcile.ActionCreate:
		fmt.Printf("✅ Decision: CREATE in status %s\n", decision.Target)
	case reconcile.ActionTransition:
		fmt.Printf("✅ Decision: TRANSITION %s -> %s\n", *current, decision.Target)
		if decision.ClearPin {
			fmt.Println("   account pin will be cleared")
		}
		if decision.Reason != "" {
			fmt.Printf("   cancel reason: %s\n", decision.Reason)
		}
	}
	fmt.Println("========================================")
}
