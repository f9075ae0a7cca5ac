package reconcile

import "fmt"

// cancelReasons 市场 substatus → 人读取消原因的固定映射表
var cancelReasons = map[string]string{
	"USER_CHANGED_MIND":       "buyer changed their mind",
	"USER_NOT_PAID":           "order was not paid in time",
	"USER_REFUSED_DELIVERY":   "buyer refused delivery",
	"USER_REFUSED_PRODUCT":    "buyer refused the product",
	"USER_BOUGHT_CHEAPER":     "buyer found a better price elsewhere",
	"USER_UNREACHABLE":        "buyer could not be reached",
	"SHOP_FAILED":             "shop could not fulfil the order",
	"PROCESSING_EXPIRED":      "processing deadline expired",
	"REPLACING_ORDER":         "order was replaced by a new one",
	"DELIVERY_SERVICE_FAILED": "delivery service failed to deliver",
	"COURIER_NOT_FOUND":       "no courier was found for the order",
}

// CancelReason 返回取消原因文本；未知 substatus 给出格式化兜底
func CancelReason(substatus string) string {
	if reason, ok := cancelReasons[substatus]; ok {
		return reason
	}
	if substatus == "" {
		return "canceled by marketplace"
	}
	return fmt.Sprintf("canceled by marketplace (substatus %q)", substatus)
}
