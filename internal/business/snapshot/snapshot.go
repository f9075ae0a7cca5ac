package snapshot

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"oms/mpsync/internal/entity"
)

// Status 派生的内部生命周期状态
type Status string

const (
	StatusUnpaid     Status = entity.OrderStatusUnpaid
	StatusNew        Status = entity.OrderStatusNew
	StatusProcessing Status = entity.OrderStatusProcessing
	StatusDelivery   Status = entity.OrderStatusDelivery
	StatusCompleted  Status = entity.OrderStatusCompleted
	StatusCanceled   Status = entity.OrderStatusCanceled
)

// Channel 履约渠道
type Channel string

const (
	// ChannelMarketplaceFulfilled 市场自营配送（FBS 类）
	ChannelMarketplaceFulfilled Channel = entity.ChannelMarketplaceFulfilled
	// ChannelMerchantFulfilled 商家自配送（DBS 类）
	ChannelMerchantFulfilled Channel = entity.ChannelMerchantFulfilled
)

// Line 订单行（货号唯一，折前单价）
type Line struct {
	Article   string
	UnitPrice decimal.Decimal
	Currency  string
	Quantity  int
}

// Buyer 买家信息
type Buyer struct {
	Name  string
	Phone string
	Email string
}

// Snapshot 订单快照
// 由一次轮询/查询的原始报文构造，构造后不可变；所有派生字段都是
// 原始报文的纯函数
type Snapshot struct {
	ExternalID int64
	Number     string
	ProfileID  int64
	CampaignID string

	CreatedAt time.Time

	ExternalStatus    string
	ExternalSubstatus string
	DerivedStatus     Status

	Channel Channel
	// ChannelFlagged 承运方类型无法识别，渠道取缺省值并等待人工确认
	ChannelFlagged bool

	Lines []Line
	Buyer *Buyer

	DeliveryAddress string
	DeliveryComment string
	GeoLat          *float64
	GeoLon          *float64
	DeliveryDate    *time.Time

	// ShipmentHints 市场侧包裹分组标识（posting），原样保留
	ShipmentHints []string

	// Raw 原始报文，仅用于落库排障
	Raw json.RawMessage
}
