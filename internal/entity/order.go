package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// 内部订单状态常量
// 与快照的派生状态共用同一套词汇
const (
	OrderStatusUnpaid     = "UNPAID"
	OrderStatusNew        = "NEW"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusDelivery   = "DELIVERY"
	OrderStatusCompleted  = "COMPLETED"
	OrderStatusCanceled   = "CANCELED"
)

// 履约渠道常量
const (
	ChannelMarketplaceFulfilled = "MARKETPLACE_FBS"
	ChannelMerchantFulfilled    = "MERCHANT_DBS"
)

// Order 内部订单实体
// 单号全局唯一（含市场前缀），取消是状态而非删除
type Order struct {
	ID         uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	Number     string `gorm:"column:number;type:varchar(64);not null;uniqueIndex:uk_number"`
	ExternalID int64  `gorm:"column:external_id;not null;index:idx_external"`
	ProfileID  int64  `gorm:"column:profile_id;not null;index:idx_profile_status"`
	// CampaignID 订单来源店铺，取消复查按此直查市场侧
	CampaignID string `gorm:"column:campaign_id;type:varchar(32);not null"`

	Status string `gorm:"column:status;type:varchar(16);not null;index:idx_profile_status"`
	// Version 乐观锁版本号，每次状态写入自增
	Version int64 `gorm:"column:version;not null;default:0"`

	Channel string `gorm:"column:channel;type:varchar(24);not null"`
	// ChannelFlagged 履约渠道无法识别时置位，提示人工确认
	ChannelFlagged bool   `gorm:"column:channel_flagged;not null;default:false"`
	CancelReason   string `gorm:"column:cancel_reason;type:varchar(255)"`

	// PinnedAccountID 未付款订单绑定的责任账号，付款后清除
	PinnedAccountID *int64 `gorm:"column:pinned_account_id"`

	BuyerName  string `gorm:"column:buyer_name;type:varchar(255)"`
	BuyerPhone string `gorm:"column:buyer_phone;type:varchar(32)"`
	BuyerEmail string `gorm:"column:buyer_email;type:varchar(255)"`

	DeliveryAddress string     `gorm:"column:delivery_address;type:varchar(512)"`
	DeliveryComment string     `gorm:"column:delivery_comment;type:varchar(1024)"`
	DeliveryDate    *time.Time `gorm:"column:delivery_date"`
	GeoLat          *float64   `gorm:"column:geo_lat"`
	GeoLon          *float64   `gorm:"column:geo_lon"`

	// RawPayload 市场侧原始报文，排障用
	RawPayload datatypes.JSON `gorm:"column:raw_payload;type:json"`

	OrderedAt time.Time `gorm:"column:ordered_at;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index:idx_created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`

	Items []OrderItem `gorm:"foreignKey:OrderID"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "mp_orders"
}

// OrderItem 订单行
// 货号唯一，价格为市场声明的折前单价
type OrderItem struct {
	ID      uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID uint64 `gorm:"column:order_id;not null;index:idx_order"`

	Article   string          `gorm:"column:article;type:varchar(128);not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:decimal(12,2);not null"`
	Currency  string          `gorm:"column:currency;type:varchar(8);not null"`
	Quantity  int             `gorm:"column:quantity;not null"`

	// 目录解析结果
	CatalogEventID int64  `gorm:"column:catalog_event_id;not null"`
	OfferID        *int64 `gorm:"column:offer_id"`
	VariationID    *int64 `gorm:"column:variation_id"`
	ModificationID *int64 `gorm:"column:modification_id"`

	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "mp_order_items"
}
