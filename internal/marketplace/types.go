package marketplace

import "github.com/shopspring/decimal"

// 市场侧订单状态词汇（原文透传，派生映射见 snapshot 包）
const (
	ExtStatusCancelled = "CANCELLED"
	ExtStatusDelivery  = "DELIVERY"
	ExtStatusPickup    = "PICKUP"
	ExtStatusDelivered = "DELIVERED"
	ExtStatusUnpaid    = "UNPAID"
)

// 配送承运方类型
const (
	PartnerMarketplace = "MARKETPLACE"
	PartnerShop        = "SHOP"
)

// RawOrder 市场订单原始报文
type RawOrder struct {
	ID           int64        `json:"id"`
	Status       string       `json:"status"`
	Substatus    string       `json:"substatus"`
	CreationDate string       `json:"creationDate"` // "02-01-2006 15:04:05"
	Currency     string       `json:"currency"`
	Items        []RawItem    `json:"items"`
	Delivery     *RawDelivery `json:"delivery"`
	Buyer        *RawBuyer    `json:"buyer"`
}

// RawItem 订单行原始报文
// PriceBeforeDiscount 为市场声明的折前单价，视作事实来源，
// 客户端不做任何折扣计算
type RawItem struct {
	OfferID             string          `json:"offerId"`
	PriceBeforeDiscount decimal.Decimal `json:"priceBeforeDiscount"`
	Count               int             `json:"count"`
}

// RawDelivery 配送原始报文
type RawDelivery struct {
	Type                string        `json:"type"`
	DeliveryPartnerType string        `json:"deliveryPartnerType"`
	Address             *RawAddress   `json:"address"`
	Dates               *RawDates     `json:"dates"`
	Shipments           []RawShipment `json:"shipments"`
}

// RawAddress 地址原始报文
type RawAddress struct {
	Country    string  `json:"country"`
	Postcode   string  `json:"postcode"`
	City       string  `json:"city"`
	Subway     string  `json:"subway"`
	Street     string  `json:"street"`
	House      string  `json:"house"`
	Block      string  `json:"block"`
	Entrance   string  `json:"entrance"`
	Entryphone string  `json:"entryphone"`
	Floor      string  `json:"floor"`
	Apartment  string  `json:"apartment"`
	Recipient  string  `json:"recipient"`
	Phone      string  `json:"phone"`
	Notes      string  `json:"notes"`
	GPS        *RawGPS `json:"gps"`
}

// RawGPS 坐标
type RawGPS struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RawDates 配送日期
type RawDates struct {
	FromDate string `json:"fromDate"` // "02-01-2006"
}

// RawShipment 包裹分组标识（posting），与订单本身是不同的维度
type RawShipment struct {
	ID int64 `json:"id"`
}

// RawBuyer 买家原始报文
type RawBuyer struct {
	LastName   string `json:"lastName"`
	FirstName  string `json:"firstName"`
	MiddleName string `json:"middleName"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
}

// ListFilter 订单列表过滤条件
// 游标（页码 + 起始时间）由调用方显式传入，客户端不持有任何可变状态
type ListFilter struct {
	Statuses    []string
	UpdatedFrom string // "02-01-2006"，空表示不过滤
	Page        int
	PageSize    int
}

// OrderPage 订单列表单页结果
type OrderPage struct {
	Orders  []RawOrder `json:"orders"`
	Pager   Pager      `json:"pager"`
	HasNext bool       `json:"-"`
}

// Pager 市场侧分页信息
type Pager struct {
	Total       int `json:"total"`
	PagesCount  int `json:"pagesCount"`
	CurrentPage int `json:"currentPage"`
}
