package snapshot

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"oms/mpsync/internal/marketplace"
	"oms/mpsync/pkg/errorutil"
)

const (
	creationDateLayout = "02-01-2006 15:04:05"
	dateOnlyLayout     = "02-01-2006"
)

// DeriveStatus 外部状态 → 派生状态的固定映射表，首条命中生效
func DeriveStatus(extStatus, extSubstatus string) Status {
	switch extStatus {
	case marketplace.ExtStatusCancelled:
		return StatusCanceled
	case marketplace.ExtStatusDelivery, marketplace.ExtStatusPickup:
		return StatusDelivery
	case marketplace.ExtStatusDelivered:
		return StatusCompleted
	case marketplace.ExtStatusUnpaid:
		return StatusUnpaid
	default:
		return StatusNew
	}
}

// OrderNumber 生成内部单号：市场前缀 + 外部单号
func OrderNumber(prefix string, externalID int64) string {
	return prefix + "-" + strconv.FormatInt(externalID, 10)
}

// Map 将市场原始报文转换为订单快照
// 纯函数，无 I/O；仅在必填字段缺失时返回 KindMalformedPayload
func Map(raw *marketplace.RawOrder, profileID int64, campaignID, numberPrefix string) (*Snapshot, error) {
	if raw == nil {
		return nil, errorutil.MalformedPayload("order")
	}
	if raw.ID == 0 {
		return nil, errorutil.MalformedPayload("id")
	}
	if raw.Status == "" {
		return nil, errorutil.MalformedPayload("status")
	}
	if len(raw.Items) == 0 {
		return nil, errorutil.MalformedPayload("items")
	}

	lines, err := mapLines(raw)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		ExternalID:        raw.ID,
		Number:            OrderNumber(numberPrefix, raw.ID),
		ProfileID:         profileID,
		CampaignID:        campaignID,
		ExternalStatus:    raw.Status,
		ExternalSubstatus: raw.Substatus,
		DerivedStatus:     DeriveStatus(raw.Status, raw.Substatus),
		Lines:             lines,
	}

	snap.CreatedAt = parseCreationDate(raw.CreationDate)
	snap.Channel, snap.ChannelFlagged = detectChannel(raw.Delivery)
	snap.Buyer = mapBuyer(raw.Buyer)

	if raw.Delivery != nil {
		addr := raw.Delivery.Address
		snap.DeliveryAddress = BuildStreetAddress(addr)
		snap.DeliveryComment = BuildComment(addr, raw.Buyer)

		if addr != nil && addr.GPS != nil {
			lat, lon := addr.GPS.Latitude, addr.GPS.Longitude
			snap.GeoLat, snap.GeoLon = &lat, &lon
		}

		if raw.Delivery.Dates != nil && raw.Delivery.Dates.FromDate != "" {
			if d, err := time.Parse(dateOnlyLayout, raw.Delivery.Dates.FromDate); err == nil {
				snap.DeliveryDate = &d
			}
		}

		for _, sh := range raw.Delivery.Shipments {
			snap.ShipmentHints = append(snap.ShipmentHints, strconv.FormatInt(sh.ID, 10))
		}
	}

	// 原始报文序列化失败不可能发生（刚反序列化过），保留兜底
	if data, err := json.Marshal(raw); err == nil {
		snap.Raw = data
	}

	return snap, nil
}

// mapLines 转换订单行：按货号去重，重复货号合并数量（首行价格生效）
func mapLines(raw *marketplace.RawOrder) ([]Line, error) {
	lines := make([]Line, 0, len(raw.Items))
	index := make(map[string]int, len(raw.Items))

	for _, item := range raw.Items {
		if item.OfferID == "" {
			return nil, errorutil.MalformedPayload("items.offerId")
		}
		if item.Count <= 0 {
			return nil, errorutil.MalformedPayload("items.count")
		}

		if i, ok := index[item.OfferID]; ok {
			lines[i].Quantity += item.Count
			continue
		}

		index[item.OfferID] = len(lines)
		lines = append(lines, Line{
			Article:   item.OfferID,
			UnitPrice: item.PriceBeforeDiscount,
			Currency:  raw.Currency,
			Quantity:  item.Count,
		})
	}

	return lines, nil
}

// detectChannel 根据承运方类型识别履约渠道
// 未知类型不报错：缺省按商家自配送处理并置人工确认标记，
// 拒收订单比错分渠道代价更高
func detectChannel(delivery *marketplace.RawDelivery) (Channel, bool) {
	if delivery == nil {
		return ChannelMerchantFulfilled, true
	}

	switch delivery.DeliveryPartnerType {
	case marketplace.PartnerMarketplace:
		return ChannelMarketplaceFulfilled, false
	case marketplace.PartnerShop:
		return ChannelMerchantFulfilled, false
	default:
		return ChannelMerchantFulfilled, true
	}
}

// mapBuyer 转换买家信息
func mapBuyer(raw *marketplace.RawBuyer) *Buyer {
	if raw == nil {
		return nil
	}

	name := raw.LastName
	if raw.FirstName != "" {
		if name != "" {
			name += " "
		}
		name += raw.FirstName
	}
	if raw.MiddleName != "" {
		name += " " + raw.MiddleName
	}

	return &Buyer{
		Name:  name,
		Phone: raw.Phone,
		Email: raw.Email,
	}
}

// parseCreationDate 解析下单时间，带日期兜底
func parseCreationDate(value string) time.Time {
	if t, err := time.Parse(creationDateLayout, value); err == nil {
		return t
	}
	if t, err := time.Parse(dateOnlyLayout, value); err == nil {
		return t
	}
	return time.Now().UTC()
}

// String 实现 fmt.Stringer，日志用
func (s *Snapshot) String() string {
	return fmt.Sprintf("order %s (ext %d, status %s/%s -> %s)",
		s.Number, s.ExternalID, s.ExternalStatus, s.ExternalSubstatus, s.DerivedStatus)
}
