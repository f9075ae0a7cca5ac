package snapshot

import (
	"fmt"
	"strings"

	"oms/mpsync/internal/marketplace"
)

// BuildStreetAddress 构造结构化街道地址
// 仅包含地理定位字段；GPS、邮编和任何个人信息一律不进入结构化地址
func BuildStreetAddress(addr *marketplace.RawAddress) string {
	if addr == nil {
		return ""
	}

	parts := make([]string, 0, 4)
	for _, p := range []string{addr.City, addr.Street, addr.House} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if addr.Block != "" {
		parts = append(parts, "bld "+addr.Block)
	}

	return strings.Join(parts, ", ")
}

// BuildComment 构造快递员备注通道
// 收件人、电话、楼层/门牌、地铁站、开门密码等敏感或自由文本字段
// 全部归入此处
func BuildComment(addr *marketplace.RawAddress, buyer *marketplace.RawBuyer) string {
	parts := make([]string, 0, 8)

	if addr != nil {
		if addr.Apartment != "" {
			parts = append(parts, "apt "+addr.Apartment)
		}
		if addr.Entrance != "" {
			parts = append(parts, "entrance "+addr.Entrance)
		}
		if addr.Floor != "" {
			parts = append(parts, "floor "+addr.Floor)
		}
		if addr.Entryphone != "" {
			parts = append(parts, "intercom "+addr.Entryphone)
		}
		if addr.Subway != "" {
			parts = append(parts, "subway "+addr.Subway)
		}

		recipient := addr.Recipient
		phone := addr.Phone
		if recipient == "" && buyer != nil {
			recipient = strings.TrimSpace(buyer.LastName + " " + buyer.FirstName)
		}
		if phone == "" && buyer != nil {
			phone = buyer.Phone
		}
		if recipient != "" {
			parts = append(parts, "recipient: "+recipient)
		}
		if phone != "" {
			parts = append(parts, "phone: "+phone)
		}

		if addr.Notes != "" {
			parts = append(parts, fmt.Sprintf("note: %s", addr.Notes))
		}
	}

	return strings.Join(parts, "; ")
}
