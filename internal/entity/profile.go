package entity

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Profile 商户档案
// 一个 Profile 可运营多个市场店铺（campaign），主店铺之外的记录在
// ExtraCampaignIDs（JSON 字符串数组）
type Profile struct {
	ID               int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Name             string         `gorm:"column:name;type:varchar(255);not null"`
	CampaignID       string         `gorm:"column:campaign_id;type:varchar(64);not null;uniqueIndex:uk_campaign"`
	ExtraCampaignIDs datatypes.JSON `gorm:"column:extra_campaign_ids;type:json"`
	CreatedAt        time.Time      `gorm:"column:created_at;not null"`
}

// TableName 指定表名
func (Profile) TableName() string {
	return "mp_profiles"
}

// Campaigns 返回主店铺 + 备选店铺的有序列表
func (p *Profile) Campaigns() []string {
	ids := []string{p.CampaignID}

	if len(p.ExtraCampaignIDs) == 0 {
		return ids
	}

	var extra []string
	if err := json.Unmarshal(p.ExtraCampaignIDs, &extra); err != nil {
		return ids
	}

	return append(ids, extra...)
}
