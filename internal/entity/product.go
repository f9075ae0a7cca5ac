package entity

import "time"

// Product 商品目录条目
// 市场货号（article）到内部目录标识的映射
type Product struct {
	ID             int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Article        string `gorm:"column:article;type:varchar(128);not null;uniqueIndex:uk_article"`
	CatalogEventID int64  `gorm:"column:catalog_event_id;not null"`
	OfferID        *int64 `gorm:"column:offer_id"`
	VariationID    *int64 `gorm:"column:variation_id"`
	ModificationID *int64 `gorm:"column:modification_id"`

	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

// TableName 指定表名
func (Product) TableName() string {
	return "mp_products"
}
