package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"oms/mpsync/internal/business/reconcile"
	"oms/mpsync/internal/entity"
	"oms/mpsync/pkg/errorutil"
)

// CatalogDAO 商品目录数据访问对象
// 实现 reconcile.CatalogLookup 契约
type CatalogDAO struct {
	db *gorm.DB
}

// NewCatalogDAO 创建 CatalogDAO 实例
func NewCatalogDAO(db *gorm.DB) *CatalogDAO {
	return &CatalogDAO{db: db}
}

// ResolveByArticle 按货号解析内部目录标识
func (dao *CatalogDAO) ResolveByArticle(ctx context.Context, article string) (*reconcile.CatalogRef, error) {
	var product entity.Product
	result := dao.db.WithContext(ctx).
		Where("article = ?", article).
		First(&product)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errorutil.NotFound(fmt.Sprintf("article %q not in catalog", article))
		}
		return nil, fmt.Errorf("failed to resolve article: %w", result.Error)
	}

	return &reconcile.CatalogRef{
		CatalogEventID: product.CatalogEventID,
		OfferID:        product.OfferID,
		VariationID:    product.VariationID,
		ModificationID: product.ModificationID,
	}, nil
}
