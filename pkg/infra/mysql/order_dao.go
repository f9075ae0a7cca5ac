package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"oms/mpsync/internal/entity"
	"oms/mpsync/pkg/errorutil"
)

// OrderDAO 订单数据访问对象
// 实现 reconcile.OrderStore 契约
type OrderDAO struct {
	db *gorm.DB
}

// NewOrderDAO 创建 OrderDAO 实例
func NewOrderDAO(db *gorm.DB) *OrderDAO {
	return &OrderDAO{db: db}
}

// GetByNumber 按单号读取订单（含订单行）
func (dao *OrderDAO) GetByNumber(ctx context.Context, number string) (*entity.Order, error) {
	var order entity.Order
	result := dao.db.WithContext(ctx).
		Preload("Items").
		Where("number = ?", number).
		First(&order)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errorutil.NotFound(fmt.Sprintf("order %s not found", number))
		}
		return nil, fmt.Errorf("failed to get order: %w", result.Error)
	}

	return &order, nil
}

// Create 事务性创建订单与订单行
// gorm 关联写入保证整体原子：任一订单行失败则订单不落库
func (dao *OrderDAO) Create(ctx context.Context, order *entity.Order) error {
	if err := dao.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order %s: %w", order.Number, err)
	}
	return nil
}

// ApplyTransition 带乐观版本检查的状态写入
// WHERE version = ? 未命中说明订单被并发写入，返回 KindConflict 由
// 调用方重试
func (dao *OrderDAO) ApplyTransition(ctx context.Context, number string, version int64, updates map[string]interface{}) error {
	updates["version"] = version + 1

	result := dao.db.WithContext(ctx).
		Model(&entity.Order{}).
		Where("number = ? AND version = ?", number, version).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update order %s: %w", number, result.Error)
	}

	if result.RowsAffected == 0 {
		return errorutil.Conflict(fmt.Sprintf("order %s version %d superseded by concurrent write", number, version))
	}

	return nil
}

// ListCompletedSince 列出时间窗内完成的订单（取消复查候选）
func (dao *OrderDAO) ListCompletedSince(ctx context.Context, profileID int64, since time.Time) ([]entity.Order, error) {
	var orders []entity.Order
	result := dao.db.WithContext(ctx).
		Where("profile_id = ? AND status = ? AND updated_at >= ?",
			profileID, entity.OrderStatusCompleted, since).
		Find(&orders)

	if result.Error != nil {
		return nil, fmt.Errorf("failed to list completed orders: %w", result.Error)
	}

	return orders, nil
}
