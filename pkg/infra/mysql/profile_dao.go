package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"oms/mpsync/internal/entity"
	"oms/mpsync/pkg/errorutil"
)

// ProfileDAO 商户档案数据访问对象
// 实现 reconcile.AccountResolver 契约
type ProfileDAO struct {
	db *gorm.DB
}

// NewProfileDAO 创建 ProfileDAO 实例
func NewProfileDAO(db *gorm.DB) *ProfileDAO {
	return &ProfileDAO{db: db}
}

// ListProfiles 列出全部商户档案（轮询器遍历用）
func (dao *ProfileDAO) ListProfiles(ctx context.Context) ([]entity.Profile, error) {
	var profiles []entity.Profile
	if err := dao.db.WithContext(ctx).Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

// GetProfile 按 ID 读取商户档案
func (dao *ProfileDAO) GetProfile(ctx context.Context, profileID int64) (*entity.Profile, error) {
	var profile entity.Profile
	result := dao.db.WithContext(ctx).Where("id = ?", profileID).First(&profile)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errorutil.NotFound(fmt.Sprintf("profile %d not found", profileID))
		}
		return nil, fmt.Errorf("failed to get profile: %w", result.Error)
	}
	return &profile, nil
}

// AccountForProfile 解析 Profile 绑定的内部账号
// uk_profile 唯一索引保证至多一个账号
func (dao *ProfileDAO) AccountForProfile(ctx context.Context, profileID int64) (int64, error) {
	var account entity.Account
	result := dao.db.WithContext(ctx).Where("profile_id = ?", profileID).First(&account)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, errorutil.NotFound(fmt.Sprintf("no account for profile %d", profileID))
		}
		return 0, fmt.Errorf("failed to resolve account: %w", result.Error)
	}
	return account.ID, nil
}
