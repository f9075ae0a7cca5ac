package entity

import "time"

// Account 内部账号实体
// 一个 Profile 至多绑定一个账号，订单创建前必须能解析到
type Account struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ProfileID int64     `gorm:"column:profile_id;not null;uniqueIndex:uk_profile"`
	Name      string    `gorm:"column:name;type:varchar(255);not null"`
	Email     string    `gorm:"column:email;type:varchar(255);uniqueIndex:uk_email;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

// TableName 指定表名
func (Account) TableName() string {
	return "mp_accounts"
}
