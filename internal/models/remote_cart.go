package models

import "time"

// RemoteCart 远端购物车文档（每个用户一份，整体覆盖写入）
type RemoteCart struct {
	UserID    uint      `gorm:"primarykey;autoIncrement:false" json:"user_id"` // 用户 ID
	Items     CartItems `gorm:"type:text" json:"items"`                        // 商品数组
	Version   uint64    `gorm:"not null;default:0" json:"version"`             // 写入版本
	CreatedAt time.Time `json:"created_at"`                                    // 创建时间
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`                       // 更新时间
}

// TableName 指定表名
func (RemoteCart) TableName() string {
	return "remote_carts"
}
