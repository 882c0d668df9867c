package models

import "time"

// Purchase 结账记录
type Purchase struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	OrderNo     string    `gorm:"uniqueIndex;size:64;not null" json:"order_no"` // 订单号
	UserID      uint      `gorm:"index;not null" json:"user_id"`                // 用户 ID
	Items       CartItems `gorm:"type:text" json:"items"`                       // 结账时的商品快照
	ItemCount   int       `gorm:"not null;default:0" json:"item_count"`         // 商品件数
	TotalAmount Money     `gorm:"type:decimal(20,2);not null" json:"total_amount"`
	PurchasedAt time.Time `gorm:"index" json:"purchased_at"` // 结账时间
	CreatedAt   time.Time `json:"created_at"`
}

// TableName 指定表名
func (Purchase) TableName() string {
	return "purchases"
}
