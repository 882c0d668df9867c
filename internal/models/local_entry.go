package models

import "time"

// LocalEntry 终端本地键值存储（整值覆盖写入）
type LocalEntry struct {
	Key       string    `gorm:"primarykey;size:191" json:"key"` // 保留键
	Value     string    `gorm:"type:text" json:"value"`         // JSON 编码的值
	UpdatedAt time.Time `json:"updated_at"`                     // 最近写入时间
}

// TableName 指定表名
func (LocalEntry) TableName() string {
	return "local_entries"
}
