package repository

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/caisse-next/internal/logger"
	"github.com/caisse-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrEmptyLocalKey 本地存储键为空
var ErrEmptyLocalKey = errors.New("local store key is empty")

// LocalStore 终端本地键值存储
// Save 失败只记录日志并返回错误值；Load 在缺失或损坏时返回 false，调用方使用空默认值。
type LocalStore interface {
	Save(key string, value interface{}) error
	Load(key string, dest interface{}) bool
	Delete(key string) error
}

// GormLocalStore GORM 实现
type GormLocalStore struct {
	db *gorm.DB
}

// NewLocalStore 创建本地存储
func NewLocalStore(db *gorm.DB) *GormLocalStore {
	return &GormLocalStore{db: db}
}

// Save 整值覆盖写入
func (s *GormLocalStore) Save(key string, value interface{}) error {
	key = strings.TrimSpace(key)
	if key == "" {
		logger.Warnw("local_store_save_skip_empty_key")
		return ErrEmptyLocalKey
	}
	payload, err := json.Marshal(value)
	if err != nil {
		logger.Warnw("local_store_save_marshal_failed", "key", key, "error", err)
		return err
	}
	entry := models.LocalEntry{
		Key:       key,
		Value:     string(payload),
		UpdatedAt: time.Now(),
	}
	// 单条 upsert，读取方只会看到旧值或新值
	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		logger.Warnw("local_store_save_failed", "key", key, "error", err)
		return err
	}
	return nil
}

// Load 读取并解码
func (s *GormLocalStore) Load(key string, dest interface{}) bool {
	key = strings.TrimSpace(key)
	if key == "" || dest == nil {
		return false
	}
	var entry models.LocalEntry
	if err := s.db.Where("key = ?", key).First(&entry).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warnw("local_store_load_failed", "key", key, "error", err)
		}
		return false
	}
	raw := strings.TrimSpace(entry.Value)
	if raw == "" || raw == "null" || !json.Valid([]byte(raw)) {
		logger.Warnw("local_store_load_corrupt", "key", key)
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		logger.Warnw("local_store_load_decode_failed", "key", key, "error", err)
		return false
	}
	return true
}

// Delete 删除键
func (s *GormLocalStore) Delete(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyLocalKey
	}
	if err := s.db.Where("key = ?", key).Delete(&models.LocalEntry{}).Error; err != nil {
		logger.Warnw("local_store_delete_failed", "key", key, "error", err)
		return err
	}
	return nil
}

// LoadCart 读取购物车快照，缺失或损坏时返回空序列
func LoadCart(store LocalStore, key string) []models.CartItem {
	if store == nil {
		return []models.CartItem{}
	}
	var items []models.CartItem
	if !store.Load(key, &items) || items == nil {
		return []models.CartItem{}
	}
	return items
}
