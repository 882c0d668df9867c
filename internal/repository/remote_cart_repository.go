package repository

import (
	"errors"
	"time"

	"github.com/caisse-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RemoteCartRepository 远端购物车文档数据访问接口
type RemoteCartRepository interface {
	GetByUser(userID uint) (*models.RemoteCart, error)
	Save(userID uint, items models.CartItems) (*models.RemoteCart, error)
	DeleteByUser(userID uint) error
	DeleteIfVersion(userID uint, version uint64) (bool, error)
	ListStale(before time.Time, limit int) ([]models.RemoteCart, error)
	WithTx(tx *gorm.DB) *GormRemoteCartRepository
}

// GormRemoteCartRepository GORM 实现
type GormRemoteCartRepository struct {
	db *gorm.DB
}

// NewRemoteCartRepository 创建远端购物车仓库
func NewRemoteCartRepository(db *gorm.DB) *GormRemoteCartRepository {
	return &GormRemoteCartRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRemoteCartRepository) WithTx(tx *gorm.DB) *GormRemoteCartRepository {
	if tx == nil {
		return r
	}
	return &GormRemoteCartRepository{db: tx}
}

// GetByUser 获取用户购物车文档，不存在返回 nil
func (r *GormRemoteCartRepository) GetByUser(userID uint) (*models.RemoteCart, error) {
	var cart models.RemoteCart
	if err := r.db.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cart, nil
}

// Save 整体覆盖写入商品数组并递增版本
func (r *GormRemoteCartRepository) Save(userID uint, items models.CartItems) (*models.RemoteCart, error) {
	if items == nil {
		items = models.CartItems{}
	}
	var saved *models.RemoteCart
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var cart models.RemoteCart
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(&cart).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cart = models.RemoteCart{
				UserID:  userID,
				Items:   items,
				Version: 1,
			}
			if err := tx.Create(&cart).Error; err != nil {
				return err
			}
			saved = &cart
			return nil
		}
		if err != nil {
			return err
		}
		cart.Items = items
		cart.Version++
		if err := tx.Save(&cart).Error; err != nil {
			return err
		}
		saved = &cart
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// DeleteByUser 删除用户购物车文档
func (r *GormRemoteCartRepository) DeleteByUser(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.RemoteCart{}).Error
}

// DeleteIfVersion 版本未变化时删除（过期任务使用）
func (r *GormRemoteCartRepository) DeleteIfVersion(userID uint, version uint64) (bool, error) {
	result := r.db.Where("user_id = ? AND version = ?", userID, version).Delete(&models.RemoteCart{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListStale 列出指定时间前未更新的购物车
func (r *GormRemoteCartRepository) ListStale(before time.Time, limit int) ([]models.RemoteCart, error) {
	if limit <= 0 {
		limit = 100
	}
	var carts []models.RemoteCart
	if err := r.db.Where("updated_at < ?", before).Order("updated_at asc").Limit(limit).Find(&carts).Error; err != nil {
		return nil, err
	}
	return carts, nil
}
