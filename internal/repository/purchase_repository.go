package repository

import (
	"github.com/caisse-next/internal/models"

	"gorm.io/gorm"
)

// PurchaseRepository 结账记录数据访问接口
type PurchaseRepository interface {
	Create(purchase *models.Purchase) error
	ListByUser(userID uint, page, pageSize int) ([]models.Purchase, int64, error)
	WithTx(tx *gorm.DB) *GormPurchaseRepository
}

// GormPurchaseRepository GORM 实现
type GormPurchaseRepository struct {
	db *gorm.DB
}

// NewPurchaseRepository 创建结账记录仓库
func NewPurchaseRepository(db *gorm.DB) *GormPurchaseRepository {
	return &GormPurchaseRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPurchaseRepository) WithTx(tx *gorm.DB) *GormPurchaseRepository {
	if tx == nil {
		return r
	}
	return &GormPurchaseRepository{db: tx}
}

// Create 创建结账记录
func (r *GormPurchaseRepository) Create(purchase *models.Purchase) error {
	return r.db.Create(purchase).Error
}

// ListByUser 用户结账历史（最新在前）
func (r *GormPurchaseRepository) ListByUser(userID uint, page, pageSize int) ([]models.Purchase, int64, error) {
	query := r.db.Model(&models.Purchase{}).Where("user_id = ?", userID)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var purchases []models.Purchase
	if err := paginate(query, page, pageSize).Order("purchased_at DESC, id DESC").Find(&purchases).Error; err != nil {
		return nil, 0, err
	}
	return purchases, total, nil
}

// paginate 按页截取，非法页码视为第一页
func paginate(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}
