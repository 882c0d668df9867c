package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/caisse-next/internal/cache"
	"github.com/caisse-next/internal/logger"
	"github.com/caisse-next/internal/models"
	"github.com/caisse-next/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CheckoutService 结账服务
type CheckoutService struct {
	db           *gorm.DB
	cartRepo     *repository.GormRemoteCartRepository
	purchaseRepo *repository.GormPurchaseRepository
}

// NewCheckoutService 创建结账服务
func NewCheckoutService(db *gorm.DB, cartRepo *repository.GormRemoteCartRepository, purchaseRepo *repository.GormPurchaseRepository) *CheckoutService {
	return &CheckoutService{
		db:           db,
		cartRepo:     cartRepo,
		purchaseRepo: purchaseRepo,
	}
}

// Checkout 将当前购物车转为购买记录并删除购物车
func (s *CheckoutService) Checkout(ctx context.Context, userID uint) (*models.Purchase, error) {
	if userID == 0 {
		return nil, ErrNotFound
	}
	var purchase *models.Purchase
	err := s.db.Transaction(func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		cart, err := cartRepo.GetByUser(userID)
		if err != nil {
			return err
		}
		if cart == nil || len(cart.Items) == 0 {
			return ErrCartEmpty
		}
		deleted, err := cartRepo.DeleteIfVersion(userID, cart.Version)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrCheckoutConflict
		}

		items := models.CartItems(models.DedupeBySignature(cart.Items))
		record := &models.Purchase{
			OrderNo:     generateOrderNo(),
			UserID:      userID,
			Items:       items,
			ItemCount:   items.Count(),
			TotalAmount: models.NewMoneyFromDecimal(items.Total()),
			PurchasedAt: time.Now(),
		}
		if err := s.purchaseRepo.WithTx(tx).Create(record); err != nil {
			return err
		}
		purchase = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	_ = cache.DelCartSnapshot(ctx, userID)
	logger.Infow("checkout_completed",
		"user_id", userID,
		"order_no", purchase.OrderNo,
		"item_count", purchase.ItemCount,
		"total", purchase.TotalAmount.String(),
	)
	return purchase, nil
}

// ListPurchases 购买历史（新到旧）
func (s *CheckoutService) ListPurchases(userID uint, page, pageSize int) ([]models.Purchase, int64, error) {
	return s.purchaseRepo.ListByUser(userID, page, pageSize)
}

func generateOrderNo() string {
	now := time.Now().Format("20060102150405")
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return fmt.Sprintf("CS%s%s%s", now, randNumeric(2), suffix)
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(n.String())
	}
	return b.String()
}
