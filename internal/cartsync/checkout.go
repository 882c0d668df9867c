package cartsync

import (
	"context"
	"fmt"

	"github.com/caisse-next/internal/constants"
	"github.com/caisse-next/internal/models"
	"github.com/caisse-next/internal/repository"
)

// historyLimit 本地缓存的结账记录上限
const historyLimit = 50

// Checkout 结账与购买历史
type Checkout struct {
	manager    *CartManager
	client     PurchaseClient
	store      repository.LocalStore
	historyKey string
}

// NewCheckout 创建结账流程
func NewCheckout(manager *CartManager, client PurchaseClient, store repository.LocalStore) *Checkout {
	return &Checkout{
		manager:    manager,
		client:     client,
		store:      store,
		historyKey: constants.LocalKeyHistory,
	}
}

// Checkout 先完成一次对账，远端确认后再结账
func (c *Checkout) Checkout(ctx context.Context) (*models.Purchase, error) {
	user, ok := c.manager.remoteUser()
	if !ok || c.client == nil {
		return nil, ErrCheckoutUnavailable
	}
	if len(c.manager.Items()) == 0 {
		return nil, ErrCartEmpty
	}

	result, err := c.manager.Reconcile(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
	}
	if !result.Published() {
		return nil, ErrCheckoutUnavailable
	}
	if len(result.Items) == 0 {
		return nil, ErrCartEmpty
	}

	purchase, err := c.client.Checkout(ctx, user.ID)
	if err != nil {
		c.manager.log.Warnw("checkout_failed", "user_id", user.ID, "items", len(result.Items), "error", err)
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}

	c.manager.Settle(purchase.Items)
	c.remember(*purchase)
	c.manager.log.Infow("checkout_completed",
		"user_id", user.ID,
		"order_no", purchase.OrderNo,
		"item_count", purchase.ItemCount,
		"total", purchase.TotalAmount.String(),
	)
	return purchase, nil
}

// History 在线时读取远端并刷新本地缓存；否则返回缓存，第二个返回值表示结果来自缓存
func (c *Checkout) History(ctx context.Context) ([]models.Purchase, bool) {
	user, ok := c.manager.remoteUser()
	if ok && c.client != nil {
		purchases, err := c.client.ListPurchases(ctx, user.ID)
		if err == nil {
			if purchases == nil {
				purchases = []models.Purchase{}
			}
			if len(purchases) > historyLimit {
				purchases = purchases[:historyLimit]
			}
			if err := c.store.Save(c.historyKey, purchases); err != nil {
				c.manager.log.Warnw("history_cache_save_failed", "error", err)
			}
			return purchases, false
		}
		c.manager.log.Warnw("history_remote_read_failed", "user_id", user.ID, "error", err)
	}
	return c.cached(), true
}

func (c *Checkout) remember(purchase models.Purchase) {
	history := append([]models.Purchase{purchase}, c.cached()...)
	if len(history) > historyLimit {
		history = history[:historyLimit]
	}
	if err := c.store.Save(c.historyKey, history); err != nil {
		c.manager.log.Warnw("history_cache_save_failed", "error", err)
	}
}

func (c *Checkout) cached() []models.Purchase {
	var purchases []models.Purchase
	if !c.store.Load(c.historyKey, &purchases) || purchases == nil {
		return []models.Purchase{}
	}
	return purchases
}
