package service

import (
	"context"
	"fmt"
	"time"

	"github.com/caisse-next/internal/cache"
	"github.com/caisse-next/internal/config"
	"github.com/caisse-next/internal/logger"
	"github.com/caisse-next/internal/models"
	"github.com/caisse-next/internal/queue"
	"github.com/caisse-next/internal/repository"
)

const staleSweepBatch = 100

// CartView 购物车文档响应
type CartView struct {
	Items     []models.CartItem `json:"items"`
	Version   uint64            `json:"version"`
	UpdatedAt *time.Time        `json:"updated_at,omitempty"`
}

// RemoteCartService 远端购物车文档服务
type RemoteCartService struct {
	cfg         config.CartConfig
	cartRepo    repository.RemoteCartRepository
	queueClient *queue.Client
	now         func() time.Time
}

// NewRemoteCartService 创建远端购物车服务
func NewRemoteCartService(cfg config.CartConfig, cartRepo repository.RemoteCartRepository, queueClient *queue.Client) *RemoteCartService {
	return &RemoteCartService{
		cfg:         cfg,
		cartRepo:    cartRepo,
		queueClient: queueClient,
		now:         time.Now,
	}
}

// Get 读取购物车，优先命中缓存
func (s *RemoteCartService) Get(ctx context.Context, userID uint) (*CartView, error) {
	if userID == 0 {
		return nil, ErrNotFound
	}
	if snapshot, hit, err := cache.GetCartSnapshot(ctx, userID); err == nil && hit {
		updatedAt := time.Unix(snapshot.UpdatedAt, 0)
		return &CartView{Items: snapshot.Items, Version: snapshot.Version, UpdatedAt: &updatedAt}, nil
	} else if err != nil {
		logger.Warnw("cart_cache_get_failed", "user_id", userID, "error", err)
	}

	cart, err := s.cartRepo.GetByUser(userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return &CartView{Items: []models.CartItem{}}, nil
	}
	s.storeSnapshot(ctx, cart)
	return viewOf(cart), nil
}

// Put 整体覆盖购物车；校验、补齐默认值并按签名去重
func (s *RemoteCartService) Put(ctx context.Context, userID uint, items []models.CartItem) (*CartView, error) {
	if userID == 0 {
		return nil, ErrNotFound
	}
	now := models.FormatTimestamp(s.now())
	normalized := make([]models.CartItem, 0, len(items))
	for idx, item := range items {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrInvalidCartItem, idx, err)
		}
		normalized = append(normalized, item.Normalized(now))
	}
	normalized = models.DedupeBySignature(normalized)
	if s.cfg.MaxItems > 0 && len(normalized) > s.cfg.MaxItems {
		return nil, ErrCartTooLarge
	}

	cart, err := s.cartRepo.Save(userID, normalized)
	if err != nil {
		return nil, err
	}
	s.storeSnapshot(ctx, cart)
	s.scheduleExpire(cart)
	return viewOf(cart), nil
}

// Clear 删除购物车
func (s *RemoteCartService) Clear(ctx context.Context, userID uint) error {
	if err := s.cartRepo.DeleteByUser(userID); err != nil {
		return err
	}
	_ = cache.DelCartSnapshot(ctx, userID)
	return nil
}

// ExpireIfStale 版本未变化时删除（过期任务）
func (s *RemoteCartService) ExpireIfStale(ctx context.Context, userID uint, version uint64) (bool, error) {
	deleted, err := s.cartRepo.DeleteIfVersion(userID, version)
	if err != nil {
		return false, err
	}
	if deleted {
		_ = cache.DelCartSnapshot(ctx, userID)
		logger.Infow("cart_expired", "user_id", userID, "version", version)
	}
	return deleted, nil
}

// SweepExpired 清理超过闲置时长的购物车
func (s *RemoteCartService) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	before := now.Add(-s.cfg.ExpireAfter())
	removed := 0
	for {
		carts, err := s.cartRepo.ListStale(before, staleSweepBatch)
		if err != nil {
			return removed, err
		}
		batchRemoved := 0
		for _, cart := range carts {
			deleted, err := s.ExpireIfStale(ctx, cart.UserID, cart.Version)
			if err != nil {
				return removed, err
			}
			if deleted {
				batchRemoved++
			}
		}
		removed += batchRemoved
		if len(carts) < staleSweepBatch || batchRemoved == 0 {
			return removed, nil
		}
	}
}

func (s *RemoteCartService) storeSnapshot(ctx context.Context, cart *models.RemoteCart) {
	if err := cache.SetCartSnapshot(ctx, cache.BuildCartSnapshot(cart), s.cfg.CacheTTL()); err != nil {
		logger.Warnw("cart_cache_set_failed", "user_id", cart.UserID, "error", err)
	}
}

func (s *RemoteCartService) scheduleExpire(cart *models.RemoteCart) {
	if s.queueClient == nil {
		return
	}
	payload := queue.CartExpirePayload{UserID: cart.UserID, Version: cart.Version}
	if err := s.queueClient.EnqueueCartExpire(payload, s.cfg.ExpireAfter()); err != nil {
		logger.Warnw("cart_expire_enqueue_failed", "user_id", cart.UserID, "version", cart.Version, "error", err)
	}
}

func viewOf(cart *models.RemoteCart) *CartView {
	items := []models.CartItem(cart.Items)
	if items == nil {
		items = []models.CartItem{}
	}
	updatedAt := cart.UpdatedAt
	return &CartView{Items: items, Version: cart.Version, UpdatedAt: &updatedAt}
}
