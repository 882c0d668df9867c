package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/caisse-next/internal/models"
)

// CartSnapshot 远端购物车文档的读缓存
type CartSnapshot struct {
	UserID    uint              `json:"user_id"`
	Items     []models.CartItem `json:"items"`
	Version   uint64            `json:"version"`
	UpdatedAt int64             `json:"updated_at"`
}

func cartSnapshotKey(userID uint) string {
	return fmt.Sprintf("cart:user:%d", userID)
}

// BuildCartSnapshot 从购物车文档构建缓存
func BuildCartSnapshot(cart *models.RemoteCart) *CartSnapshot {
	if cart == nil {
		return nil
	}
	items := []models.CartItem(cart.Items)
	if items == nil {
		items = []models.CartItem{}
	}
	return &CartSnapshot{
		UserID:    cart.UserID,
		Items:     items,
		Version:   cart.Version,
		UpdatedAt: cart.UpdatedAt.Unix(),
	}
}

// GetCartSnapshot 读取购物车缓存
func GetCartSnapshot(ctx context.Context, userID uint) (*CartSnapshot, bool, error) {
	if userID == 0 {
		return nil, false, nil
	}
	var snapshot CartSnapshot
	hit, err := GetJSON(ctx, cartSnapshotKey(userID), &snapshot)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &snapshot, true, nil
}

// SetCartSnapshot 写入购物车缓存
func SetCartSnapshot(ctx context.Context, snapshot *CartSnapshot, ttl time.Duration) error {
	if snapshot == nil || snapshot.UserID == 0 {
		return nil
	}
	return SetJSON(ctx, cartSnapshotKey(snapshot.UserID), snapshot, ttl)
}

// DelCartSnapshot 删除购物车缓存
func DelCartSnapshot(ctx context.Context, userID uint) error {
	if userID == 0 {
		return nil
	}
	return Del(ctx, cartSnapshotKey(userID))
}
