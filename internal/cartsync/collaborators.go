package cartsync

import (
	"context"
	"errors"

	"github.com/caisse-next/internal/models"
)

var (
	// ErrRemoteUnavailable 远端不可用（离线、无会话或请求失败）
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	// ErrInvalidCartItem 商品行无效
	ErrInvalidCartItem = errors.New("invalid cart item")
	// ErrCartItemNotFound 购物车中不存在该商品
	ErrCartItemNotFound = errors.New("cart item not found")
	// ErrCheckoutUnavailable 结账需要在线会话且购物车已同步
	ErrCheckoutUnavailable = errors.New("checkout requires an online session")
	// ErrCartEmpty 购物车为空
	ErrCartEmpty = errors.New("cart is empty")
	// ErrPendingUnsynced 仍有未经远端确认的操作
	ErrPendingUnsynced = errors.New("pending operations not synced")
)

// User 当前会话用户
type User struct {
	ID uint `json:"id"`
}

// RemoteStore 远端购物车文档存储
type RemoteStore interface {
	ReadCart(ctx context.Context, userID uint) ([]models.CartItem, error)
	WriteCart(ctx context.Context, userID uint, items []models.CartItem) error
}

// PurchaseClient 远端结账接口
type PurchaseClient interface {
	Checkout(ctx context.Context, userID uint) (*models.Purchase, error)
	ListPurchases(ctx context.Context, userID uint) ([]models.Purchase, error)
}

// Connectivity 网络状态来源，Subscribe 只在状态翻转时回调
type Connectivity interface {
	IsOnline() bool
	Subscribe(fn func(online bool)) (unsubscribe func())
}

// Auth 会话来源，无有效会话时返回 nil
type Auth interface {
	CurrentUser() *User
}
