package cartsync

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/caisse-next/internal/constants"
	"github.com/caisse-next/internal/logger"
	"github.com/caisse-next/internal/models"
	"github.com/caisse-next/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Options 购物车管理器依赖
type Options struct {
	Store        repository.LocalStore
	Queue        *repository.PendingQueue
	Remote       RemoteStore
	Connectivity Connectivity
	Auth         Auth
	CartKey      string
	Now          func() time.Time
	Logger       *zap.SugaredLogger
}

// CartManager 会话内购物车的唯一内存视图
// 每次变更先写内存，再写本地存储，最后尽力写远端；远端失败转入待同步队列。
type CartManager struct {
	mu            sync.Mutex
	items         []models.CartItem
	owner         uint
	persistFailed bool

	store   repository.LocalStore
	queue   *repository.PendingQueue
	remote  RemoteStore
	conn    Connectivity
	auth    Auth
	cartKey string
	now     func() time.Time
	log     *zap.SugaredLogger

	flight singleflight.Group
}

// NewCartManager 创建购物车管理器
func NewCartManager(opts Options) *CartManager {
	cartKey := opts.CartKey
	if cartKey == "" {
		cartKey = constants.LocalKeyCart
	}
	queue := opts.Queue
	if queue == nil {
		queue = repository.NewPendingQueue(opts.Store, constants.PendingDomainCart)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = logger.Named("cartsync")
	}
	return &CartManager{
		items:   []models.CartItem{},
		store:   opts.Store,
		queue:   queue,
		remote:  opts.Remote,
		conn:    opts.Connectivity,
		auth:    opts.Auth,
		cartKey: cartKey,
		now:     now,
		log:     log,
	}
}

// Initialize 载入本地快照；有会话且在线时立即对账
func (m *CartManager) Initialize(ctx context.Context) []models.CartItem {
	m.mu.Lock()
	m.items = repository.LoadCart(m.store, m.cartKey)
	m.persistFailed = false
	var owner uint
	if m.store.Load(m.ownerKey(), &owner) {
		m.owner = owner
	}
	m.claimLocked()
	loaded := len(m.items)
	m.mu.Unlock()
	m.log.Infow("cart_initialized", "items", loaded, "owner", owner, "pending", m.PendingCount())

	if _, ok := m.remoteUser(); ok {
		if _, err := m.Reconcile(ctx); err != nil {
			m.log.Warnw("cart_initial_reconcile_failed", "error", err)
		}
	}
	return m.Items()
}

// AddItem 加入商品；同签名商品合并到已有条目（数量累加，保留位置与 ajoute_le）
func (m *CartManager) AddItem(ctx context.Context, item models.CartItem) (models.CartItem, error) {
	if err := item.Validate(); err != nil {
		return models.CartItem{}, fmt.Errorf("%w: %v", ErrInvalidCartItem, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.claimLocked()

	item = item.Normalized(m.timestamp())
	if idx := models.IndexBySignature(m.items, item.Signature()); idx >= 0 {
		existing := m.items[idx]
		existing.Nom = item.Nom
		existing.Prix = item.Prix
		existing.Quantity += item.Quantity
		m.items[idx] = existing
		item = existing
	} else {
		m.items = append(m.items, item)
	}
	m.persistLocked()
	m.commitUpsertLocked(ctx, item)
	return item, nil
}

// RemoveItem 移除签名匹配的商品
func (m *CartManager) RemoveItem(ctx context.Context, item models.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claimLocked()

	idx := models.IndexBySignature(m.items, item.Signature())
	if idx < 0 {
		return ErrCartItemNotFound
	}
	removed := m.items[idx]
	remaining := make([]models.CartItem, 0, len(m.items)-1)
	remaining = append(remaining, m.items[:idx]...)
	remaining = append(remaining, m.items[idx+1:]...)
	m.items = remaining
	m.persistLocked()

	snapshot := cloneItems(m.items)
	m.commitLocked(ctx, models.NewRemoveOperation(removed), func(ctx context.Context, userID uint) error {
		return m.remote.WriteCart(ctx, userID, snapshot)
	})
	return nil
}

// UpdateQuantity 修改数量；小于 1 时等同移除
func (m *CartManager) UpdateQuantity(ctx context.Context, item models.CartItem, quantity int) (models.CartItem, error) {
	if quantity < 1 {
		return models.CartItem{}, m.RemoveItem(ctx, item)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.claimLocked()

	idx := models.IndexBySignature(m.items, item.Signature())
	if idx < 0 {
		return models.CartItem{}, ErrCartItemNotFound
	}
	updated := m.items[idx]
	updated.Quantity = quantity
	m.items[idx] = updated
	m.persistLocked()
	m.commitUpsertLocked(ctx, updated)
	return updated, nil
}

// Items 当前购物车（存储顺序）
func (m *CartManager) Items() []models.CartItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneItems(m.items)
}

// DisplayItems 展示顺序：最近加入在前
func (m *CartManager) DisplayItems() []models.CartItem {
	items := m.Items()
	sort.SliceStable(items, func(i, j int) bool {
		return parseTimestamp(items[i].AjouteLe).After(parseTimestamp(items[j].AjouteLe))
	})
	return items
}

// Total 购物车合计
func (m *CartManager) Total() decimal.Decimal {
	return models.CartItems(m.Items()).Total()
}

// PendingCount 待同步操作数量
func (m *CartManager) PendingCount() int {
	return m.queue.Len()
}

// Reset 清空内存、本地快照、队列与归属（放弃本次购物）
func (m *CartManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discardLocked("reset")
	m.owner = 0
	if err := m.store.Delete(m.ownerKey()); err != nil {
		m.log.Warnw("cart_owner_clear_failed", "error", err)
	}
}

// Release 注销前先发布待同步操作，确认后清空购物车。
// 仍有未确认的操作时返回 ErrPendingUnsynced 并保留一切；force 时丢弃。
func (m *CartManager) Release(ctx context.Context, force bool) error {
	if m.PendingCount() > 0 {
		if result, err := m.Reconcile(ctx); err != nil || !result.Published() {
			m.log.Warnw("cart_release_reconcile_failed", "outcome", result.Outcome, "error", err)
		}
	}
	if pending := m.PendingCount(); pending > 0 && !force {
		return fmt.Errorf("%w: %d", ErrPendingUnsynced, pending)
	}
	m.Reset()
	return nil
}

// Settle 结账后移除已结算的商品
func (m *CartManager) Settle(purchased []models.CartItem) {
	m.mu.Lock()
	defer m.mu.Unlock()

	settled := make(map[string]struct{}, len(purchased))
	for _, item := range purchased {
		settled[item.Signature()] = struct{}{}
	}
	remaining := make([]models.CartItem, 0, len(m.items))
	for _, item := range m.items {
		if _, ok := settled[item.Signature()]; ok {
			continue
		}
		remaining = append(remaining, item)
	}
	m.items = remaining
	m.persistLocked()
}

func (m *CartManager) commitUpsertLocked(ctx context.Context, item models.CartItem) {
	m.commitLocked(ctx, models.NewAddOperation(item), func(ctx context.Context, userID uint) error {
		return m.upsertRemote(ctx, userID, item)
	})
}

// commitLocked 尽力写远端。离线或写失败时入队；
// 队列里还有更早的操作时，写成功也入队，回放才能保持先后顺序。
func (m *CartManager) commitLocked(ctx context.Context, op models.PendingOperation, write func(ctx context.Context, userID uint) error) {
	user, ok := m.remoteUser()
	if !ok {
		m.enqueueLocked(op, "offline")
		return
	}
	if err := write(ctx, user.ID); err != nil {
		m.log.Warnw("cart_remote_write_failed", "action", op.Action, "user_id", user.ID, "error", err)
		m.enqueueLocked(op, "remote_failed")
		return
	}
	if m.queue.Len() > 0 {
		m.enqueueLocked(op, "behind_pending")
	}
}

// claimLocked 购物车归属当前会话用户。
// 访客的购物车由首个登录用户接收；归属换人时丢弃上一位用户的购物车与队列。
func (m *CartManager) claimLocked() {
	if m.auth == nil {
		return
	}
	user := m.auth.CurrentUser()
	if user == nil || user.ID == 0 || user.ID == m.owner {
		return
	}
	if m.owner != 0 {
		m.log.Warnw("cart_owner_changed", "previous_user_id", m.owner, "user_id", user.ID)
		m.discardLocked("owner_changed")
	}
	m.owner = user.ID
	if err := m.store.Save(m.ownerKey(), m.owner); err != nil {
		m.log.Warnw("cart_owner_persist_failed", "user_id", user.ID, "error", err)
	}
}

// discardLocked 清空购物车与队列，被丢弃的操作记 warn 日志
func (m *CartManager) discardLocked(reason string) {
	for _, op := range m.queue.Drain() {
		m.log.Warnw("cart_pending_dropped", "reason", reason, "owner", m.owner, "action", op.Action, "signature", op.TargetSignature())
	}
	m.items = []models.CartItem{}
	m.persistLocked()
	if err := m.queue.Clear(); err != nil {
		m.log.Warnw("cart_queue_clear_failed", "reason", reason, "error", err)
	}
}

func (m *CartManager) ownerKey() string {
	return m.cartKey + ":owner"
}

// upsertRemote 在远端数组中按签名替换或追加
func (m *CartManager) upsertRemote(ctx context.Context, userID uint, item models.CartItem) error {
	remoteItems, err := m.remote.ReadCart(ctx, userID)
	if err != nil {
		return err
	}
	next := cloneItems(remoteItems)
	if idx := models.IndexBySignature(next, item.Signature()); idx >= 0 {
		next[idx] = item
	} else {
		next = append(next, item)
	}
	return m.remote.WriteCart(ctx, userID, next)
}

func (m *CartManager) enqueueLocked(op models.PendingOperation, reason string) {
	if err := m.queue.Enqueue(op); err != nil {
		m.log.Errorw("cart_pending_enqueue_failed", "action", op.Action, "signature", op.TargetSignature(), "error", err)
		return
	}
	m.log.Debugw("cart_pending_enqueued", "action", op.Action, "signature", op.TargetSignature(), "reason", reason)
}

func (m *CartManager) persistLocked() {
	if err := m.store.Save(m.cartKey, m.items); err != nil {
		m.persistFailed = true
		m.log.Warnw("cart_local_persist_failed", "items", len(m.items), "error", err)
		return
	}
	m.persistFailed = false
}

// localSnapshotLocked 本地快照；最近一次写本地失败时以内存为准
func (m *CartManager) localSnapshotLocked() []models.CartItem {
	if m.persistFailed {
		return cloneItems(m.items)
	}
	return repository.LoadCart(m.store, m.cartKey)
}

func (m *CartManager) remoteUser() (*User, bool) {
	if m.remote == nil || m.auth == nil || m.conn == nil {
		return nil, false
	}
	user := m.auth.CurrentUser()
	if user == nil || user.ID == 0 {
		return nil, false
	}
	if !m.conn.IsOnline() {
		return nil, false
	}
	return user, true
}

func (m *CartManager) timestamp() string {
	return models.FormatTimestamp(m.now())
}

func cloneItems(items []models.CartItem) []models.CartItem {
	cloned := make([]models.CartItem, len(items))
	copy(cloned, items)
	return cloned
}

func parseTimestamp(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
