package cartsync

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/caisse-next/internal/models"
	"github.com/caisse-next/internal/repository"

	"go.uber.org/zap"
)

var errFakeRemote = errors.New("fake remote down")

// memStore 内存版本地存储，按 JSON 保存以贴近真实行为
type memStore struct {
	mu       sync.Mutex
	values   map[string][]byte
	failSave bool
}

func newMemStore() *memStore {
	return &memStore{values: map[string][]byte{}}
}

func (s *memStore) Save(key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return errors.New("disk full")
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.values[key] = payload
	return nil
}

func (s *memStore) Load(key string, dest interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.values[key]
	if !ok {
		return false
	}
	return json.Unmarshal(payload, dest) == nil
}

func (s *memStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *memStore) raw(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.values[key])
}

// fakeRemote 远端购物车文档
type fakeRemote struct {
	mu       sync.Mutex
	carts    map[uint][]models.CartItem
	readErr  error
	writeErr error
	reads    int
	writes   int
	// readGate 非空时 ReadCart 会阻塞到通道关闭
	readGate chan struct{}
	entered  chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{carts: map[uint][]models.CartItem{}}
}

func (r *fakeRemote) ReadCart(ctx context.Context, userID uint) ([]models.CartItem, error) {
	r.mu.Lock()
	gate := r.readGate
	entered := r.entered
	r.reads++
	r.mu.Unlock()
	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.readErr != nil {
		return nil, r.readErr
	}
	return cloneItems(r.carts[userID]), nil
}

func (r *fakeRemote) WriteCart(_ context.Context, userID uint, items []models.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return r.writeErr
	}
	r.writes++
	r.carts[userID] = cloneItems(items)
	return nil
}

func (r *fakeRemote) cart(userID uint) []models.CartItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneItems(r.carts[userID])
}

func (r *fakeRemote) setErrors(readErr, writeErr error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readErr = readErr
	r.writeErr = writeErr
}

func (r *fakeRemote) readCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reads
}

// fakeConn 可控网络状态
type fakeConn struct {
	mu     sync.Mutex
	online bool
	nextID int
	subs   map[int]func(bool)
}

func newFakeConn(online bool) *fakeConn {
	return &fakeConn{online: online, subs: map[int]func(bool){}}
}

func (c *fakeConn) IsOnline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

func (c *fakeConn) Subscribe(fn func(bool)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

func (c *fakeConn) set(online bool) {
	c.mu.Lock()
	changed := c.online != online
	c.online = online
	subs := make([]func(bool), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()
	if !changed {
		return
	}
	for _, fn := range subs {
		fn(online)
	}
}

func (c *fakeConn) subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

type fakeAuth struct {
	user *User
}

func (a fakeAuth) CurrentUser() *User {
	return a.user
}

// switchAuth 可切换登录用户
type switchAuth struct {
	mu   sync.Mutex
	user *User
}

func (a *switchAuth) CurrentUser() *User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.user
}

func (a *switchAuth) set(user *User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.user = user
}

// earlyOnlineConn 订阅登记前已经上线，登记时不会收到这次边沿
type earlyOnlineConn struct {
	*fakeConn
}

func (c earlyOnlineConn) Subscribe(fn func(bool)) func() {
	c.fakeConn.set(true)
	return c.fakeConn.Subscribe(fn)
}

// fakePurchases 远端结账：把远端购物车转为购买记录并清空
type fakePurchases struct {
	remote  *fakeRemote
	err     error
	history []models.Purchase
}

func (p *fakePurchases) Checkout(_ context.Context, userID uint) (*models.Purchase, error) {
	if p.err != nil {
		return nil, p.err
	}
	items := p.remote.cart(userID)
	purchase := &models.Purchase{
		ID:          uint(len(p.history) + 1),
		OrderNo:     "P-TEST",
		UserID:      userID,
		Items:       items,
		ItemCount:   models.CartItems(items).Count(),
		TotalAmount: models.NewMoneyFromDecimal(models.CartItems(items).Total()),
		PurchasedAt: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
	}
	p.remote.mu.Lock()
	delete(p.remote.carts, userID)
	p.remote.mu.Unlock()
	p.history = append([]models.Purchase{*purchase}, p.history...)
	return purchase, nil
}

func (p *fakePurchases) ListPurchases(_ context.Context, _ uint) ([]models.Purchase, error) {
	if p.err != nil {
		return nil, p.err
	}
	return append([]models.Purchase(nil), p.history...), nil
}

type harness struct {
	store   *memStore
	remote  *fakeRemote
	conn    *fakeConn
	auth    *switchAuth
	manager *CartManager
}

const testUserID uint = 7

func newHarness(t *testing.T, online bool) *harness {
	t.Helper()
	store := newMemStore()
	remote := newFakeRemote()
	conn := newFakeConn(online)
	auth := &switchAuth{user: &User{ID: testUserID}}
	tick := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	var clockMu sync.Mutex
	manager := NewCartManager(Options{
		Store:        store,
		Queue:        repository.NewPendingQueue(store, "cart"),
		Remote:       remote,
		Connectivity: conn,
		Auth:         auth,
		Now: func() time.Time {
			clockMu.Lock()
			defer clockMu.Unlock()
			tick = tick.Add(time.Second)
			return tick
		},
		Logger: zap.NewNop().Sugar(),
	})
	return &harness{store: store, remote: remote, conn: conn, auth: auth, manager: manager}
}

func item(code, nom string, prix float64) models.CartItem {
	return models.CartItem{Code: code, Nom: nom, Prix: models.NewMoneyFromFloat(prix), Quantity: 1}
}
