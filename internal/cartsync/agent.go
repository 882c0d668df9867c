package cartsync

import (
	"context"
	"errors"
	"sync"
	"time"
)

const defaultRetryInterval = 30 * time.Second

// Agent 后台同步服务：网络恢复时对账，队列非空时定时重试
type Agent struct {
	manager       *CartManager
	conn          Connectivity
	retryInterval time.Duration

	mu          sync.Mutex
	stopped     bool
	unsubscribe func()
	wg          sync.WaitGroup
}

// NewAgent 创建同步服务
func NewAgent(manager *CartManager, conn Connectivity, retryInterval time.Duration) *Agent {
	if retryInterval <= 0 {
		retryInterval = defaultRetryInterval
	}
	return &Agent{
		manager:       manager,
		conn:          conn,
		retryInterval: retryInterval,
	}
}

// Name 服务名称
func (a *Agent) Name() string {
	return "cartsync"
}

// Start 监听网络状态并载入本地购物车，阻塞到 ctx 结束
func (a *Agent) Start(ctx context.Context) error {
	if a == nil || a.manager == nil || a.conn == nil {
		return errors.New("cartsync agent not initialized")
	}
	// 订阅先于 Initialize，启动期间的上线边沿不会丢失
	unsubscribe := a.conn.Subscribe(func(online bool) {
		if !online {
			a.manager.log.Infow("cartsync_offline", "pending", a.manager.PendingCount())
			return
		}
		a.trigger(ctx, "online")
	})
	a.mu.Lock()
	a.unsubscribe = unsubscribe
	a.mu.Unlock()

	a.manager.Initialize(ctx)

	ticker := time.NewTicker(a.retryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if a.manager.PendingCount() > 0 && a.conn.IsOnline() {
				a.trigger(ctx, "retry")
			}
		}
	}
}

// Stop 取消订阅并等待进行中的对账结束
func (a *Agent) Stop(ctx context.Context) error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	a.stopped = true
	unsubscribe := a.unsubscribe
	a.unsubscribe = nil
	a.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Trigger 手动触发一次对账并等待结果
func (a *Agent) Trigger(ctx context.Context) (ReconcileResult, error) {
	return a.manager.Reconcile(ctx)
}

func (a *Agent) trigger(ctx context.Context, reason string) {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.wg.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()
		result, err := a.manager.Reconcile(ctx)
		if err != nil {
			a.manager.log.Warnw("cartsync_reconcile_failed", "reason", reason, "outcome", result.Outcome, "error", err)
			return
		}
		a.manager.log.Debugw("cartsync_reconcile_done",
			"reason", reason,
			"outcome", result.Outcome,
			"shared", result.Shared,
			"items", len(result.Items),
		)
	}()
}
