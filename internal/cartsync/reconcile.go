package cartsync

import (
	"context"
	"fmt"

	"github.com/caisse-next/internal/constants"
	"github.com/caisse-next/internal/models"
)

const reconcileFlightKey = "reconcile"

// ReconcileResult 一次对账的结果
type ReconcileResult struct {
	Outcome string            // published / publish_failed / offline / unreachable
	Items   []models.CartItem // 对账后的购物车
	Drained int               // 参与合并的队列操作数
	Shared  bool              // 合并进了已在进行的对账
}

// Published 远端已确认
func (r ReconcileResult) Published() bool {
	return r.Outcome == constants.ReconcileOutcomePublished
}

// Reconcile 合并远端、队列与本地快照并发布。
// 同一时刻只有一次对账在执行，期间到达的触发共享该次结果。
func (m *CartManager) Reconcile(ctx context.Context) (ReconcileResult, error) {
	value, err, shared := m.flight.Do(reconcileFlightKey, func() (interface{}, error) {
		return m.reconcile(ctx)
	})
	result, _ := value.(ReconcileResult)
	result.Items = cloneItems(result.Items)
	result.Shared = shared
	return result, err
}

func (m *CartManager) reconcile(ctx context.Context) (ReconcileResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claimLocked()

	user, ok := m.remoteUser()
	if !ok {
		return ReconcileResult{Outcome: constants.ReconcileOutcomeOffline, Items: cloneItems(m.items)}, nil
	}
	remoteItems, err := m.remote.ReadCart(ctx, user.ID)
	if err != nil {
		m.log.Warnw("reconcile_remote_read_failed", "user_id", user.ID, "error", err)
		return ReconcileResult{Outcome: constants.ReconcileOutcomeUnreachable, Items: cloneItems(m.items)}, nil
	}

	ops := m.queue.Drain()
	local := m.localSnapshotLocked()
	merged := Merge(remoteItems, ops, local, m.timestamp())

	m.items = merged
	m.persistLocked()

	result := ReconcileResult{Items: cloneItems(merged), Drained: len(ops)}
	if err := m.remote.WriteCart(ctx, user.ID, cloneItems(merged)); err != nil {
		m.log.Warnw("reconcile_publish_failed",
			"user_id", user.ID,
			"items", len(merged),
			"pending", len(ops),
			"error", err,
		)
		result.Outcome = constants.ReconcileOutcomePublishFailed
		return result, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	if len(ops) > 0 {
		if err := m.queue.Clear(); err != nil {
			m.log.Errorw("reconcile_queue_clear_failed", "user_id", user.ID, "pending", len(ops), "error", err)
		}
	}
	m.log.Infow("reconcile_published",
		"user_id", user.ID,
		"remote_items", len(remoteItems),
		"local_items", len(local),
		"pending", len(ops),
		"items", len(merged),
	)
	result.Outcome = constants.ReconcileOutcomePublished
	return result, nil
}
