package cartsync

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/caisse-next/internal/constants"
	"github.com/caisse-next/internal/models"
	"github.com/caisse-next/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(items []models.CartItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Code)
	}
	return out
}

func TestMergeReplaysQueueInOrder(t *testing.T) {
	now := "2026-10-17T08:00:00.000Z"
	a := item("A", "a", 1)

	cases := []struct {
		name   string
		remote []models.CartItem
		ops    []models.PendingOperation
		local  []models.CartItem
		want   []string
	}{
		{
			name: "add then remove nets out",
			ops:  []models.PendingOperation{models.NewAddOperation(a), models.NewRemoveOperation(a)},
			want: []string{},
		},
		{
			name: "remove then add keeps item",
			ops:  []models.PendingOperation{models.NewRemoveOperation(a), models.NewAddOperation(a)},
			want: []string{"A"},
		},
		{
			name:   "remove drops remote copy",
			remote: []models.CartItem{a, item("B", "b", 1)},
			ops:    []models.PendingOperation{models.NewRemoveOperation(a)},
			want:   []string{"B"},
		},
		{
			name:   "local snapshot appended last",
			remote: []models.CartItem{item("B", "b", 1)},
			local:  []models.CartItem{a},
			want:   []string{"B", "A"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Merge(tc.remote, tc.ops, tc.local, now)
			assert.Equal(t, tc.want, codes(got))
		})
	}
}

func TestMergeNormalizesRemoteItems(t *testing.T) {
	now := "2026-10-17T08:00:00.000Z"
	remote := []models.CartItem{{Code: "A", Nom: "a", Quantity: 0}}
	got := Merge(remote, nil, nil, now)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Quantity)
	assert.Equal(t, now, got[0].AjouteLe)
}

func TestReconcileRemoveNetsAgainstQueuedAdd(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	a := item("A", "X", 2)
	_, err := h.manager.AddItem(ctx, a)
	require.NoError(t, err)
	require.NoError(t, h.manager.RemoveItem(ctx, a))
	require.Equal(t, 2, h.manager.PendingCount())

	h.conn.set(true)
	result, err := h.manager.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, result.Published())
	assert.Equal(t, 2, result.Drained)
	assert.NotContains(t, codes(result.Items), "A")
	assert.NotContains(t, codes(h.remote.cart(testUserID)), "A")
	assert.Equal(t, 0, h.manager.PendingCount())
}

func TestReconcileLastWriterWins(t *testing.T) {
	h := newHarness(t, true)
	h.remote.carts[testUserID] = []models.CartItem{{Code: "B", Nom: "old", Prix: models.NewMoneyFromFloat(1), Quantity: 1}}
	require.NoError(t, h.store.Save(constants.LocalKeyCart, []models.CartItem{
		{Code: "B", Nom: "old", Prix: models.NewMoneyFromFloat(1), Quantity: 3, AjouteLe: "2026-10-17T07:00:00.000Z"},
	}))

	result, err := h.manager.Reconcile(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "B", result.Items[0].Code)
	assert.Equal(t, 3, result.Items[0].Quantity)
}

func TestReconcileIsIdempotent(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	for _, it := range []models.CartItem{item("A", "a", 1), item("B", "b", 2), {Nom: "Banane", Prix: models.NewMoneyFromFloat(0.3)}} {
		_, err := h.manager.AddItem(ctx, it)
		require.NoError(t, err)
	}
	h.remote.carts[testUserID] = []models.CartItem{item("C", "c", 3), item("A", "stale", 1)}
	h.conn.set(true)

	first, err := h.manager.Reconcile(ctx)
	require.NoError(t, err)
	second, err := h.manager.Reconcile(ctx)
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first.Items)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second.Items)
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON))
	assert.Equal(t, 0, second.Drained)
}

func TestReconcileNeverProducesDuplicateSignatures(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	a := item("A", "a", 1)
	_, err := h.manager.AddItem(ctx, a)
	require.NoError(t, err)
	_, err = h.manager.AddItem(ctx, a)
	require.NoError(t, err)
	_, err = h.manager.UpdateQuantity(ctx, a, 5)
	require.NoError(t, err)
	h.remote.carts[testUserID] = []models.CartItem{a, a, item("B", "b", 1)}
	h.conn.set(true)

	result, err := h.manager.Reconcile(ctx)
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, it := range result.Items {
		sig := it.Signature()
		require.False(t, seen[sig], "duplicate signature %s", sig)
		seen[sig] = true
	}
	assert.Len(t, result.Items, 2)
}

func TestReconcileEndToEnd(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	_, err := h.manager.AddItem(ctx, item("A", "a", 1))
	require.NoError(t, err)
	_, err = h.manager.AddItem(ctx, item("B", "b", 2))
	require.NoError(t, err)
	require.Equal(t, 2, h.manager.PendingCount())
	require.Len(t, repository.LoadCart(h.store, constants.LocalKeyCart), 2)

	h.conn.set(true)
	result, err := h.manager.Reconcile(ctx)
	require.NoError(t, err)
	require.Equal(t, constants.ReconcileOutcomePublished, result.Outcome)

	remote := h.remote.cart(testUserID)
	assert.Equal(t, []string{"A", "B"}, codes(remote))
	assert.Equal(t, 0, h.manager.PendingCount())

	local := repository.LoadCart(h.store, constants.LocalKeyCart)
	localJSON, _ := json.Marshal(local)
	remoteJSON, _ := json.Marshal(remote)
	assert.JSONEq(t, string(remoteJSON), string(localJSON))
}

func TestReconcilePublishFailureKeepsQueue(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	_, err := h.manager.AddItem(ctx, item("A", "a", 1))
	require.NoError(t, err)

	h.conn.set(true)
	h.remote.setErrors(nil, errFakeRemote)
	result, err := h.manager.Reconcile(ctx)
	require.ErrorIs(t, err, ErrRemoteUnavailable)
	assert.Equal(t, constants.ReconcileOutcomePublishFailed, result.Outcome)
	assert.Equal(t, 1, h.manager.PendingCount())
	assert.Equal(t, []string{"A"}, codes(h.manager.Items()))

	h.remote.setErrors(nil, nil)
	result, err = h.manager.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, result.Published())
	assert.Equal(t, 0, h.manager.PendingCount())
	assert.Equal(t, []string{"A"}, codes(h.remote.cart(testUserID)))
}

func TestReconcileUnreachableLeavesStateUntouched(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	_, err := h.manager.AddItem(ctx, item("A", "a", 1))
	require.NoError(t, err)
	before := h.store.raw(constants.LocalKeyCart)

	h.conn.set(true)
	h.remote.setErrors(errFakeRemote, nil)
	result, err := h.manager.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, constants.ReconcileOutcomeUnreachable, result.Outcome)
	assert.Equal(t, 1, h.manager.PendingCount())
	assert.Equal(t, before, h.store.raw(constants.LocalKeyCart))
}

func TestReconcileOfflineIsNoop(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	_, err := h.manager.AddItem(ctx, item("A", "a", 1))
	require.NoError(t, err)

	result, err := h.manager.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, constants.ReconcileOutcomeOffline, result.Outcome)
	assert.Equal(t, 0, h.remote.readCount())
	assert.Equal(t, 1, h.manager.PendingCount())
}

func TestReconcileSingleFlight(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	gate := make(chan struct{})
	entered := make(chan struct{}, 1)
	h.remote.mu.Lock()
	h.remote.readGate = gate
	h.remote.entered = entered
	h.remote.mu.Unlock()

	const callers = 4
	results := make([]ReconcileResult, callers)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = h.manager.Reconcile(ctx)
	}()
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first reconcile never reached the remote")
	}
	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], _ = h.manager.Reconcile(ctx)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, 1, h.remote.readCount())
	for _, res := range results {
		assert.True(t, res.Published())
		assert.True(t, res.Shared)
	}
}
