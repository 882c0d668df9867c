package repository

import (
	"strings"
	"sync"
	"time"

	"github.com/caisse-next/internal/constants"
	"github.com/caisse-next/internal/models"

	"github.com/google/uuid"
)

// PendingQueue 待同步操作队列（持久化在本地存储的保留键下）
type PendingQueue struct {
	mu    sync.Mutex
	store LocalStore
	key   string
	now   func() time.Time
}

// NewPendingQueue 创建指定业务域的队列
func NewPendingQueue(store LocalStore, domain string) *PendingQueue {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		domain = constants.PendingDomainCart
	}
	return &PendingQueue{
		store: store,
		key:   constants.LocalKeyPendingPrefix + domain,
		now:   time.Now,
	}
}

// Key 返回队列的保留键
func (q *PendingQueue) Key() string {
	return q.key
}

// Enqueue 追加到队尾
func (q *PendingQueue) Enqueue(op models.PendingOperation) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.QueuedAt.IsZero() {
		op.QueuedAt = q.now().UTC()
	}
	ops := q.load()
	ops = append(ops, op)
	return q.store.Save(q.key, ops)
}

// Drain 返回完整有序序列，不移除
func (q *PendingQueue) Drain() []models.PendingOperation {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load()
}

// Clear 清空队列，仅在远端确认后调用
func (q *PendingQueue) Clear() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.Save(q.key, []models.PendingOperation{})
}

// Len 队列长度
func (q *PendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.load())
}

func (q *PendingQueue) load() []models.PendingOperation {
	var ops []models.PendingOperation
	if !q.store.Load(q.key, &ops) || ops == nil {
		return []models.PendingOperation{}
	}
	return ops
}
