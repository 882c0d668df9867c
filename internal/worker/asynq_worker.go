package worker

import (
	"context"

	"github.com/caisse-next/internal/logger"
	"github.com/caisse-next/internal/provider"
	"github.com/caisse-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCartExpire, c.handleCartExpire)
}

func (c *Consumer) handleCartExpire(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.Container == nil || c.RemoteCartService == nil {
		logger.Debugw("worker_cart_expire_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseCartExpirePayload(task.Payload())
	if err != nil {
		logger.Warnw("worker_cart_expire_invalid_payload", "error", err)
		return asynq.SkipRetry
	}
	deleted, err := c.RemoteCartService.ExpireIfStale(ctx, payload.UserID, payload.Version)
	if err != nil {
		logger.Warnw("worker_cart_expire_failed", "user_id", payload.UserID, "version", payload.Version, "error", err)
		return err
	}
	if !deleted {
		logger.Debugw("worker_cart_expire_skip_updated", "user_id", payload.UserID, "version", payload.Version)
	}
	return nil
}
