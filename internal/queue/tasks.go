package queue

import (
	"encoding/json"
	"fmt"

	"github.com/caisse-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCartExpire 购物车闲置过期任务
	TaskCartExpire = constants.TaskCartExpire
)

// CartExpirePayload 购物车过期任务载荷
type CartExpirePayload struct {
	UserID  uint   `json:"user_id"`
	Version uint64 `json:"version"`
}

// NewCartExpireTask 创建购物车过期任务
func NewCartExpireTask(payload CartExpirePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCartExpire, body), nil
}

// ParseCartExpirePayload 解析购物车过期任务载荷
func ParseCartExpirePayload(body []byte) (CartExpirePayload, error) {
	var payload CartExpirePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return payload, err
	}
	if payload.UserID == 0 {
		return payload, fmt.Errorf("cart expire payload missing user_id")
	}
	return payload, nil
}

func cartExpireTaskID(payload CartExpirePayload) string {
	return fmt.Sprintf("cart-expire:%d:%d", payload.UserID, payload.Version)
}
