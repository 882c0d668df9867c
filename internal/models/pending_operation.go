package models

import (
	"time"

	"github.com/caisse-next/internal/constants"
)

// PendingOperation 待远端确认的购物车变更
type PendingOperation struct {
	ID         string    `json:"id,omitempty"`
	Action     string    `json:"action"`                // add / remove
	Product    *CartItem `json:"product,omitempty"`     // add 时携带的商品
	Code       string    `json:"code,omitempty"`        // remove 时的条码
	IDSansCode string    `json:"idSansCode,omitempty"`  // remove 时的目录 ID
	Signature  string    `json:"signature,omitempty"`   // remove 且无身份时的结构签名
	QueuedAt   time.Time `json:"queued_at,omitempty"`   // 入队时间
}

// NewAddOperation 创建 add 操作
func NewAddOperation(item CartItem) PendingOperation {
	product := item
	return PendingOperation{
		Action:  constants.PendingActionAdd,
		Product: &product,
	}
}

// NewRemoveOperation 创建 remove 操作
func NewRemoveOperation(item CartItem) PendingOperation {
	op := PendingOperation{
		Action:     constants.PendingActionRemove,
		Code:       item.Code,
		IDSansCode: item.IDSansCode,
	}
	if !item.Identity().HasIdentity() {
		op.Signature = item.Signature()
	}
	return op
}

// IsAdd 是否为 add
func (op PendingOperation) IsAdd() bool {
	return op.Action == constants.PendingActionAdd && op.Product != nil
}

// IsRemove 是否为 remove
func (op PendingOperation) IsRemove() bool {
	return op.Action == constants.PendingActionRemove
}

// TargetSignature 操作作用的商品签名
func (op PendingOperation) TargetSignature() string {
	if op.IsAdd() {
		return op.Product.Signature()
	}
	id := ItemIdentity{Code: op.Code, IDSansCode: op.IDSansCode}
	if id.HasIdentity() {
		return id.Signature()
	}
	return op.Signature
}
