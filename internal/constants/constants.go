package constants

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 待同步操作类型
const (
	PendingActionAdd    = "add"
	PendingActionRemove = "remove"
)

// 终端本地存储保留键
const (
	LocalKeyCart          = "panier"
	LocalKeyHistory       = "historique"
	LocalKeySession       = "session"
	LocalKeyPendingPrefix = "pending:"
)

// 待同步队列业务域
const (
	PendingDomainCart = "cart"
)

// 对账结果
const (
	ReconcileOutcomePublished     = "published"
	ReconcileOutcomePublishFailed = "publish_failed"
	ReconcileOutcomeOffline       = "offline"
	ReconcileOutcomeUnreachable   = "unreachable"
)

// 异步队列名称
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型
const (
	TaskCartExpire = "cart:expire"
)
