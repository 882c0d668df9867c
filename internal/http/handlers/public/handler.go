package public

import "github.com/caisse-next/internal/provider"

// Handler 终端侧接口处理器入口
// 说明：会话签发、远端购物车文档、结账与购买历史。
type Handler struct {
	*provider.Container
}

// New 创建处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
