package public

import (
	"github.com/caisse-next/internal/http/response"
	"github.com/caisse-next/internal/models"

	"github.com/gin-gonic/gin"
)

// PutCartRequest 整体覆盖购物车请求
type PutCartRequest struct {
	Items []models.CartItem `json:"items"`
}

// GetCart 获取购物车文档
func (h *Handler) GetCart(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	view, err := h.RemoteCartService.Get(c.Request.Context(), uid)
	if err != nil {
		respondError(c, response.CodeInternal, "error.cart_fetch_failed", err)
		return
	}
	response.Success(c, view)
}

// PutCart 整体覆盖购物车文档
func (h *Handler) PutCart(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req PutCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	view, err := h.RemoteCartService.Put(c.Request.Context(), uid, req.Items)
	if err != nil {
		respondCartPutError(c, err)
		return
	}
	response.Success(c, gin.H{"version": view.Version, "items": view.Items, "updated_at": view.UpdatedAt})
}

// DeleteCart 清空购物车文档
func (h *Handler) DeleteCart(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	if err := h.RemoteCartService.Clear(c.Request.Context(), uid); err != nil {
		respondError(c, response.CodeInternal, "error.cart_update_failed", err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
