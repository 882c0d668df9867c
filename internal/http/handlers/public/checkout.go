package public

import (
	"github.com/caisse-next/internal/http/handlers/shared"
	"github.com/caisse-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// Checkout 结算当前购物车
func (h *Handler) Checkout(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	purchase, err := h.CheckoutService.Checkout(c.Request.Context(), uid)
	if err != nil {
		respondCheckoutError(c, err)
		return
	}
	response.Success(c, purchase)
}

// ListPurchases 购买历史（分页，新到旧）
func (h *Handler) ListPurchases(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := shared.PageQuery(c)

	purchases, total, err := h.CheckoutService.ListPurchases(uid, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "error.purchase_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, purchases, response.NewPagination(page, pageSize, total))
}
