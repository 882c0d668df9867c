package public

import (
	"time"

	"github.com/caisse-next/internal/http/response"
	"github.com/caisse-next/internal/models"

	"github.com/gin-gonic/gin"
)

// SessionRequest 会话签发请求
type SessionRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// SessionResponse 会话签发响应
type SessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// CreateSession 以手机号签发终端会话，首次使用时创建用户
func (h *Handler) CreateSession(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	user, token, expiresAt, err := h.UserAuthService.Session(req.Phone)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	response.Success(c, SessionResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	})
}
