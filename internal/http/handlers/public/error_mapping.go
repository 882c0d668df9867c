package public

import (
	"errors"

	"github.com/caisse-next/internal/http/response"
	"github.com/caisse-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

var sessionErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidPhone, code: response.CodeBadRequest, key: "error.phone_invalid"},
	{target: service.ErrUserDisabled, code: response.CodeUnauthorized, key: "error.user_disabled"},
}

var cartPutErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidCartItem, code: response.CodeBadRequest, key: "error.cart_item_invalid"},
	{target: service.ErrCartTooLarge, code: response.CodeBadRequest, key: "error.cart_too_large"},
	{target: service.ErrNotFound, code: response.CodeNotFound, key: "error.user_not_found"},
}

var checkoutErrorRules = []mappedHandlerError{
	{target: service.ErrCartEmpty, code: response.CodeBadRequest, key: "error.cart_empty"},
	{target: service.ErrCheckoutConflict, code: response.CodeConflict, key: "error.checkout_conflict"},
	{target: service.ErrNotFound, code: response.CodeNotFound, key: "error.user_not_found"},
}

func respondSessionError(c *gin.Context, err error) {
	respondWithMappedError(c, err, sessionErrorRules, response.CodeInternal, "error.session_create_failed")
}

func respondCartPutError(c *gin.Context, err error) {
	respondWithMappedError(c, err, cartPutErrorRules, response.CodeInternal, "error.cart_update_failed")
}

func respondCheckoutError(c *gin.Context, err error) {
	respondWithMappedError(c, err, checkoutErrorRules, response.CodeInternal, "error.checkout_failed")
}
