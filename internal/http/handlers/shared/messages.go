package shared

import "fmt"

// messages 错误 key 对应的提示文案
var messages = map[string]string{
	"error.bad_request":            "请求参数错误",
	"error.unauthorized":           "未登录或登录已失效",
	"error.forbidden":              "无权访问",
	"error.not_found":              "资源不存在",
	"error.internal":               "服务器内部错误",
	"error.auth_header_missing":    "缺少 Authorization 请求头",
	"error.auth_header_invalid":    "Authorization 格式错误",
	"error.jwt_secret_missing":     "服务端未配置 JWT 密钥",
	"error.token_invalid":          "Token 无效",
	"error.token_revoked":          "Token 已失效，请重新登录",
	"error.user_disabled":          "账号已被禁用",
	"error.user_not_found":         "用户不存在",
	"error.user_id_invalid":        "用户 ID 无效",
	"error.user_id_type_invalid":   "用户 ID 类型错误",
	"error.phone_invalid":          "手机号格式错误",
	"error.session_create_failed":  "会话创建失败",
	"error.cart_item_invalid":      "购物车商品无效",
	"error.cart_too_large":         "购物车商品数量超出上限",
	"error.cart_fetch_failed":      "获取购物车失败",
	"error.cart_update_failed":     "更新购物车失败",
	"error.cart_empty":             "购物车为空",
	"error.checkout_conflict":      "购物车已变化，请重试",
	"error.checkout_failed":        "结账失败",
	"error.purchase_fetch_failed":  "获取购买记录失败",
	"error.rate_limit_unavailable": "限流服务不可用",
	"error.rate_limited":           "请求过于频繁，请 %d 秒后再试",
	"error.login_too_many":         "登录尝试次数过多，请 %d 秒后再试",
}

// Message 按 key 取提示文案；未登记的 key 原样返回
func Message(key string) string {
	if msg, ok := messages[key]; ok {
		return msg
	}
	return key
}

// Messagef 带参数的提示文案
func Messagef(key string, args ...interface{}) string {
	return fmt.Sprintf(Message(key), args...)
}
