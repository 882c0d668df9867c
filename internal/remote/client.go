package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/caisse-next/internal/models"
)

const defaultTimeout = 10 * time.Second

// maxResponseBytes 响应体上限
const maxResponseBytes = 4 << 20

// 业务状态码（与服务端 response 包一致）
const (
	codeSuccess      = 0
	codeUnauthorized = 401
)

var (
	ErrConfigInvalid   = errors.New("remote config invalid")
	ErrRequestFailed   = errors.New("remote request failed")
	ErrResponseInvalid = errors.New("remote response invalid")
	ErrUnauthorized    = errors.New("remote session unauthorized")
	ErrRejected        = errors.New("remote rejected request")
)

// envelope 服务端统一响应结构
type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

// CartDocument 远端购物车文档
type CartDocument struct {
	Items     []models.CartItem `json:"items"`
	Version   uint64            `json:"version"`
	UpdatedAt *time.Time        `json:"updated_at,omitempty"`
}

// LoginResult 会话签发结果
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      struct {
		ID          uint   `json:"id"`
		Phone       string `json:"phone"`
		DisplayName string `json:"display_name"`
	} `json:"user"`
}

// Client 远端 HTTP 客户端，实现购物车文档读写与结账
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	token   func() string
}

// NewClient 创建客户端；token 为空函数时不携带 Authorization
func NewClient(baseURL string, timeout time.Duration, token func() string) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: base_url is required", ErrConfigInvalid)
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("%w: base_url is invalid", ErrConfigInvalid)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		timeout: timeout,
		http:    &http.Client{},
		token:   token,
	}, nil
}

// ReadCart 读取当前会话用户的购物车；userID 由服务端从 token 解析
func (c *Client) ReadCart(ctx context.Context, userID uint) ([]models.CartItem, error) {
	_ = userID
	var doc CartDocument
	if err := c.call(ctx, http.MethodGet, "/api/v1/me/cart", nil, &doc); err != nil {
		return nil, err
	}
	if doc.Items == nil {
		return []models.CartItem{}, nil
	}
	return doc.Items, nil
}

// WriteCart 整体覆盖远端购物车
func (c *Client) WriteCart(ctx context.Context, userID uint, items []models.CartItem) error {
	_ = userID
	if items == nil {
		items = []models.CartItem{}
	}
	return c.call(ctx, http.MethodPut, "/api/v1/me/cart", map[string]interface{}{"items": items}, nil)
}

// Checkout 结算远端购物车
func (c *Client) Checkout(ctx context.Context, userID uint) (*models.Purchase, error) {
	_ = userID
	var purchase models.Purchase
	if err := c.call(ctx, http.MethodPost, "/api/v1/me/checkout", map[string]interface{}{}, &purchase); err != nil {
		return nil, err
	}
	if strings.TrimSpace(purchase.OrderNo) == "" {
		return nil, fmt.Errorf("%w: missing order_no", ErrResponseInvalid)
	}
	return &purchase, nil
}

// ListPurchases 购买历史
func (c *Client) ListPurchases(ctx context.Context, userID uint) ([]models.Purchase, error) {
	_ = userID
	var purchases []models.Purchase
	if err := c.call(ctx, http.MethodGet, "/api/v1/me/purchases?page=1&page_size=50", nil, &purchases); err != nil {
		return nil, err
	}
	if purchases == nil {
		purchases = []models.Purchase{}
	}
	return purchases, nil
}

// Login 以手机号换取会话 token
func (c *Client) Login(ctx context.Context, phone string) (*LoginResult, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, fmt.Errorf("%w: phone is required", ErrConfigInvalid)
	}
	var result LoginResult
	if err := c.call(ctx, http.MethodPost, "/api/v1/auth/session", map[string]string{"phone": phone}, &result); err != nil {
		return nil, err
	}
	if strings.TrimSpace(result.Token) == "" {
		return nil, fmt.Errorf("%w: token is empty", ErrResponseInvalid)
	}
	return &result, nil
}

func (c *Client) call(ctx context.Context, method, endpoint string, payload interface{}, dest interface{}) error {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%w: marshal request failed", ErrRequestFailed)
		}
		body = encoded
	}
	respBody, statusCode, err := c.doJSONRequest(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if statusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if statusCode < 200 || statusCode >= 300 {
		return fmt.Errorf("%w: %s %s status %d", ErrResponseInvalid, method, endpoint, statusCode)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("%w: decode envelope failed", ErrResponseInvalid)
	}
	switch env.StatusCode {
	case codeSuccess:
	case codeUnauthorized:
		return ErrUnauthorized
	default:
		return fmt.Errorf("%w: code %d %s", ErrRejected, env.StatusCode, env.Msg)
	}
	if dest == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return fmt.Errorf("%w: decode data failed", ErrResponseInvalid)
	}
	return nil
}

func (c *Client) doJSONRequest(ctx context.Context, method, endpoint string, body []byte) ([]byte, int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := c.withDefaultTimeout(ctx)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != nil {
		if token := strings.TrimSpace(c.token()); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read response failed", ErrRequestFailed)
	}
	if len(respBody) > maxResponseBytes {
		return nil, resp.StatusCode, fmt.Errorf("%w: response exceeds %d bytes", ErrResponseInvalid, maxResponseBytes)
	}
	return respBody, resp.StatusCode, nil
}

func (c *Client) withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// CloseIdleConnections 释放空闲连接
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}
