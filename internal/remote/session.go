package remote

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/caisse-next/internal/cartsync"
	"github.com/caisse-next/internal/constants"
	"github.com/caisse-next/internal/logger"
	"github.com/caisse-next/internal/repository"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken token 无法解析或缺少用户
var ErrInvalidToken = errors.New("session token invalid")

// sessionClaims 终端只读取声明，签名由服务端校验
type sessionClaims struct {
	UserID uint   `json:"user_id"`
	Phone  string `json:"phone"`
	jwt.RegisteredClaims
}

// storedSession 本地持久化的会话
type storedSession struct {
	Token string `json:"token"`
}

// Session 终端会话，实现 cartsync.Auth
type Session struct {
	mu        sync.RWMutex
	store     repository.LocalStore
	key       string
	token     string
	userID    uint
	phone     string
	expiresAt time.Time
	now       func() time.Time
}

// NewSession 从本地存储恢复会话
func NewSession(store repository.LocalStore) *Session {
	s := &Session{
		store: store,
		key:   constants.LocalKeySession,
		now:   time.Now,
	}
	var stored storedSession
	if store != nil && store.Load(s.key, &stored) && stored.Token != "" {
		if err := s.apply(stored.Token); err != nil {
			logger.Warnw("session_restore_failed", "error", err)
		}
	}
	return s
}

// CurrentUser 有效会话的用户；过期或未登录返回 nil
func (s *Session) CurrentUser() *cartsync.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" || s.userID == 0 {
		return nil
	}
	if !s.expiresAt.IsZero() && !s.now().Before(s.expiresAt) {
		return nil
	}
	return &cartsync.User{ID: s.userID}
}

// Token 当前 token
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Phone 当前会话手机号
func (s *Session) Phone() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phone
}

// Set 采用新 token 并持久化
func (s *Session) Set(token string) error {
	if err := s.apply(token); err != nil {
		return err
	}
	if s.store != nil {
		if err := s.store.Save(s.key, storedSession{Token: strings.TrimSpace(token)}); err != nil {
			logger.Warnw("session_persist_failed", "error", err)
		}
	}
	return nil
}

// Login 通过远端签发会话
func (s *Session) Login(ctx context.Context, client *Client, phone string) (*cartsync.User, error) {
	result, err := client.Login(ctx, phone)
	if err != nil {
		return nil, err
	}
	if err := s.Set(result.Token); err != nil {
		return nil, err
	}
	logger.Infow("session_login", "user_id", result.User.ID)
	return s.CurrentUser(), nil
}

// Clear 注销
func (s *Session) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.userID = 0
	s.phone = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	return s.store.Delete(s.key)
}

func (s *Session) apply(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidToken
	}
	claims := &sessionClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ErrInvalidToken
	}
	if claims.UserID == 0 {
		return ErrInvalidToken
	}
	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.userID = claims.UserID
	s.phone = claims.Phone
	s.expiresAt = expiresAt
	return nil
}
