package connectivity

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/caisse-next/internal/logger"

	"go.uber.org/zap"
)

const (
	defaultProbeInterval = 5 * time.Second
	defaultProbeTimeout  = 3 * time.Second
)

// Monitor 网络状态监测：定时探测远端健康检查地址，只在状态翻转时通知订阅者
type Monitor struct {
	probeURL string
	interval time.Duration
	client   *http.Client
	log      *zap.SugaredLogger

	mu     sync.RWMutex
	online bool
	nextID int
	subs   map[int]func(bool)
}

// NewMonitor 创建监测器，初始状态为离线
func NewMonitor(probeURL string, interval, timeout time.Duration) *Monitor {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &Monitor{
		probeURL: strings.TrimSpace(probeURL),
		interval: interval,
		client:   &http.Client{Timeout: timeout},
		log:      logger.Named("connectivity"),
		subs:     map[int]func(bool){},
	}
}

// IsOnline 当前是否在线
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Subscribe 注册状态翻转回调
func (m *Monitor) Subscribe(fn func(online bool)) func() {
	if fn == nil {
		return func() {}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// SetOnline 更新状态；状态未变化时不通知
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	m.log.Infow("connectivity_changed", "online", online)
	for _, fn := range subs {
		fn(online)
	}
}

// Name 服务名称
func (m *Monitor) Name() string {
	return "connectivity"
}

// Start 立即探测一次，然后按间隔探测，阻塞到 ctx 结束
func (m *Monitor) Start(ctx context.Context) error {
	if m.probeURL == "" {
		m.log.Warnw("connectivity_probe_disabled")
		<-ctx.Done()
		return nil
	}
	m.SetOnline(m.Probe(ctx))

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.SetOnline(m.Probe(ctx))
		}
	}
}

// Stop 停止服务并释放空闲连接
func (m *Monitor) Stop(ctx context.Context) error {
	_ = ctx
	m.client.CloseIdleConnections()
	return nil
}

// Probe 请求健康检查地址，2xx 视为在线
func (m *Monitor) Probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.probeURL, nil)
	if err != nil {
		m.log.Warnw("connectivity_probe_build_failed", "url", m.probeURL, "error", err)
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		m.log.Debugw("connectivity_probe_failed", "url", m.probeURL, "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
