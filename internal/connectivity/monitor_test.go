package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSetOnlineNotifiesOnlyOnEdges(t *testing.T) {
	monitor := NewMonitor("", time.Second, time.Second)
	var mu sync.Mutex
	var events []bool
	unsubscribe := monitor.Subscribe(func(online bool) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, online)
	})

	monitor.SetOnline(false)
	monitor.SetOnline(true)
	monitor.SetOnline(true)
	monitor.SetOnline(false)
	unsubscribe()
	monitor.SetOnline(true)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, events)
	assert.True(t, monitor.IsOnline())
}

func TestProbeLoopTracksServerHealth(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status_code":0}`))
	}))
	defer server.Close()

	monitor := NewMonitor(server.URL+"/health", 10*time.Millisecond, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- monitor.Start(ctx) }()

	require.Eventually(t, monitor.IsOnline, 2*time.Second, 5*time.Millisecond)
	healthy.Store(false)
	require.Eventually(t, func() bool { return !monitor.IsOnline() }, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, monitor.Stop(context.Background()))
}

func TestProbeUnreachable(t *testing.T) {
	monitor := NewMonitor("http://127.0.0.1:1/health", time.Second, 200*time.Millisecond)
	assert.False(t, monitor.Probe(context.Background()))
}
