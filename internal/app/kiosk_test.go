package app

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/caisse-next/internal/config"
	"github.com/caisse-next/internal/models"
	"github.com/caisse-next/internal/provider"
	"github.com/caisse-next/internal/router"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newRemoteServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:kiosk_remote_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RemoteCart{}, &models.Purchase{}))
	cfg := &config.Config{
		Server:  config.ServerConfig{Mode: "debug"},
		UserJWT: config.JWTConfig{SecretKey: "kiosk-secret", ExpireHours: 1},
		Cart:    config.CartConfig{ExpireHours: 1, MaxItems: 50},
	}
	server := httptest.NewServer(router.SetupRouter(cfg, provider.NewContainerWithDB(cfg, db, nil)))
	t.Cleanup(server.Close)
	return server
}

func kioskConfig(remoteURL string) *config.Config {
	return &config.Config{
		Kiosk: config.KioskConfig{
			StoreDSN:              fmt.Sprintf("file:kiosk_local_%d?mode=memory&cache=shared", time.Now().UnixNano()),
			RemoteBaseURL:         remoteURL,
			ProbePath:             "/health",
			ProbeIntervalSeconds:  1,
			RequestTimeoutSeconds: 2,
			RetryIntervalSeconds:  1,
		},
	}
}

func TestKioskOfflineScanThenSyncAndCheckout(t *testing.T) {
	server := newRemoteServer(t)
	out := &bytes.Buffer{}
	k, err := BuildKiosk(kioskConfig(server.URL), Options{In: strings.NewReader(""), Out: out})
	require.NoError(t, err)
	t.Cleanup(k.Close)
	ctx := context.Background()

	// 探测前视为离线，扫码进入待同步队列
	require.NoError(t, k.Console.Execute(ctx, "scan 3017620422003 2,40 Pâte à tartiner"))
	require.NoError(t, k.Console.Execute(ctx, "scan - 1.10 Banane"))
	assert.Equal(t, 2, k.Manager.PendingCount())

	require.NoError(t, k.Console.Execute(ctx, "login 06 12 34 56 78"))
	assert.Contains(t, out.String(), "hors ligne")
	assert.Equal(t, 2, k.Manager.PendingCount())

	k.Monitor.SetOnline(k.Monitor.Probe(ctx))
	require.True(t, k.Monitor.IsOnline())
	require.NoError(t, k.Console.Execute(ctx, "sync"))
	assert.Equal(t, 0, k.Manager.PendingCount())
	assert.Contains(t, out.String(), "synchronisé: 2 article(s)")

	remoteItems, err := k.Client.ReadCart(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, remoteItems, 2)

	require.NoError(t, k.Console.Execute(ctx, "qty 1 3"))
	require.NoError(t, k.Console.Execute(ctx, "checkout"))
	assert.Contains(t, out.String(), "payé: commande")
	assert.Empty(t, k.Manager.Items())

	out.Reset()
	require.NoError(t, k.Console.Execute(ctx, "history"))
	assert.Contains(t, out.String(), "4 article(s)")
	assert.NotContains(t, out.String(), "hors ligne")
}

func TestKioskConsoleRejectsBadInput(t *testing.T) {
	server := newRemoteServer(t)
	k, err := BuildKiosk(kioskConfig(server.URL), Options{In: strings.NewReader(""), Out: &bytes.Buffer{}})
	require.NoError(t, err)
	t.Cleanup(k.Close)
	ctx := context.Background()

	assert.Error(t, k.Console.Execute(ctx, "scan A abc Pain"))
	assert.Error(t, k.Console.Execute(ctx, "scan A -1 Pain"))
	assert.Error(t, k.Console.Execute(ctx, "rm 1"))
	assert.Error(t, k.Console.Execute(ctx, "frobnicate"))
	assert.Error(t, k.Console.Execute(ctx, "checkout"))
	assert.NoError(t, k.Console.Execute(ctx, "   "))
	assert.Empty(t, k.Manager.Items())
}

func TestKioskRunnerStopsOnQuit(t *testing.T) {
	server := newRemoteServer(t)
	out := &bytes.Buffer{}
	k, err := BuildKiosk(kioskConfig(server.URL), Options{In: strings.NewReader("scan - 1 Pomme\nquit\n"), Out: out})
	require.NoError(t, err)
	t.Cleanup(k.Close)

	done := make(chan error, 1)
	go func() {
		done <- RunWithOptions(k.Runner(), Options{ShutdownTimeout: 2 * time.Second})
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("kiosk runner did not stop after quit")
	}
	assert.Contains(t, out.String(), "+ Pomme x1")
	assert.Len(t, k.Manager.Items(), 1)
}
