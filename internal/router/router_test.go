package router

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/caisse-next/internal/config"
	"github.com/caisse-next/internal/models"
	"github.com/caisse-next/internal/provider"
	"github.com/caisse-next/internal/remote"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:router_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.RemoteCart{}, &models.Purchase{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	cfg := &config.Config{
		Server:  config.ServerConfig{Mode: "debug"},
		UserJWT: config.JWTConfig{SecretKey: "router-secret", ExpireHours: 1},
		Cart:    config.CartConfig{ExpireHours: 1, MaxItems: 50},
	}
	container := provider.NewContainerWithDB(cfg, db, nil)
	server := httptest.NewServer(SetupRouter(cfg, container))
	t.Cleanup(server.Close)
	return server
}

func TestRouterCartLifecycleThroughRemoteClient(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	session := remote.NewSession(nil)
	client, err := remote.NewClient(server.URL, time.Second, session.Token)
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	t.Cleanup(client.CloseIdleConnections)

	if _, err := client.ReadCart(ctx, 0); !errors.Is(err, remote.ErrUnauthorized) {
		t.Fatalf("anonymous read want ErrUnauthorized got %v", err)
	}

	user, err := session.Login(ctx, client, "06 12 34 56 78")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if user == nil || user.ID == 0 {
		t.Fatalf("login should yield a user, got %+v", user)
	}

	items, err := client.ReadCart(ctx, user.ID)
	if err != nil || len(items) != 0 {
		t.Fatalf("fresh cart want empty got %+v err=%v", items, err)
	}

	cart := []models.CartItem{
		{Code: "A", Nom: "Pain", Prix: models.NewMoneyFromFloat(1.25), Quantity: 2},
		{Nom: "Vrac", Prix: models.NewMoneyFromFloat(3)},
		{Code: "A", Nom: "Pain", Prix: models.NewMoneyFromFloat(1.25), Quantity: 1},
	}
	if err := client.WriteCart(ctx, user.ID, cart); err != nil {
		t.Fatalf("write cart failed: %v", err)
	}
	items, err = client.ReadCart(ctx, user.ID)
	if err != nil {
		t.Fatalf("read cart failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("duplicate signatures should collapse, got %+v", items)
	}
	for _, item := range items {
		if item.Quantity < 1 || item.AjouteLe == "" {
			t.Fatalf("server should normalize items, got %+v", item)
		}
	}

	purchase, err := client.Checkout(ctx, user.ID)
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if purchase.TotalAmount.String() != "4.25" {
		t.Fatalf("total want 4.25 got %s", purchase.TotalAmount.String())
	}
	if _, err := client.Checkout(ctx, user.ID); !errors.Is(err, remote.ErrRejected) {
		t.Fatalf("second checkout on empty cart want ErrRejected got %v", err)
	}

	history, err := client.ListPurchases(ctx, user.ID)
	if err != nil {
		t.Fatalf("list purchases failed: %v", err)
	}
	if len(history) != 1 || history[0].OrderNo != purchase.OrderNo {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestRouterRejectsInvalidCartItems(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	session := remote.NewSession(nil)
	client, err := remote.NewClient(server.URL, time.Second, session.Token)
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	t.Cleanup(client.CloseIdleConnections)
	user, err := session.Login(ctx, client, "0700000000")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	bad := []models.CartItem{{Code: "X", Prix: models.NewMoneyFromFloat(1)}}
	if err := client.WriteCart(ctx, user.ID, bad); !errors.Is(err, remote.ErrRejected) {
		t.Fatalf("nameless item want ErrRejected got %v", err)
	}
	if _, err := client.Login(ctx, "abc"); !errors.Is(err, remote.ErrRejected) {
		t.Fatalf("invalid phone want ErrRejected got %v", err)
	}
}

func TestRouterHealth(t *testing.T) {
	server := newTestServer(t)
	resp, err := server.Client().Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("health status want 200 got %d", resp.StatusCode)
	}
}
