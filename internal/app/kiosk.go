package app

import (
	"errors"
	"fmt"

	"github.com/caisse-next/internal/cartsync"
	"github.com/caisse-next/internal/config"
	"github.com/caisse-next/internal/connectivity"
	"github.com/caisse-next/internal/constants"
	"github.com/caisse-next/internal/kiosk"
	"github.com/caisse-next/internal/logger"
	"github.com/caisse-next/internal/models"
	"github.com/caisse-next/internal/remote"
	"github.com/caisse-next/internal/repository"

	"gorm.io/gorm"
)

// Kiosk 收银终端组件
type Kiosk struct {
	DB       *gorm.DB
	Store    *repository.GormLocalStore
	Session  *remote.Session
	Client   *remote.Client
	Monitor  *connectivity.Monitor
	Manager  *cartsync.CartManager
	Agent    *cartsync.Agent
	Checkout *cartsync.Checkout
	Console  *kiosk.Console
}

// BuildKiosk 组装终端：本地存储、会话、远端客户端、网络探测、同步核心与控制台
func BuildKiosk(cfg *config.Config, opts Options) (*Kiosk, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	kcfg := cfg.Kiosk

	db, err := models.OpenLocalStore(kcfg.StoreDSN)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	store := repository.NewLocalStore(db)
	session := remote.NewSession(store)

	client, err := remote.NewClient(kcfg.RemoteBaseURL, kcfg.RequestTimeout(), session.Token)
	if err != nil {
		closeDB(db)
		return nil, err
	}
	monitor := connectivity.NewMonitor(kcfg.ProbeURL(), kcfg.ProbeInterval(), kcfg.RequestTimeout())

	manager := cartsync.NewCartManager(cartsync.Options{
		Store:        store,
		Queue:        repository.NewPendingQueue(store, constants.PendingDomainCart),
		Remote:       client,
		Connectivity: monitor,
		Auth:         session,
		Logger:       logger.Named("cartsync"),
	})
	agent := cartsync.NewAgent(manager, monitor, kcfg.RetryInterval())
	checkout := cartsync.NewCheckout(manager, client, store)
	console := kiosk.NewConsole(kiosk.Options{
		Manager:      manager,
		Agent:        agent,
		Checkout:     checkout,
		Session:      session,
		Client:       client,
		Connectivity: monitor,
		In:           opts.In,
		Out:          opts.Out,
	})

	return &Kiosk{
		DB:       db,
		Store:    store,
		Session:  session,
		Client:   client,
		Monitor:  monitor,
		Manager:  manager,
		Agent:    agent,
		Checkout: checkout,
		Console:  console,
	}, nil
}

// Runner 终端服务：网络探测、后台同步、控制台
func (k *Kiosk) Runner() *Runner {
	return NewRunner(k.Monitor, k.Agent, k.Console)
}

// Close 释放远端连接与本地存储
func (k *Kiosk) Close() {
	if k == nil {
		return
	}
	if k.Client != nil {
		k.Client.CloseIdleConnections()
	}
	closeDB(k.DB)
}

// RunKiosk 终端启动入口
func RunKiosk(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}
	k, err := BuildKiosk(opts.Config, opts)
	if err != nil {
		return err
	}
	defer k.Close()

	opts.Logger.Infow("kiosk_start",
		"remote", opts.Config.Kiosk.RemoteBaseURL,
		"store", opts.Config.Kiosk.StoreDSN,
	)
	return RunWithOptions(k.Runner(), opts)
}

func closeDB(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
