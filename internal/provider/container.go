package provider

import (
	"github.com/caisse-next/internal/cache"
	"github.com/caisse-next/internal/config"
	"github.com/caisse-next/internal/logger"
	"github.com/caisse-next/internal/models"
	"github.com/caisse-next/internal/queue"
	"github.com/caisse-next/internal/repository"
	"github.com/caisse-next/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	QueueClient *queue.Client

	// Repositories
	UserRepo       *repository.GormUserRepository
	RemoteCartRepo *repository.GormRemoteCartRepository
	PurchaseRepo   *repository.GormPurchaseRepository

	// Services
	UserAuthService   *service.UserAuthService
	RemoteCartService *service.RemoteCartService
	CheckoutService   *service.CheckoutService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}
	return NewContainerWithDB(cfg, models.DB, queueClient)
}

// NewContainerWithDB 使用指定数据库初始化容器
func NewContainerWithDB(cfg *config.Config, db *gorm.DB, queueClient *queue.Client) *Container {
	c := &Container{
		Config:      cfg,
		DB:          db,
		QueueClient: queueClient,
	}
	c.initRepositories()
	c.initServices()
	return c
}

func (c *Container) initRepositories() {
	c.UserRepo = repository.NewUserRepository(c.DB)
	c.RemoteCartRepo = repository.NewRemoteCartRepository(c.DB)
	c.PurchaseRepo = repository.NewPurchaseRepository(c.DB)
}

func (c *Container) initServices() {
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo)
	c.RemoteCartService = service.NewRemoteCartService(c.Config.Cart, c.RemoteCartRepo, c.QueueClient)
	c.CheckoutService = service.NewCheckoutService(c.DB, c.RemoteCartRepo, c.PurchaseRepo)
}
