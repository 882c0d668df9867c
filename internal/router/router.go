package router

import (
	"fmt"
	"strings"

	"github.com/caisse-next/internal/cache"
	"github.com/caisse-next/internal/config"
	publichandlers "github.com/caisse-next/internal/http/handlers/public"
	"github.com/caisse-next/internal/logger"
	"github.com/caisse-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	handler := publichandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "caisse"
	}
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:session", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		MessageKey:    "error.login_too_many",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		// 会话签发
		auth := apiV1.Group("/auth")
		{
			auth.POST("/session", RateLimitMiddleware(cache.Client(), loginRule, KeyByIPAndJSONField("phone")), handler.CreateSession)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("/me")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			user.GET("", handler.GetCurrentUser)
			user.GET("/cart", handler.GetCart)
			user.PUT("/cart", handler.PutCart)
			user.DELETE("/cart", handler.DeleteCart)
			user.POST("/checkout", handler.Checkout)
			user.GET("/purchases", handler.ListPurchases)
		}
	}

	// 健康检查（终端连通性探测）
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
