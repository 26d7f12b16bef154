package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"watchparty-svc/internal/achievement"
	"watchparty-svc/internal/auth"
	"watchparty-svc/internal/bridge"
	"watchparty-svc/internal/config"
	"watchparty-svc/internal/handler"
	"watchparty-svc/internal/middleware"
	"watchparty-svc/internal/playback"
	"watchparty-svc/internal/store"
	"watchparty-svc/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

// 会话标记超过一天没被恢复就可以确定是残留
const staleSessionAge = 24 * time.Hour

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	log.Println("Starting watchparty-svc...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "dev-secret-change-in-production"
		log.Println("Warning: Using default JWT secret, please set WP_AUTH_JWT_SECRET in production")
	}

	log.Printf("Instance ID: %s", cfg.Server.InstanceID)

	// 创建Redis客户端
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Println("Connected to Redis successfully")

	// 核心服务装配
	st := store.New(redisClient)
	achievements := achievement.NewService(st)
	history := playback.NewHistory(st, cfg.Party.HistoryLimit)
	registry := playback.NewRegistry(st, achievements, history)
	decoder := bridge.NewDecoder(cfg.Party.PlayerOrigins)

	jwtManager := auth.NewManager(&auth.Config{
		Secret:      cfg.Auth.JWTSecret,
		Issuer:      "watchparty-svc",
		TokenExpiry: cfg.Auth.TokenTTL,
	})

	// WebSocket管理器
	wsManager := ws.NewManager(cfg.Party.MaxConnections, redisClient, cfg.Server.InstanceID)

	managerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go wsManager.Start(managerCtx)

	// 枢纽完成ws/playback/achievement三方接线
	hub := handler.NewHub(wsManager, registry, achievements, decoder, st)

	// 每日清理残留的会话标记
	sweeper := cron.New()
	if _, err := sweeper.AddFunc("30 4 * * *", func() {
		removed, err := st.SweepStaleSessions(context.Background(), staleSessionAge)
		if err != nil {
			log.Printf("Stale session sweep failed: %v", err)
			return
		}
		log.Printf("Stale session sweep done: removed=%d", removed)
	}); err != nil {
		log.Fatalf("Failed to schedule session sweep: %v", err)
	}
	sweeper.Start()

	server := startHTTPServer(cfg, jwtManager, wsManager, registry, history, achievements, hub, st)

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down watchparty-svc...")

	sweeper.Stop()

	// 先停控制器：会话跟踪器必须在Redis连接关闭前落盘
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	registry.Shutdown(shutdownCtx)

	cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Failed to close Redis connection: %v", err)
	}

	log.Println("watchparty-svc stopped")
}

func startHTTPServer(
	cfg *config.Config,
	jwtManager *auth.Manager,
	wsManager *ws.Manager,
	registry *playback.Registry,
	history *playback.History,
	achievements *achievement.Service,
	hub *handler.Hub,
	st *store.Store,
) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// 全局中间件
	router.Use(gin.Recovery())
	router.Use(handler.RequestLogger())
	router.Use(middleware.CORS())

	// 每个客户端每分钟最多100个请求
	rateLimiter := handler.NewRateLimiter(100, time.Minute)

	// 健康检查（不需要限流）
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"instance_id": wsManager.GetInstanceID(),
			"timestamp":   time.Now(),
		})
	})

	wsHandler := handler.NewWSHandler(wsManager)
	partyHandler := handler.NewPartyHandler(registry, history, hub)
	achievementHandler := handler.NewAchievementHandler(achievements)
	identityHandler := handler.NewIdentityHandler(st, achievements, jwtManager, cfg.Party)

	// OAuth回跳（认证入口，无token）：唯一无认证写入store并签发token的端点，按IP限流
	authRateLimiter := handler.NewRateLimiter(20, time.Minute)
	router.GET("/auth/callback",
		handler.RateLimitMiddleware(authRateLimiter),
		identityHandler.Callback)

	// WebSocket路由（JWT认证，每个用户每分钟最多10次连接尝试）
	wsRateLimiter := handler.NewRateLimiter(10, time.Minute)
	router.GET("/ws",
		middleware.Auth(jwtManager),
		handler.RateLimitMiddleware(wsRateLimiter),
		wsHandler.HandleWebSocket)

	// 管理API（在线状态属用户隐私，同样需要JWT认证）
	api := router.Group("/api/v1")
	api.Use(
		middleware.Auth(jwtManager),
		handler.RateLimitMiddleware(rateLimiter),
	)
	{
		api.GET("/stats", wsHandler.GetStats)
		api.GET("/online-users", wsHandler.GetOnlineUsers)
		api.GET("/users/:user_id/online", wsHandler.CheckUserOnline)
	}

	// 业务API（JWT认证 + 限流 + 请求体限制）
	party := router.Group("/api/v1/party")
	party.Use(
		middleware.Auth(jwtManager),
		handler.RateLimitMiddleware(rateLimiter),
		handler.LimitBodySize,
	)
	{
		party.GET("/queue", partyHandler.GetQueue)
		party.POST("/queue", partyHandler.AddToQueue)
		party.POST("/queue/advance", partyHandler.Advance)
		party.POST("/queue/retreat", partyHandler.Retreat)
		party.POST("/queue/select", partyHandler.SelectFromHistory)
		party.GET("/history", partyHandler.GetHistory)
		party.POST("/volume", partyHandler.SetVolume)
		party.POST("/player/events", partyHandler.PostPlayerEvent)
		party.GET("/session", partyHandler.GetSession)

		party.GET("/achievements", achievementHandler.GetAchievements)
		party.GET("/achievements/stats", achievementHandler.GetStats)

		party.GET("/profile", identityHandler.GetProfile)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on :%d", cfg.Server.Port)
		log.Printf("WebSocket endpoint: ws://localhost:%d/ws", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	return server
}
