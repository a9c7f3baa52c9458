package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/PravEF/EFNadekoBot/internal/api"
	"github.com/PravEF/EFNadekoBot/internal/behaviors"
	"github.com/PravEF/EFNadekoBot/internal/bus"
	"github.com/PravEF/EFNadekoBot/internal/config"
	"github.com/PravEF/EFNadekoBot/internal/db"
	"github.com/PravEF/EFNadekoBot/internal/gateway"
	"github.com/PravEF/EFNadekoBot/internal/middleware"
	"github.com/PravEF/EFNadekoBot/internal/observ"
	"github.com/PravEF/EFNadekoBot/internal/permissions"
	"github.com/PravEF/EFNadekoBot/internal/reactions"
	"github.com/PravEF/EFNadekoBot/internal/repository/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	pool := database.Pool()
	if err := postgres.InitSchema(ctx, pool); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	reactionRepo := postgres.NewReactionStore(pool)
	adminRepo := postgres.NewAdminStore(pool)

	rdb, err := bus.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rdb.Close()
	eventBus := bus.NewRedisBus(rdb, logger)

	// Reaction engine. Subscribe before the bulk load: an event published
	// during the load is applied on top of it, while one published before
	// the load is already in the loaded rows.
	index := reactions.NewIndex()
	stats := reactions.NewStats()
	syncer := reactions.NewSyncAdapter(cfg.BotID, eventBus, index, logger)
	if err := syncer.Start(ctx); err != nil {
		return fmt.Errorf("start sync adapter: %w", err)
	}

	svc := reactions.NewService(
		reactionRepo,
		syncer,
		index,
		stats,
		permissions.AllowAll{},
		cfg.ReactionsStartWith,
		logger,
	)
	if err := svc.Load(ctx); err != nil {
		return err
	}

	// Gateway feed. Reactions run as an early executor; other features
	// register after it and only see messages it did not claim.
	client, err := gateway.Dial(ctx, cfg.GatewayURL, logger)
	if err != nil {
		return fmt.Errorf("connect to gateway: %w", err)
	}
	defer client.Close()

	dispatcher := behaviors.NewDispatcher(client, logger, svc)
	go func() {
		err := client.Run(ctx, func(ctx context.Context, msg *gateway.Message) {
			go dispatcher.Dispatch(ctx, msg)
		})
		if err != nil && ctx.Err() == nil {
			logger.Error("gateway loop exited", zap.Error(err))
			stop()
		}
	}()

	// Management API.
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := gin.New()
	srv.Use(gin.Recovery())

	authHandler := api.NewAuthHandler(adminRepo, cfg.JWTSecret, logger)
	reactionHandler := api.NewReactionHandler(svc, logger)

	srv.GET("/v1/health", func(c *gin.Context) {
		if err := database.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	srv.POST("/v1/auth/login", authHandler.Login)

	v1 := srv.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	v1.POST("/reactions", reactionHandler.Create)
	v1.GET("/reactions", reactionHandler.List)
	v1.POST("/reactions/preview", reactionHandler.Preview)
	v1.GET("/reactions/stats", reactionHandler.Stats)
	v1.DELETE("/reactions/stats", reactionHandler.ResetStats)
	v1.DELETE("/reactions/:id", reactionHandler.Delete)
	v1.PATCH("/reactions/:id", reactionHandler.Edit)
	v1.PUT("/reactions/:id/flags/:flag", reactionHandler.ToggleFlag)

	httpSrv := &http.Server{Addr: ":" + cfg.Port, Handler: srv}
	go func() {
		<-ctx.Done()
		httpSrv.Shutdown(context.Background())
	}()

	logger.Info("shard started",
		zap.String("bot_id", cfg.BotID),
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
	)

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
