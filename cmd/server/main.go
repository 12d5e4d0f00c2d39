package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"checkin-desk/config"
	"checkin-desk/internal/api/handler"
	"checkin-desk/internal/api/router"
	"checkin-desk/internal/repository"
	"checkin-desk/internal/service"
	"checkin-desk/pkg/database"
	"checkin-desk/pkg/jwt"
	applogger "checkin-desk/pkg/logger"
	"checkin-desk/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("CHECKIN_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("roster_backend", cfg.Roster.Backend),
		zap.String("ledger_backend", cfg.Ledger.Backend),
		zap.Bool("password_gate", cfg.Auth.GateEnabled()),
	)

	// 3. 连接数据库（仅当名单或签到表使用 SQL 后端）
	var db *gorm.DB
	if repository.NeedsDB(cfg) {
		db, err = database.NewDB(&cfg.Database, cfg.Log.Level, logger)
		if err != nil {
			logger.Fatal("数据库连接失败", zap.Error(err))
		}

		// 3.1 执行数据库迁移
		if err := database.RunMigrations(db, cfg.Database.Driver, logger); err != nil {
			logger.Fatal("数据库迁移失败", zap.Error(err))
		}
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var cache service.ReadCache
	var blacklist service.TokenBlacklist
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，使用进程内缓存，Token 黑名单与限流不可用", zap.Error(err))
		rdb = nil
		cache = service.NewMemoryCache()
	} else {
		cache = rdb
		blacklist = rdb
	}

	// 5. 初始化存储
	ctx := context.Background()
	rosterStore, err := repository.OpenTableStore(ctx, cfg.Roster.Backend, cfg, db)
	if err != nil {
		logger.Fatal("初始化名单存储失败", zap.Error(err))
	}
	ledgerStore, err := repository.OpenTableStore(ctx, cfg.Ledger.Backend, cfg, db)
	if err != nil {
		logger.Fatal("初始化签到存储失败", zap.Error(err))
	}

	// 6. 时段时钟与 JWT 管理器
	clock, err := service.NewSessionClock(cfg)
	if err != nil {
		logger.Fatal("初始化时段时钟失败", zap.Error(err))
	}
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 7. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(rosterStore, ledgerStore)
	svc := service.NewService(cfg, repo, clock, cache, jwtMgr, blacklist, logger)
	h := handler.NewHandler(svc)

	// 8. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	if db != nil {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
