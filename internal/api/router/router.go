package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"checkin-desk/config"
	"checkin-desk/internal/api/handler"
	"checkin-desk/internal/api/middleware"
	"checkin-desk/pkg/jwt"
	"checkin-desk/pkg/redis"
)

const maxBodyBytes = 1 << 20

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时限流与 Token 黑名单降级关闭
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 口令闸门（无需认证）
		v1.POST("/auth/login", middleware.RateLimit(rdb, 10, time.Minute), h.Auth.Login)

		// 闸门启用时需要 Token；未启用时直接放行
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb, cfg.Auth.GateEnabled()))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)

			authorized.GET("/session", h.Checkin.Session)

			// 签到
			checkins := authorized.Group("/checkins")
			{
				checkins.POST("", middleware.RateLimit(rdb, cfg.Server.CheckinRatePerMinute, time.Minute), h.Checkin.CheckIn)
				checkins.GET("", h.Checkin.ListPresent)
			}

			// 缺勤
			absentees := authorized.Group("/absentees")
			{
				absentees.GET("", h.Checkin.ListAbsent)
				absentees.POST("/refresh", h.Checkin.RefreshAbsent)
			}

			// 名单
			roster := authorized.Group("/roster")
			{
				roster.GET("", h.Roster.List)
				roster.GET("/students/:student_id/badge.png", h.Roster.Badge)
			}

			// 导出
			export := authorized.Group("/export")
			{
				export.GET("/present", h.Export.ExportPresent)
				export.GET("/absent", h.Export.ExportAbsent)
			}
		}
	}

	return r
}
