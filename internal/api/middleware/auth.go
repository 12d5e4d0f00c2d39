package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"checkin-desk/pkg/jwt"
	"checkin-desk/pkg/redis"
	"checkin-desk/pkg/response"
)

// ClaimsKey JWT 声明在 gin.Context 中的键
const ClaimsKey = "claims"

// JWTAuth 终端口令闸门中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token。
// enabled=false（未配置口令）时直接放行；rdb 为 nil 时跳过黑名单检查。
func JWTAuth(jwtMgr *jwt.Manager, rdb *redis.Client, enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "missing Authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, 10002, "invalid Authorization header")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			response.Unauthorized(c, 10002, "token invalid or expired")
			c.Abort()
			return
		}

		if claims.TokenType != "access" {
			response.Unauthorized(c, 10002, "invalid token type")
			c.Abort()
			return
		}

		if rdb != nil {
			revoked, err := rdb.IsBlacklisted(c.Request.Context(), claims.ID)
			if err == nil && revoked {
				response.Unauthorized(c, 10002, "token has been revoked")
				c.Abort()
				return
			}
		}

		c.Set(ClaimsKey, claims)
		c.Set("terminal", claims.Terminal)

		c.Next()
	}
}
