package handler

import (
	"github.com/gin-gonic/gin"

	"checkin-desk/internal/api/middleware"
	"checkin-desk/pkg/jwt"
	"checkin-desk/pkg/response"
)

// MustGetClaims 从 Gin 上下文中安全提取 JWT 声明。
// 口令闸门未启用或中间件未注入时返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(middleware.ClaimsKey)
	if !exists {
		response.Unauthorized(c, 10002, "not authenticated")
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok || claims == nil {
		response.Unauthorized(c, 10002, "not authenticated")
		return nil, false
	}
	return claims, true
}
