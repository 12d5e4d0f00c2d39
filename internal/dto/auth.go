package dto

// ── 口令闸门 DTO ──

// LoginRequest 终端口令登录
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
	Terminal string `json:"terminal" binding:"omitempty,max=64"`
}
