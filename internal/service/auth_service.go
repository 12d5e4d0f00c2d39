package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"checkin-desk/config"
	"checkin-desk/internal/dto"
	"checkin-desk/pkg/jwt"
)

var (
	ErrInvalidCredentials = errors.New("口令错误")
	ErrGateDisabled       = errors.New("未启用口令闸门")
)

// TokenBlacklist 注销时作废 Token，由 pkg/redis.Client 实现
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// AuthService 终端口令闸门
//
// auth.app_password_hash 为空时闸门关闭，签到接口无需登录。
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, claims *jwt.Claims) error
}

type authService struct {
	cfg       *config.Config
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例；blacklist 可为 nil（Redis 不可用）
func NewAuthService(
	cfg *config.Config,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:       cfg,
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		logger:    logger,
	}
}

func (s *authService) Login(_ context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	if !s.cfg.Auth.GateEnabled() {
		return nil, ErrGateDisabled
	}

	// 1. 校验口令 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.Auth.AppPasswordHash), []byte(req.Password)); err != nil {
		s.logger.Info("终端口令校验失败", zap.String("terminal", req.Terminal))
		return nil, ErrInvalidCredentials
	}

	// 2. 签发 Token
	token, err := s.jwtMgr.GenerateAccessToken(req.Terminal)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("终端登录成功", zap.String("terminal", req.Terminal))
	return &dto.TokenResponse{
		AccessToken: token,
		ExpiresIn:   int(s.jwtMgr.AccessTokenTTL().Seconds()),
	}, nil
}

func (s *authService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if s.blacklist == nil {
		s.logger.Warn("Redis 不可用，Token 将在过期前保持有效", zap.String("jti", claims.ID))
		return nil
	}

	var ttl time.Duration
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if err := s.blacklist.BlacklistToken(ctx, claims.ID, ttl); err != nil {
		s.logger.Error("写入 Token 黑名单失败", zap.Error(err))
		return err
	}

	s.logger.Info("终端已注销", zap.String("terminal", claims.Terminal))
	return nil
}
