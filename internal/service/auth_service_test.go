package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"checkin-desk/config"
	"checkin-desk/internal/dto"
	"checkin-desk/pkg/jwt"
)

// ── Mock 黑名单 ──

type mockBlacklist struct {
	tokens map[string]time.Duration
	err    error
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.tokens[jti] = ttl
	return nil
}

// ── 测试辅助 ──

func setupTestAuthService(password string) (AuthService, *jwt.Manager, *mockBlacklist) {
	cfg := testConfig()
	if password != "" {
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		cfg.Auth.AppPasswordHash = string(hash)
	}
	jwtMgr := jwt.NewManager(&cfg.Auth)
	bl := &mockBlacklist{tokens: make(map[string]time.Duration)}
	return NewAuthService(cfg, jwtMgr, bl, zap.NewNop()), jwtMgr, bl
}

// ── Login 测试 ──

func TestAuthService_Login_Success(t *testing.T) {
	svc, jwtMgr, _ := setupTestAuthService("classroom-2026")

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{Password: "classroom-2026", Terminal: "front-desk"})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}
	if resp.ExpiresIn != int((15 * time.Minute).Seconds()) {
		t.Errorf("期望 ExpiresIn=900，实际 %d", resp.ExpiresIn)
	}

	claims, err := jwtMgr.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("签发的 Token 应可解析: %v", err)
	}
	if claims.Terminal != "front-desk" {
		t.Errorf("期望 terminal=front-desk，实际 %s", claims.Terminal)
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, _, _ := setupTestAuthService("classroom-2026")

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Password: "guess"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestAuthService_Login_GateDisabled(t *testing.T) {
	svc, _, _ := setupTestAuthService("")

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Password: "anything"})
	if !errors.Is(err, ErrGateDisabled) {
		t.Errorf("期望 ErrGateDisabled，实际: %v", err)
	}
}

// ── Logout 测试 ──

func TestAuthService_Logout(t *testing.T) {
	svc, jwtMgr, bl := setupTestAuthService("classroom-2026")
	token, _ := jwtMgr.GenerateAccessToken("front-desk")
	claims, _ := jwtMgr.ParseToken(token)

	if err := svc.Logout(context.Background(), claims); err != nil {
		t.Fatalf("Logout 应成功: %v", err)
	}
	ttl, ok := bl.tokens[claims.ID]
	if !ok {
		t.Fatal("Token 应被加入黑名单")
	}
	if ttl <= 0 || ttl > 15*time.Minute {
		t.Errorf("黑名单 TTL 应为剩余有效期，实际 %v", ttl)
	}
}

func TestAuthService_Logout_NoBlacklist(t *testing.T) {
	cfg := &config.Config{Auth: config.AuthConfig{JWTSecret: "s", AccessTokenTTL: time.Minute}}
	jwtMgr := jwt.NewManager(&cfg.Auth)
	svc := NewAuthService(cfg, jwtMgr, nil, zap.NewNop())

	token, _ := jwtMgr.GenerateAccessToken("t")
	claims, _ := jwtMgr.ParseToken(token)
	if err := svc.Logout(context.Background(), claims); err != nil {
		t.Errorf("无黑名单时 Logout 不应失败: %v", err)
	}
}
