package service

import (
	"go.uber.org/zap"

	"checkin-desk/config"
	"checkin-desk/internal/repository"
	"checkin-desk/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Clock   *SessionClock
	Roster  RosterService
	Ledger  LedgerService
	Checkin CheckinService
	Export  ExportService
	Badge   BadgeService
	Auth    AuthService
}

// NewService 创建 Service 聚合
// cache 为读缓存（Redis 或进程内），blacklist 可为 nil
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	clock *SessionClock,
	cache ReadCache,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) *Service {
	roster := NewRosterService(repo.Roster, cache, cfg.Roster.CacheTTL, logger)
	ledger := NewLedgerService(repo.Ledger, cache, cfg.Ledger.CacheTTL, logger)
	checkin := NewCheckinService(clock, roster, ledger, cfg.Checkin.Revalidate, logger)

	return &Service{
		Clock:   clock,
		Roster:  roster,
		Ledger:  ledger,
		Checkin: checkin,
		Export:  NewExportService(checkin, logger),
		Badge:   NewBadgeService(checkin, logger),
		Auth:    NewAuthService(cfg, jwtMgr, blacklist, logger),
	}
}
