package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"checkin-desk/config"
)

// Repository 所有存储的聚合入口
// 名单与签到表可以落在不同后端（例如名单在 Excel，签到在 Postgres）
type Repository struct {
	Roster TableStore
	Ledger TableStore
}

// NewRepository 创建 Repository 聚合
func NewRepository(roster, ledger TableStore) *Repository {
	return &Repository{Roster: roster, Ledger: ledger}
}

// NeedsDB 判断配置的后端中是否有基于 SQL 的存储
func NeedsDB(cfg *config.Config) bool {
	isSQL := func(b string) bool { return b == "postgres" || b == "sqlite" }
	return isSQL(cfg.Roster.Backend) || isSQL(cfg.Ledger.Backend)
}

// OpenTableStore 按后端名称构建 TableStore；db 仅在 SQL 后端时使用
func OpenTableStore(ctx context.Context, backend string, cfg *config.Config, db *gorm.DB) (TableStore, error) {
	switch backend {
	case "postgres", "sqlite":
		if db == nil {
			return nil, fmt.Errorf("后端 %s 需要数据库连接", backend)
		}
		return NewGormTableStore(db), nil
	case "xlsx":
		return NewXlsxTableStore(cfg.Xlsx.Dir)
	case "sheets":
		return NewSheetsTableStore(ctx, cfg.Sheets.CredentialsFile)
	default:
		return nil, fmt.Errorf("未知的存储后端: %s", backend)
	}
}
