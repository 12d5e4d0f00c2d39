package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"checkin-desk/internal/model"
)

type gormTableStore struct {
	db *gorm.DB
}

// NewGormTableStore 基于 sheet_tables / sheet_rows 的表格存储（postgres 或 sqlite）
func NewGormTableStore(db *gorm.DB) TableStore {
	return &gormTableStore{db: db}
}

func tableScope(ref TableRef) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("collection_id = ? AND table_name = ?", ref.Collection, ref.Table)
	}
}

func (s *gormTableStore) ReadAll(ctx context.Context, ref TableRef) ([][]string, error) {
	var t model.Table
	if err := s.db.WithContext(ctx).Scopes(tableScope(ref)).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTableNotFound
		}
		return nil, err
	}

	var rows []model.TableRow
	err := s.db.WithContext(ctx).
		Scopes(tableScope(ref)).
		Order("row_index ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([][]string, len(rows))
	for i := range rows {
		out[i] = append([]string(nil), rows[i].Cells...)
	}
	return out, nil
}

func (s *gormTableStore) Append(ctx context.Context, ref TableRef, row []string) error {
	return s.AppendMany(ctx, ref, [][]string{row})
}

func (s *gormTableStore) AppendMany(ctx context.Context, ref TableRef, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTable(tx, ref); err != nil {
			return err
		}

		var last int
		err := tx.Model(&model.TableRow{}).
			Scopes(tableScope(ref)).
			Select("COALESCE(MAX(row_index), -1)").
			Scan(&last).Error
		if err != nil {
			return err
		}

		return insertRows(tx, ref, last+1, rows)
	})
}

func (s *gormTableStore) ReplaceAll(ctx context.Context, ref TableRef, rows [][]string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTable(tx, ref); err != nil {
			return err
		}
		if err := tx.Scopes(tableScope(ref)).Delete(&model.TableRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return bumpVersion(tx, ref)
		}
		return insertRows(tx, ref, 0, rows)
	})
}

func (s *gormTableStore) EnsureTable(ctx context.Context, ref TableRef, header []string) (bool, error) {
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.Table{
			CollectionID: ref.Collection,
			Name:         ref.Table,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // 已存在
		}
		created = true
		if len(header) == 0 {
			return nil
		}
		return insertRows(tx, ref, 0, [][]string{header})
	})
	return created, err
}

// ── 内部辅助方法 ──

// lockTable 确认工作表存在；postgres 下对表记录加行锁串行化同表写入
func lockTable(tx *gorm.DB, ref TableRef) error {
	q := tx.Scopes(tableScope(ref))
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var t model.Table
	if err := q.First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTableNotFound
		}
		return err
	}
	return nil
}

func insertRows(tx *gorm.DB, ref TableRef, start int, rows [][]string) error {
	records := make([]model.TableRow, len(rows))
	for i, r := range rows {
		cells := make([]string, len(r))
		copy(cells, r)
		records[i] = model.TableRow{
			CollectionID: ref.Collection,
			Table:        ref.Table,
			RowIndex:     start + i,
			Cells:        cells,
		}
	}
	if err := tx.CreateInBatches(records, 200).Error; err != nil {
		return err
	}
	return bumpVersion(tx, ref)
}

func bumpVersion(tx *gorm.DB, ref TableRef) error {
	return tx.Model(&model.Table{}).
		Scopes(tableScope(ref)).
		Updates(map[string]interface{}{
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		}).Error
}
