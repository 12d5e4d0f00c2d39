package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"checkin-desk/internal/model"
	"checkin-desk/internal/repository"
	apperrors "checkin-desk/pkg/errors"
)

// ── 名单模块业务错误 ──

var (
	ErrRosterNotFound = errors.New("roster not found for this session")
	ErrRosterEmpty    = errors.New("roster is empty or has only a header row")
)

// RosterIndex 一个时段名单的两张查找表
//
// ByID 以学号为键；BySeat 以大写座位号为键，仅收录有座位的学生。
// 重复学号或重复座位时后出现的行覆盖先出现的行。
type RosterIndex struct {
	ByID   map[string]model.RosterEntry
	BySeat map[string]model.RosterEntry
}

// rosterColumns 名单列位置，默认 A/B/C
type rosterColumns struct {
	id, name, seat int
}

// detectRosterColumns 表头含 Student ID / Full Name / Seat 时按列名定位
func detectRosterColumns(header []string) rosterColumns {
	cols := rosterColumns{id: 0, name: 1, seat: 2}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "student id", "student_id":
			cols.id = i
		case "full name", "full_name":
			cols.name = i
		case "seat":
			cols.seat = i
		}
	}
	return cols
}

// BuildRosterIndex 由名单原始行（首行为表头）构建索引
func BuildRosterIndex(rows [][]string) *RosterIndex {
	idx := &RosterIndex{
		ByID:   make(map[string]model.RosterEntry),
		BySeat: make(map[string]model.RosterEntry),
	}
	if len(rows) == 0 {
		return idx
	}

	cols := detectRosterColumns(rows[0])
	for _, r := range rows[1:] {
		id := strings.TrimSpace(cell(r, cols.id))
		if id == "" {
			continue
		}
		e := model.RosterEntry{
			StudentID: id,
			FullName:  strings.TrimSpace(cell(r, cols.name)),
			Seat:      NormalizeSeat(cell(r, cols.seat)),
		}
		idx.ByID[id] = e
		if e.Seat != "" {
			idx.BySeat[e.Seat] = e
		}
	}
	return idx
}

// Lookup 按学号查找
func (x *RosterIndex) Lookup(studentID string) (model.RosterEntry, bool) {
	e, ok := x.ByID[studentID]
	return e, ok
}

// LookupSeat 按座位查找，大小写不敏感
func (x *RosterIndex) LookupSeat(seat string) (model.RosterEntry, bool) {
	e, ok := x.BySeat[NormalizeSeat(seat)]
	return e, ok
}

// Students 按学号升序列出全部学生
func (x *RosterIndex) Students() []model.RosterEntry {
	out := make([]model.RosterEntry, 0, len(x.ByID))
	for _, e := range x.ByID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out
}

// Len 学生人数
func (x *RosterIndex) Len() int { return len(x.ByID) }

// cell 越界时返回空串
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// ═══════════════════════════════════════════════════════════
// RosterService：名单加载（读穿缓存）
// ═══════════════════════════════════════════════════════════

// RosterService 名单业务接口
type RosterService interface {
	// Load 读取并索引名单表；表不存在返回 ErrRosterNotFound，不足两行返回 ErrRosterEmpty
	Load(ctx context.Context, ref repository.TableRef) (*RosterIndex, error)
}

type rosterService struct {
	store  repository.TableStore
	cache  ReadCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewRosterService 创建 RosterService 实例
func NewRosterService(store repository.TableStore, cache ReadCache, ttl time.Duration, logger *zap.Logger) RosterService {
	return &rosterService{store: store, cache: cache, ttl: ttl, logger: logger}
}

func (s *rosterService) Load(ctx context.Context, ref repository.TableRef) (*RosterIndex, error) {
	key := rosterCacheKey(ref)
	rows, hit := cachedRows(ctx, s.cache, key)
	if !hit {
		var err error
		rows, err = s.store.ReadAll(ctx, ref)
		if err != nil {
			if errors.Is(err, repository.ErrTableNotFound) {
				return nil, ErrRosterNotFound
			}
			s.logger.Error("读取名单失败", zap.String("table", ref.String()), zap.Error(err))
			return nil, fmt.Errorf("%w: %v", apperrors.ErrBackingStoreUnavailable, err)
		}
		if len(rows) >= 2 {
			if err := storeRows(ctx, s.cache, key, rows, s.ttl); err != nil {
				s.logger.Warn("写入名单缓存失败", zap.String("key", key), zap.Error(err))
			}
		}
	}

	if len(rows) < 2 {
		return nil, ErrRosterEmpty
	}

	idx := BuildRosterIndex(rows)
	s.logger.Debug("名单已加载",
		zap.String("table", ref.String()),
		zap.Int("students", idx.Len()),
		zap.Bool("cached", hit),
	)
	return idx, nil
}
