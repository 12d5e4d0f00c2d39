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

// ErrLedgerChanged 重写缺勤块前签到表已被改动（通常是另一台终端刚签到）
var ErrLedgerChanged = apperrors.ErrStaleSnapshot

// LedgerSnapshot 某次读取得到的签到表内容
type LedgerSnapshot struct {
	Key     LogKey
	Rows    [][]string // 原始行，含表头
	Records []model.AttendanceRecord
}

// Present 属于本日期 + 时段且非 Absent 的记录，保持原顺序
func (s *LedgerSnapshot) Present() []model.AttendanceRecord {
	var out []model.AttendanceRecord
	for _, r := range s.Records {
		if s.inSession(r) && !r.IsAbsent() {
			out = append(out, r)
		}
	}
	return out
}

// View 基于本次读取构建的内存集合
func (s *LedgerSnapshot) View() *LedgerView {
	v := NewLedgerView(s.Key.Date, s.Key.Session)
	for _, r := range s.Records {
		v.Add(r)
	}
	return v
}

func (s *LedgerSnapshot) inSession(r model.AttendanceRecord) bool {
	return r.Date == s.Key.Date && r.Session == s.Key.Session
}

// ParseLedgerRows 将原始行解析为记录
//
// 首行含 student_id 列时视为表头并按列名取值，否则按标准列序；
// 缺失的列取空串，多余的列忽略。空行与 ABSENT LIST 分隔行跳过。
func ParseLedgerRows(rows [][]string) []model.AttendanceRecord {
	if len(rows) == 0 {
		return nil
	}

	pos := make(map[string]int, len(model.LedgerHeader))
	for i, h := range model.LedgerHeader {
		pos[h] = i
	}
	data := rows
	if isLedgerHeader(rows[0]) {
		pos = make(map[string]int, len(rows[0]))
		for i, h := range rows[0] {
			k := strings.ToLower(strings.TrimSpace(h))
			if _, dup := pos[k]; !dup {
				pos[k] = i
			}
		}
		data = rows[1:]
	}

	get := func(r []string, col string) string {
		i, ok := pos[col]
		if !ok {
			return ""
		}
		return strings.TrimSpace(cell(r, i))
	}

	out := make([]model.AttendanceRecord, 0, len(data))
	for _, r := range data {
		if isBlankRow(r) || strings.TrimSpace(cell(r, 0)) == model.AbsentSeparator {
			continue
		}
		out = append(out, model.AttendanceRecord{
			Date:      get(r, "date"),
			Session:   get(r, "session"),
			StudentID: get(r, "student_id"),
			FullName:  get(r, "full_name"),
			Seat:      get(r, "seat"),
			Time:      get(r, "time"),
			Status:    get(r, "status"),
		})
	}
	return out
}

// ReconcileAbsent 名单减去本时段已签到学号，按学号升序
// 纯函数：相同输入总是得到相同输出
func ReconcileAbsent(rosterByID map[string]model.RosterEntry, records []model.AttendanceRecord, date, session string) []model.AttendanceRecord {
	checked := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.Date == date && r.Session == session && !r.IsAbsent() {
			checked[r.StudentID] = struct{}{}
		}
	}

	out := make([]model.AttendanceRecord, 0, len(rosterByID))
	for id, e := range rosterByID {
		if _, ok := checked[id]; ok {
			continue
		}
		out = append(out, model.AttendanceRecord{
			StudentID: id,
			FullName:  e.FullName,
			Seat:      e.Seat,
			Status:    model.StatusAbsent,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out
}

// BuildAbsentBlock 重写后的签到表全部内容：
// 表头、本时段出勤行（原顺序）、分隔行、缺勤行
func BuildAbsentBlock(present, absent []model.AttendanceRecord) [][]string {
	width := len(model.LedgerHeader)
	rows := make([][]string, 0, len(present)+len(absent)+2)
	rows = append(rows, append([]string(nil), model.LedgerHeader...))
	for _, r := range present {
		rows = append(rows, r.Row())
	}

	sep := make([]string, width)
	sep[0] = model.AbsentSeparator
	rows = append(rows, sep)

	for _, a := range absent {
		rows = append(rows, []string{"", "", a.StudentID, a.FullName, a.Seat, "", model.StatusAbsent})
	}
	return rows
}

// ═══════════════════════════════════════════════════════════
// LedgerService：签到表读写
// ═══════════════════════════════════════════════════════════

// MaterializeResult 缺勤块重写结果
type MaterializeResult struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Dropped int `json:"dropped"` // 被丢弃的其他日期/时段行
}

// LedgerService 签到表业务接口
//
// 存储层不做去重，重复与座位冲突由调用方在 Append 之前检查。
// MaterializeAbsentBlock 是整表重写：重写前会重新读取并与快照比对，不一致时返回 ErrLedgerChanged。
type LedgerService interface {
	// ReadAll 读取签到表（可能命中缓存）；表不存在时按标准表头创建
	ReadAll(ctx context.Context, key LogKey) (*LedgerSnapshot, error)
	// ReadFresh 绕过缓存直接读取
	ReadFresh(ctx context.Context, key LogKey) (*LedgerSnapshot, error)
	Append(ctx context.Context, key LogKey, rec model.AttendanceRecord) error
	IsAlreadyCheckedIn(ctx context.Context, key LogKey, studentID string) (bool, error)
	IsSeatUsed(ctx context.Context, key LogKey, seat string) (bool, error)
	MaterializeAbsentBlock(ctx context.Context, snap *LedgerSnapshot, absent []model.AttendanceRecord) (*MaterializeResult, error)
}

type ledgerService struct {
	store  repository.TableStore
	cache  ReadCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewLedgerService 创建 LedgerService 实例
func NewLedgerService(store repository.TableStore, cache ReadCache, ttl time.Duration, logger *zap.Logger) LedgerService {
	return &ledgerService{store: store, cache: cache, ttl: ttl, logger: logger}
}

func (s *ledgerService) ReadAll(ctx context.Context, key LogKey) (*LedgerSnapshot, error) {
	if rows, ok := cachedRows(ctx, s.cache, ledgerCacheKey(key.Ref)); ok {
		return newSnapshot(key, rows), nil
	}
	return s.ReadFresh(ctx, key)
}

func (s *ledgerService) ReadFresh(ctx context.Context, key LogKey) (*LedgerSnapshot, error) {
	rows, err := s.readRows(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := storeRows(ctx, s.cache, ledgerCacheKey(key.Ref), rows, s.ttl); err != nil {
		s.logger.Warn("写入签到表缓存失败", zap.String("table", key.Ref.String()), zap.Error(err))
	}
	return newSnapshot(key, rows), nil
}

func (s *ledgerService) Append(ctx context.Context, key LogKey, rec model.AttendanceRecord) error {
	if _, err := s.store.EnsureTable(ctx, key.Ref, model.LedgerHeader); err != nil {
		return s.storeErr("创建签到表失败", key, err)
	}
	if err := s.store.Append(ctx, key.Ref, rec.Row()); err != nil {
		return s.storeErr("追加签到记录失败", key, err)
	}
	s.invalidate(ctx, key)
	return nil
}

func (s *ledgerService) IsAlreadyCheckedIn(ctx context.Context, key LogKey, studentID string) (bool, error) {
	snap, err := s.ReadAll(ctx, key)
	if err != nil {
		return false, err
	}
	return snap.View().HasStudent(studentID), nil
}

func (s *ledgerService) IsSeatUsed(ctx context.Context, key LogKey, seat string) (bool, error) {
	snap, err := s.ReadAll(ctx, key)
	if err != nil {
		return false, err
	}
	return snap.View().SeatUsed(seat), nil
}

func (s *ledgerService) MaterializeAbsentBlock(ctx context.Context, snap *LedgerSnapshot, absent []model.AttendanceRecord) (*MaterializeResult, error) {
	key := snap.Key

	current, err := s.readRows(ctx, key)
	if err != nil {
		return nil, err
	}
	if !sameRows(current, snap.Rows) {
		s.logger.Warn("签到表在重写前已变化，放弃本次缺勤块重写",
			zap.String("table", key.Ref.String()),
			zap.Int("snapshot_rows", len(snap.Rows)),
			zap.Int("current_rows", len(current)),
		)
		return nil, ErrLedgerChanged
	}

	present := snap.Present()
	dropped := 0
	for _, r := range snap.Records {
		if !snap.inSession(r) && !r.IsAbsent() {
			dropped++
		}
	}
	if dropped > 0 {
		s.logger.Warn("重写缺勤块时丢弃了其他日期/时段的记录",
			zap.String("table", key.Ref.String()),
			zap.Int("dropped", dropped),
		)
	}

	if err := s.store.ReplaceAll(ctx, key.Ref, BuildAbsentBlock(present, absent)); err != nil {
		return nil, s.storeErr("重写缺勤块失败", key, err)
	}
	s.invalidate(ctx, key)

	return &MaterializeResult{Present: len(present), Absent: len(absent), Dropped: dropped}, nil
}

// ── 内部辅助方法 ──

func (s *ledgerService) readRows(ctx context.Context, key LogKey) ([][]string, error) {
	rows, err := s.store.ReadAll(ctx, key.Ref)
	if errors.Is(err, repository.ErrTableNotFound) {
		if _, err := s.store.EnsureTable(ctx, key.Ref, model.LedgerHeader); err != nil {
			return nil, s.storeErr("创建签到表失败", key, err)
		}
		s.logger.Info("已创建签到表", zap.String("table", key.Ref.String()))
		rows, err = s.store.ReadAll(ctx, key.Ref)
	}
	if err != nil {
		return nil, s.storeErr("读取签到表失败", key, err)
	}
	return rows, nil
}

func (s *ledgerService) invalidate(ctx context.Context, key LogKey) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, ledgerCacheKey(key.Ref)); err != nil {
		s.logger.Warn("清除签到表缓存失败", zap.String("table", key.Ref.String()), zap.Error(err))
	}
}

func (s *ledgerService) storeErr(msg string, key LogKey, err error) error {
	s.logger.Error(msg, zap.String("table", key.Ref.String()), zap.Error(err))
	return fmt.Errorf("%w: %v", apperrors.ErrBackingStoreUnavailable, err)
}

func newSnapshot(key LogKey, rows [][]string) *LedgerSnapshot {
	return &LedgerSnapshot{Key: key, Rows: rows, Records: ParseLedgerRows(rows)}
}

func isLedgerHeader(row []string) bool {
	for _, c := range row {
		if strings.EqualFold(strings.TrimSpace(c), "student_id") {
			return true
		}
	}
	return false
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// sameRows 逐格比较，忽略行尾空单元格（各后端对尾部空格的处理不同）
func sameRows(a, b [][]string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := trimTrailing(a[i]), trimTrailing(b[i])
		if len(x) != len(y) {
			return false
		}
		for j := range x {
			if x[j] != y[j] {
				return false
			}
		}
	}
	return true
}

func trimTrailing(row []string) []string {
	n := len(row)
	for n > 0 && row[n-1] == "" {
		n--
	}
	return row[:n]
}

// ═══════════════════════════════════════════════════════════
// LedgerView：本时段已签到学号 / 座位集合
// ═══════════════════════════════════════════════════════════

// LedgerView 由一次读取构建，在本进程追加后增量更新
type LedgerView struct {
	date    string
	session string
	ids     map[string]struct{}
	seats   map[string]struct{}
}

// NewLedgerView 创建空视图
func NewLedgerView(date, session string) *LedgerView {
	return &LedgerView{
		date:    date,
		session: session,
		ids:     make(map[string]struct{}),
		seats:   make(map[string]struct{}),
	}
}

// Add 计入一条记录；其他日期/时段以及 Absent 行忽略
func (v *LedgerView) Add(r model.AttendanceRecord) {
	if r.Date != v.date || r.Session != v.session || r.IsAbsent() {
		return
	}
	if r.StudentID != "" {
		v.ids[r.StudentID] = struct{}{}
	}
	if seat := NormalizeSeat(r.Seat); seat != "" {
		v.seats[seat] = struct{}{}
	}
}

// HasStudent 该学号本时段是否已签到
func (v *LedgerView) HasStudent(studentID string) bool {
	_, ok := v.ids[studentID]
	return ok
}

// SeatUsed 座位本时段是否已被占用；空座位永远未占用
func (v *LedgerView) SeatUsed(seat string) bool {
	seat = NormalizeSeat(seat)
	if seat == "" {
		return false
	}
	_, ok := v.seats[seat]
	return ok
}

// PresentCount 已签到人数
func (v *LedgerView) PresentCount() int { return len(v.ids) }
