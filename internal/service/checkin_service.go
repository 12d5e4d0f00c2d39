package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"checkin-desk/internal/dto"
	"checkin-desk/internal/model"
)

// CheckinService 签到业务接口
//
// 每个方法都会按当前时刻重新推导时段，跨过正午或午夜后自动切换到新的名单与签到表。
type CheckinService interface {
	CurrentSession(ctx context.Context) (*SessionContext, error)
	// CurrentRoster 当前时段的名单
	CurrentRoster(ctx context.Context) (*SessionContext, *RosterIndex, error)
	CheckIn(ctx context.Context, req *dto.CheckinRequest) (*dto.CheckinResponse, error)
	ListPresent(ctx context.Context) (*dto.PresentListResponse, error)
	ListAbsent(ctx context.Context) (*dto.AbsentListResponse, error)
	// RefreshAbsent 重新核对并重写缺勤块，可重复执行
	RefreshAbsent(ctx context.Context) (*dto.RefreshAbsentResponse, error)
}

type checkinService struct {
	clock      *SessionClock
	roster     RosterService
	ledger     LedgerService
	revalidate bool
	now        func() time.Time
	logger     *zap.Logger
}

// NewCheckinService 创建 CheckinService 实例
// revalidate 为 true 时，追加前绕过缓存重新读取签到表再校验一次
func NewCheckinService(
	clock *SessionClock,
	roster RosterService,
	ledger LedgerService,
	revalidate bool,
	logger *zap.Logger,
) CheckinService {
	return &checkinService{
		clock:      clock,
		roster:     roster,
		ledger:     ledger,
		revalidate: revalidate,
		now:        time.Now,
		logger:     logger,
	}
}

func (s *checkinService) CurrentSession(_ context.Context) (*SessionContext, error) {
	return s.clock.Current(s.now())
}

func (s *checkinService) CurrentRoster(ctx context.Context) (*SessionContext, *RosterIndex, error) {
	sc, err := s.clock.Current(s.now())
	if err != nil {
		return nil, nil, err
	}
	roster, err := s.roster.Load(ctx, sc.RosterKey)
	if err != nil {
		return sc, nil, err
	}
	return sc, roster, nil
}

// ═══════════════════════════════════════════════════════════
// CheckIn：一次签到提交
// ═══════════════════════════════════════════════════════════
//
// 流程：推导时段（周末拒绝）→ 加载名单 → 读取签到表 → 校验
//       → 可选复核 → 判定准时/迟到 → 追加 → 刷新缺勤块（尽力而为）

func (s *checkinService) CheckIn(ctx context.Context, req *dto.CheckinRequest) (*dto.CheckinResponse, error) {
	// 1. 时段与名单
	sc, roster, err := s.CurrentRoster(ctx)
	if err != nil {
		return nil, err
	}

	// 2. 校验
	snap, err := s.ledger.ReadAll(ctx, sc.LogKey)
	if err != nil {
		return nil, err
	}
	view := snap.View()
	res, err := Resolve(req.StudentID, req.Seat, roster, view)
	if err != nil {
		s.logRejected(sc, req, err)
		return nil, err
	}

	// 3. 复核：缓存可能落后于其他终端的写入
	if s.revalidate {
		fresh, err := s.ledger.ReadFresh(ctx, sc.LogKey)
		if err != nil {
			return nil, err
		}
		view = fresh.View()
		if res, err = Resolve(req.StudentID, req.Seat, roster, view); err != nil {
			s.logRejected(sc, req, err)
			return nil, err
		}
	}

	// 4. 追加
	rec := model.AttendanceRecord{
		Date:      sc.Date,
		Session:   sc.Session,
		StudentID: res.StudentID,
		FullName:  res.FullName,
		Seat:      res.Seat,
		Time:      sc.Now.Format(clockLayout),
		Status:    s.clock.StatusAt(sc, sc.Now),
	}
	if err := s.ledger.Append(ctx, sc.LogKey, rec); err != nil {
		return nil, err
	}
	view.Add(rec)

	s.logger.Info("签到成功",
		zap.String("student_id", rec.StudentID),
		zap.String("seat", rec.Seat),
		zap.String("status", rec.Status),
		zap.String("section", sc.Section),
		zap.String("source", sourceOf(req)),
	)

	resp := &dto.CheckinResponse{
		Record:       toRecordResponse(rec),
		Message:      fmt.Sprintf("%s (%s) | Seat: %s | %s (%s)", rec.StudentID, rec.FullName, seatOrDash(rec.Seat), rec.Time, rec.Status),
		PresentCount: view.PresentCount(),
	}

	// 5. 缺勤块刷新失败不回滚已写入的签到
	if _, err := s.reconcile(ctx, sc, roster); err != nil {
		s.logger.Warn("缺勤块刷新失败，签到已保留",
			zap.String("student_id", rec.StudentID),
			zap.String("table", sc.LogKey.Ref.String()),
			zap.Error(err),
		)
		resp.AbsentBlockError = err.Error()
	} else {
		resp.AbsentBlockRefreshed = true
	}

	return resp, nil
}

// ────────────────────── 列表 ──────────────────────

func (s *checkinService) ListPresent(ctx context.Context) (*dto.PresentListResponse, error) {
	sc, err := s.clock.Current(s.now())
	if err != nil {
		return nil, err
	}
	snap, err := s.ledger.ReadAll(ctx, sc.LogKey)
	if err != nil {
		return nil, err
	}

	present := snap.Present()
	records := make([]dto.AttendanceRecordResponse, len(present))
	for i, r := range present {
		records[i] = toRecordResponse(r)
	}
	return &dto.PresentListResponse{
		Date:    sc.Date,
		Session: sc.Session,
		Total:   len(records),
		Records: records,
	}, nil
}

func (s *checkinService) ListAbsent(ctx context.Context) (*dto.AbsentListResponse, error) {
	sc, roster, err := s.CurrentRoster(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := s.ledger.ReadAll(ctx, sc.LogKey)
	if err != nil {
		return nil, err
	}

	absent := ReconcileAbsent(roster.ByID, snap.Records, sc.Date, sc.Session)
	students := make([]dto.StudentResponse, len(absent))
	for i, a := range absent {
		students[i] = dto.StudentResponse{StudentID: a.StudentID, FullName: a.FullName, Seat: a.Seat}
	}
	return &dto.AbsentListResponse{
		Date:     sc.Date,
		Session:  sc.Session,
		Total:    len(students),
		Students: students,
	}, nil
}

// ────────────────────── 手动刷新 ──────────────────────

func (s *checkinService) RefreshAbsent(ctx context.Context) (*dto.RefreshAbsentResponse, error) {
	sc, roster, err := s.CurrentRoster(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.reconcile(ctx, sc, roster)
	if err != nil {
		return nil, err
	}

	s.logger.Info("缺勤块已刷新",
		zap.String("table", sc.LogKey.Ref.String()),
		zap.Int("present", res.Present),
		zap.Int("absent", res.Absent),
	)
	return &dto.RefreshAbsentResponse{
		Date:    sc.Date,
		Session: sc.Session,
		Present: res.Present,
		Absent:  res.Absent,
		Dropped: res.Dropped,
	}, nil
}

// ── 内部辅助方法 ──

// reconcile 绕过缓存读取签到表，核对缺勤并整表重写
func (s *checkinService) reconcile(ctx context.Context, sc *SessionContext, roster *RosterIndex) (*MaterializeResult, error) {
	snap, err := s.ledger.ReadFresh(ctx, sc.LogKey)
	if err != nil {
		return nil, err
	}
	absent := ReconcileAbsent(roster.ByID, snap.Records, sc.Date, sc.Session)
	return s.ledger.MaterializeAbsentBlock(ctx, snap, absent)
}

func (s *checkinService) logRejected(sc *SessionContext, req *dto.CheckinRequest, err error) {
	var ce *CheckinError
	if !errors.As(err, &ce) {
		return
	}
	s.logger.Info("签到被拒绝",
		zap.String("reason", ce.Kind.Error()),
		zap.String("raw_id", req.StudentID),
		zap.String("raw_seat", req.Seat),
		zap.String("section", sc.Section),
		zap.String("source", sourceOf(req)),
	)
}

func sourceOf(req *dto.CheckinRequest) string {
	if req.Source == "" {
		return dto.SourceManual
	}
	return req.Source
}

func seatOrDash(seat string) string {
	if seat == "" {
		return "-"
	}
	return seat
}

func toRecordResponse(r model.AttendanceRecord) dto.AttendanceRecordResponse {
	return dto.AttendanceRecordResponse{
		Date:      r.Date,
		Session:   r.Session,
		StudentID: r.StudentID,
		FullName:  r.FullName,
		Seat:      r.Seat,
		Time:      r.Time,
		Status:    r.Status,
	}
}
