package service

import (
	"errors"
	"fmt"
)

// ── 签到校验业务错误（均可由用户更正后重试）──

var (
	ErrMissingInput     = errors.New("missing input")
	ErrUnknownID        = errors.New("unknown student id")
	ErrUnknownSeat      = errors.New("unknown seat")
	ErrDuplicateCheckin = errors.New("duplicate check-in")
	ErrSeatConflict     = errors.New("seat conflict")
	ErrSeatMismatch     = errors.New("seat mismatch")
)

// CheckinError 带用户提示的签到拒绝原因，Kind 为上面的哨兵错误之一
type CheckinError struct {
	Kind    error
	Message string
}

func (e *CheckinError) Error() string { return e.Message }

func (e *CheckinError) Unwrap() error { return e.Kind }

func reject(kind error, format string, args ...interface{}) error {
	return &CheckinError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Resolution 通过校验后要写入的学生与座位
type Resolution struct {
	StudentID string
	FullName  string
	Seat      string
}

// Resolve 校验一次签到尝试
//
// 判定顺序固定，先命中者生效：
//  1. 学号与座位都为空 → MissingInput
//  2. 仅学号：不在名单 → UnknownID；已签到 → DuplicateCheckin；名单座位已被占 → SeatConflict
//  3. 仅座位：不在名单 → UnknownSeat；该座位的学生已签到 → DuplicateCheckin；座位已被占 → SeatConflict
//  4. 都有：不在名单 → UnknownID；与名单座位不符 → SeatMismatch；已签到 → DuplicateCheckin；座位已被占 → SeatConflict
//
// 无法解析出有效学号的原始文本按“未提供学号”处理。
func Resolve(rawID, rawSeat string, roster *RosterIndex, view *LedgerView) (*Resolution, error) {
	var id string
	if rawID != "" {
		id, _ = ExtractStudentID(rawID)
	}
	seat := NormalizeSeat(rawSeat)

	switch {
	case id == "" && seat == "":
		return nil, reject(ErrMissingInput, "Please fill at least one field: Student ID or Seat")

	case seat == "":
		e, ok := roster.Lookup(id)
		if !ok {
			return nil, reject(ErrUnknownID, "%s not in roster", id)
		}
		if view.HasStudent(id) {
			return nil, reject(ErrDuplicateCheckin, "%s already checked in", id)
		}
		if e.Seat != "" && view.SeatUsed(e.Seat) {
			return nil, reject(ErrSeatConflict, "Seat %s already used", e.Seat)
		}
		return &Resolution{StudentID: id, FullName: e.FullName, Seat: e.Seat}, nil

	case id == "":
		e, ok := roster.LookupSeat(seat)
		if !ok {
			return nil, reject(ErrUnknownSeat, "Seat %s not in roster", seat)
		}
		if view.HasStudent(e.StudentID) {
			return nil, reject(ErrDuplicateCheckin, "%s already checked in", e.StudentID)
		}
		if view.SeatUsed(seat) {
			return nil, reject(ErrSeatConflict, "Seat %s already used", seat)
		}
		return &Resolution{StudentID: e.StudentID, FullName: e.FullName, Seat: seat}, nil

	default:
		e, ok := roster.Lookup(id)
		if !ok {
			return nil, reject(ErrUnknownID, "%s not in roster", id)
		}
		if e.Seat != "" && e.Seat != seat {
			return nil, reject(ErrSeatMismatch, "%s is assigned to seat %s (not %s)", id, e.Seat, seat)
		}
		if view.HasStudent(id) {
			return nil, reject(ErrDuplicateCheckin, "%s already checked in", id)
		}
		if view.SeatUsed(seat) {
			return nil, reject(ErrSeatConflict, "Seat %s already used", seat)
		}
		return &Resolution{StudentID: id, FullName: e.FullName, Seat: seat}, nil
	}
}
