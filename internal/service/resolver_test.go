package service

import (
	"errors"
	"testing"

	"checkin-desk/internal/model"
)

func TestResolve_Order(t *testing.T) {
	roster := BuildRosterIndex(sampleRosterRows())
	view := NewLedgerView(testDate, model.SessionMorning)
	// 外部写入：Chai 签到时手填了 B2
	view.Add(model.AttendanceRecord{Date: testDate, Session: model.SessionMorning, StudentID: "1000000003", Seat: "B2", Status: model.StatusOnTime})

	tests := []struct {
		name string
		id   string
		seat string
		want error
	}{
		{"都为空", "", "", ErrMissingInput},
		{"学号不在名单优先于座位检查", "1000000099", "Z9", ErrUnknownID},
		{"座位不符优先于座位冲突", "1000000001", "B2", ErrSeatMismatch},
		{"仅学号且名单座位被占", "1000000002", "", ErrSeatConflict},
		{"仅座位且座位被占", "", "b2", ErrSeatConflict},
		{"仅学号已签到", "1000000003", "", ErrDuplicateCheckin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.id, tt.seat, roster, view)
			if !errors.Is(err, tt.want) {
				t.Errorf("期望 %v，实际: %v", tt.want, err)
			}
		})
	}
}

func TestResolve_Success(t *testing.T) {
	roster := BuildRosterIndex(sampleRosterRows())
	view := NewLedgerView(testDate, model.SessionMorning)

	res, err := Resolve("1000000004", "C4", roster, view)
	if err != nil {
		t.Fatalf("Resolve 应成功: %v", err)
	}
	if res.FullName != "Dao Duangdee" || res.Seat != "C4" {
		t.Errorf("结果不符: %+v", res)
	}

	// 名单无座位的学生可自报座位
	res, err = Resolve("1000000003", "d9", roster, view)
	if err != nil {
		t.Fatalf("Resolve 应成功: %v", err)
	}
	if res.Seat != "D9" {
		t.Errorf("期望座位 D9，实际 %s", res.Seat)
	}
}
