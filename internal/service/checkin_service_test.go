package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"checkin-desk/internal/dto"
	"checkin-desk/internal/model"
	"checkin-desk/internal/repository"
)

func checkIn(env *testEnv, id, seat string) (*dto.CheckinResponse, error) {
	return env.svc.CheckIn(context.Background(), &dto.CheckinRequest{StudentID: id, Seat: seat})
}

func assertRejected(t *testing.T, err error, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("期望 %v，实际: %v", kind, err)
	}
	var ce *CheckinError
	if !errors.As(err, &ce) || ce.Message == "" {
		t.Errorf("拒绝原因应带提示信息，实际: %v", err)
	}
}

// ── CheckIn 成功路径 ──

func TestCheckinService_CheckIn_ByID(t *testing.T) {
	env := setupTestCheckinService()

	resp, err := checkIn(env, "1000000001", "")
	if err != nil {
		t.Fatalf("CheckIn 应成功: %v", err)
	}
	if resp.Record.Seat != "A1" || resp.Record.Status != model.StatusOnTime || resp.Record.Time != "09:05:00" {
		t.Errorf("记录不符: %+v", resp.Record)
	}
	if resp.Record.Date != testDate || resp.Record.Session != model.SessionMorning {
		t.Errorf("期望 %s Morning，实际 %s %s", testDate, resp.Record.Date, resp.Record.Session)
	}
	wantMsg := "1000000001 (Alice Anan) | Seat: A1 | 09:05:00 (On time)"
	if resp.Message != wantMsg {
		t.Errorf("期望提示 %q，实际 %q", wantMsg, resp.Message)
	}
	if resp.PresentCount != 1 {
		t.Errorf("期望 1 人已签到，实际 %d", resp.PresentCount)
	}
	if !resp.AbsentBlockRefreshed {
		t.Errorf("缺勤块应已刷新: %s", resp.AbsentBlockError)
	}

	rows := env.ledger.rows(tuesdayMorningLedger)
	// 表头 + 1 出勤 + 分隔 + 3 缺勤
	if len(rows) != 6 {
		t.Fatalf("期望 6 行，实际 %d: %v", len(rows), rows)
	}
	if rows[1][2] != "1000000001" || rows[3][0] != model.AbsentSeparator {
		t.Errorf("签到表内容不符: %v", rows)
	}
}

func TestCheckinService_CheckIn_BarcodeAndSeat(t *testing.T) {
	env := setupTestCheckinService()

	resp, err := checkIn(env, "12310000000029", " b2 ")
	if err != nil {
		t.Fatalf("CheckIn 应成功: %v", err)
	}
	if resp.Record.StudentID != "1000000002" || resp.Record.Seat != "B2" {
		t.Errorf("记录不符: %+v", resp.Record)
	}
}

func TestCheckinService_CheckIn_BySeatOnly(t *testing.T) {
	env := setupTestCheckinService()

	resp, err := checkIn(env, "", "c4")
	if err != nil {
		t.Fatalf("CheckIn 应成功: %v", err)
	}
	if resp.Record.StudentID != "1000000004" || resp.Record.FullName != "Dao Duangdee" {
		t.Errorf("应按座位解析出学生，实际 %+v", resp.Record)
	}
}

func TestCheckinService_CheckIn_NoSeatStudent(t *testing.T) {
	env := setupTestCheckinService()

	resp, err := checkIn(env, "1000000003", "")
	if err != nil {
		t.Fatalf("CheckIn 应成功: %v", err)
	}
	if resp.Record.Seat != "" {
		t.Errorf("无座位学生记录座位应为空，实际 %q", resp.Record.Seat)
	}
	if resp.Message != "1000000003 (Chai Charoen) | Seat: - | 09:05:00 (On time)" {
		t.Errorf("提示不符: %q", resp.Message)
	}
}

func TestCheckinService_CheckIn_Late(t *testing.T) {
	env := setupTestCheckinService()
	env.now = tuesdayAt(9, 10, 1)

	resp, err := checkIn(env, "1000000001", "")
	if err != nil {
		t.Fatalf("CheckIn 应成功: %v", err)
	}
	if resp.Record.Status != model.StatusLate {
		t.Errorf("期望 Late，实际 %s", resp.Record.Status)
	}
}

func TestCheckinService_CheckIn_AfterAbsentBlock(t *testing.T) {
	env := setupTestCheckinService()

	if _, err := checkIn(env, "1000000001", ""); err != nil {
		t.Fatalf("第一次签到应成功: %v", err)
	}
	// Bee 此时在缺勤块中，仍可签到
	resp, err := checkIn(env, "", "B2")
	if err != nil {
		t.Fatalf("第二次签到应成功: %v", err)
	}
	if resp.PresentCount != 2 {
		t.Errorf("期望 2 人已签到，实际 %d", resp.PresentCount)
	}

	rows := env.ledger.rows(tuesdayMorningLedger)
	// 表头 + 2 出勤 + 分隔 + 2 缺勤
	if len(rows) != 6 {
		t.Fatalf("期望 6 行，实际 %d: %v", len(rows), rows)
	}
	if rows[1][2] != "1000000001" || rows[2][2] != "1000000002" {
		t.Errorf("出勤行应按签到顺序排列: %v", rows[1:3])
	}
	if rows[4][2] != "1000000003" || rows[5][2] != "1000000004" {
		t.Errorf("缺勤行不符: %v", rows[4:])
	}
}

// ── CheckIn 拒绝路径 ──

func TestCheckinService_CheckIn_MissingInput(t *testing.T) {
	env := setupTestCheckinService()

	_, err := checkIn(env, "", "  ")
	assertRejected(t, err, ErrMissingInput)

	// 无法解析的学号按未提供处理
	_, err = checkIn(env, "12345", "")
	assertRejected(t, err, ErrMissingInput)
}

func TestCheckinService_CheckIn_Unknown(t *testing.T) {
	env := setupTestCheckinService()

	_, err := checkIn(env, "1000000099", "")
	assertRejected(t, err, ErrUnknownID)

	_, err = checkIn(env, "", "Z9")
	assertRejected(t, err, ErrUnknownSeat)

	_, err = checkIn(env, "1000000099", "A1")
	assertRejected(t, err, ErrUnknownID)
}

func TestCheckinService_CheckIn_DuplicateThenSeatConflict(t *testing.T) {
	env := setupTestCheckinService()

	if _, err := checkIn(env, "1000000001", "A1"); err != nil {
		t.Fatalf("第一次签到应成功: %v", err)
	}
	before := len(env.ledger.rows(tuesdayMorningLedger))

	_, err := checkIn(env, "1000000001", "")
	assertRejected(t, err, ErrDuplicateCheckin)

	_, err = checkIn(env, "", "a1")
	assertRejected(t, err, ErrDuplicateCheckin)

	// 无座位的学生声称坐在 A1
	_, err = checkIn(env, "1000000003", "A1")
	assertRejected(t, err, ErrSeatConflict)

	if after := len(env.ledger.rows(tuesdayMorningLedger)); after != before {
		t.Errorf("被拒绝的签到不应写入，行数 %d → %d", before, after)
	}
}

func TestCheckinService_CheckIn_SeatMismatch(t *testing.T) {
	env := setupTestCheckinService()

	_, err := checkIn(env, "1000000002", "B3")
	assertRejected(t, err, ErrSeatMismatch)
	var ce *CheckinError
	errors.As(err, &ce)
	if ce.Message != "1000000002 is assigned to seat B2 (not B3)" {
		t.Errorf("提示不符: %q", ce.Message)
	}

	if _, err := checkIn(env, "1000000002", "B2"); err != nil {
		t.Errorf("使用正确座位应成功: %v", err)
	}
}

func TestCheckinService_CheckIn_Weekend(t *testing.T) {
	env := setupTestCheckinService()
	env.now = time.Date(2026, 3, 14, 9, 0, 0, 0, bangkok)

	_, err := checkIn(env, "1000000001", "")
	if !errors.Is(err, ErrAttendanceClosed) {
		t.Fatalf("期望 ErrAttendanceClosed，实际: %v", err)
	}
	if env.roster.reads != 0 {
		t.Errorf("周末不应读取名单，实际读取 %d 次", env.roster.reads)
	}
}

func TestCheckinService_CheckIn_RosterMissing(t *testing.T) {
	env := setupTestCheckinService()
	env.now = time.Date(2026, 3, 11, 9, 0, 0, 0, bangkok) // 星期三，无名单

	_, err := checkIn(env, "1000000001", "")
	if !errors.Is(err, ErrRosterNotFound) {
		t.Errorf("期望 ErrRosterNotFound，实际: %v", err)
	}
}

func TestCheckinService_CheckIn_RevalidateCatchesConcurrentWrite(t *testing.T) {
	env := setupTestCheckinService()
	ctx := context.Background()

	// 预热签到表缓存
	if _, err := env.svc.ListPresent(ctx); err != nil {
		t.Fatalf("ListPresent 应成功: %v", err)
	}
	// 另一台终端绕过本进程写入
	env.ledger.put(tuesdayMorningLedger, withHeader(
		ledgerRecord(testDate, "Morning", "1000000001", "Alice Anan", "A1", model.StatusOnTime),
	))

	_, err := checkIn(env, "1000000001", "")
	assertRejected(t, err, ErrDuplicateCheckin)
	if n := len(env.ledger.rows(tuesdayMorningLedger)); n != 2 {
		t.Errorf("不应追加重复记录，实际 %d 行", n)
	}
}

func TestCheckinService_CheckIn_AbsentRefreshFailureKeepsRecord(t *testing.T) {
	env := setupTestCheckinService()
	env.ledger.replaceErr = errStoreDown

	resp, err := checkIn(env, "1000000001", "")
	if err != nil {
		t.Fatalf("缺勤块失败不应影响签到: %v", err)
	}
	if resp.AbsentBlockRefreshed || resp.AbsentBlockError == "" {
		t.Errorf("期望缺勤块刷新失败标记，实际 %+v", resp)
	}
	rows := env.ledger.rows(tuesdayMorningLedger)
	if len(rows) != 2 || rows[1][2] != "1000000001" {
		t.Errorf("签到记录应保留，实际 %v", rows)
	}
}

func TestCheckinService_CheckIn_AppendFails(t *testing.T) {
	env := setupTestCheckinService()
	env.ledger.appendErr = errStoreDown

	_, err := checkIn(env, "1000000001", "")
	if err == nil {
		t.Fatal("写入失败应返回错误")
	}
	var ce *CheckinError
	if errors.As(err, &ce) {
		t.Errorf("存储错误不应作为签到拒绝返回: %v", err)
	}
}

func TestCheckinService_CheckIn_SessionFlip(t *testing.T) {
	env := setupTestCheckinService()
	afternoonRoster := repository.TableRef{Collection: "students", Table: "อังคารบ่าย"}
	env.roster.put(afternoonRoster, sampleRosterRows())

	if _, err := checkIn(env, "1000000001", ""); err != nil {
		t.Fatalf("上午签到应成功: %v", err)
	}

	env.now = tuesdayAt(12, 0, 0)
	resp, err := checkIn(env, "1000000001", "")
	if err != nil {
		t.Fatalf("下午签到应成功: %v", err)
	}
	if resp.Record.Session != model.SessionAfternoon || resp.Record.Status != model.StatusOnTime {
		t.Errorf("期望 Afternoon / On time，实际 %+v", resp.Record)
	}

	afternoonLedger := repository.TableRef{Collection: "attendance", Table: "tue_afternoon 2026-03-10"}
	if rows := env.ledger.rows(afternoonLedger); len(rows) < 2 || rows[1][2] != "1000000001" {
		t.Errorf("应写入下午签到表，实际 %v", rows)
	}
}

// ── 列表与刷新 ──

func TestCheckinService_Lists(t *testing.T) {
	env := setupTestCheckinService()
	ctx := context.Background()
	if _, err := checkIn(env, "1000000004", ""); err != nil {
		t.Fatalf("CheckIn 应成功: %v", err)
	}

	present, err := env.svc.ListPresent(ctx)
	if err != nil {
		t.Fatalf("ListPresent 应成功: %v", err)
	}
	if present.Total != 1 || present.Records[0].StudentID != "1000000004" {
		t.Errorf("出勤列表不符: %+v", present)
	}

	absent, err := env.svc.ListAbsent(ctx)
	if err != nil {
		t.Fatalf("ListAbsent 应成功: %v", err)
	}
	if absent.Total != 3 || absent.Students[0].StudentID != "1000000001" {
		t.Errorf("缺勤列表不符: %+v", absent)
	}
}

func TestCheckinService_RefreshAbsent(t *testing.T) {
	env := setupTestCheckinService()
	env.ledger.put(tuesdayMorningLedger, withHeader(
		ledgerRecord(testDate, "Morning", "1000000001", "Alice Anan", "A1", model.StatusOnTime),
		ledgerRecord(testDate, "Morning", "1000000002", "Bee Boonmee", "B2", model.StatusLate),
	))
	ctx := context.Background()

	res, err := env.svc.RefreshAbsent(ctx)
	if err != nil {
		t.Fatalf("RefreshAbsent 应成功: %v", err)
	}
	if res.Present != 2 || res.Absent != 2 {
		t.Errorf("期望 present=2 absent=2，实际 %+v", res)
	}
	first := env.ledger.rows(tuesdayMorningLedger)

	if _, err := env.svc.RefreshAbsent(ctx); err != nil {
		t.Fatalf("重复刷新应成功: %v", err)
	}
	second := env.ledger.rows(tuesdayMorningLedger)
	if len(first) != len(second) {
		t.Errorf("重复刷新后行数应不变: %d → %d", len(first), len(second))
	}
}

func TestCheckinService_CurrentSession(t *testing.T) {
	env := setupTestCheckinService()

	sc, err := env.svc.CurrentSession(context.Background())
	if err != nil {
		t.Fatalf("CurrentSession 应成功: %v", err)
	}
	if sc.Section != "tue_morning" || sc.RosterKey != tuesdayMorningRoster || sc.LogKey.Ref != tuesdayMorningLedger {
		t.Errorf("时段信息不符: %+v", sc)
	}
}
