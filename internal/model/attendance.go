package model

import "strings"

// 上下午时段
const (
	SessionMorning   = "Morning"
	SessionAfternoon = "Afternoon"
)

// 签到状态；Absent 只由缺勤核对生成，从不由签到动作写入
const (
	StatusOnTime = "On time"
	StatusLate   = "Late"
	StatusAbsent = "Absent"
)

// LedgerHeader 签到表表头，所有后端统一使用
var LedgerHeader = []string{"date", "session", "student_id", "full_name", "seat", "time", "status"}

// AbsentSeparator 缺勤块之前的分隔行首格
const AbsentSeparator = "ABSENT LIST"

// RosterEntry 名单中的一名学生
type RosterEntry struct {
	StudentID string `json:"student_id"`
	FullName  string `json:"full_name"`
	Seat      string `json:"seat"`
}

// AttendanceRecord 签到表中的一行，追加后不再修改
type AttendanceRecord struct {
	Date      string `json:"date"`    // YYYY-MM-DD
	Session   string `json:"session"` // Morning | Afternoon
	StudentID string `json:"student_id"`
	FullName  string `json:"full_name"`
	Seat      string `json:"seat"`
	Time      string `json:"time"` // HH:MM:SS
	Status    string `json:"status"`
}

// Row 按 LedgerHeader 顺序展开为字符串行
func (r AttendanceRecord) Row() []string {
	return []string{r.Date, r.Session, r.StudentID, r.FullName, r.Seat, r.Time, r.Status}
}

// IsAbsent 是否为缺勤核对生成的行
func (r AttendanceRecord) IsAbsent() bool {
	return strings.EqualFold(strings.TrimSpace(r.Status), StatusAbsent)
}
