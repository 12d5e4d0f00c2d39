package dto

// ── 签到模块 DTO ──

// 签到来源，仅用于日志
const (
	SourceManual = "manual"
	SourceCamera = "camera"
	SourceUpload = "upload"
)

// CheckinRequest 签到请求
// student_id 为扫码或手输的原始文本，seat 为座位号；至少提供一项
type CheckinRequest struct {
	StudentID string `json:"student_id" binding:"max=256"`
	Seat      string `json:"seat"       binding:"max=32"`
	Source    string `json:"source"     binding:"omitempty,oneof=manual camera upload"`
}

// ── 响应 ──

// AttendanceRecordResponse 一条签到记录
type AttendanceRecordResponse struct {
	Date      string `json:"date"`
	Session   string `json:"session"`
	StudentID string `json:"student_id"`
	FullName  string `json:"full_name"`
	Seat      string `json:"seat"`
	Time      string `json:"time"`
	Status    string `json:"status"`
}

// CheckinResponse 签到成功响应
// AbsentBlockRefreshed=false 表示签到已写入，但缺勤块未能刷新（可手动刷新）
type CheckinResponse struct {
	Record               AttendanceRecordResponse `json:"record"`
	Message              string                   `json:"message"`
	PresentCount         int                      `json:"present_count"`
	AbsentBlockRefreshed bool                     `json:"absent_block_refreshed"`
	AbsentBlockError     string                   `json:"absent_block_error,omitempty"`
}

// SessionResponse 当前时段信息
type SessionResponse struct {
	Now              string `json:"now"`
	Date             string `json:"date"`
	Weekday          string `json:"weekday"`
	Session          string `json:"session"`
	Section          string `json:"section"`
	Cutoff           string `json:"cutoff"`
	RosterCollection string `json:"roster_collection"`
	RosterTable      string `json:"roster_table"`
	LedgerCollection string `json:"ledger_collection"`
	LedgerTable      string `json:"ledger_table"`
}

// StudentResponse 名单中的学生
type StudentResponse struct {
	StudentID string `json:"student_id"`
	FullName  string `json:"full_name"`
	Seat      string `json:"seat"`
}

// PresentListResponse 本时段出勤列表
type PresentListResponse struct {
	Date    string                     `json:"date"`
	Session string                     `json:"session"`
	Total   int                        `json:"total"`
	Records []AttendanceRecordResponse `json:"records"`
}

// AbsentListResponse 本时段缺勤列表
type AbsentListResponse struct {
	Date     string            `json:"date"`
	Session  string            `json:"session"`
	Total    int               `json:"total"`
	Students []StudentResponse `json:"students"`
}

// RefreshAbsentResponse 手动刷新缺勤块结果
type RefreshAbsentResponse struct {
	Date    string `json:"date"`
	Session string `json:"session"`
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
	Dropped int    `json:"dropped"`
}
