package handler

import (
	"github.com/gin-gonic/gin"

	"checkin-desk/internal/dto"
	"checkin-desk/internal/service"
	"checkin-desk/pkg/response"
)

// CheckinHandler 签到模块 HTTP 处理器
type CheckinHandler struct {
	checkinSvc service.CheckinService
}

// NewCheckinHandler 创建 CheckinHandler
func NewCheckinHandler(checkinSvc service.CheckinService) *CheckinHandler {
	return &CheckinHandler{checkinSvc: checkinSvc}
}

// Session 当前时段信息
// GET /api/v1/session
func (h *CheckinHandler) Session(c *gin.Context) {
	sc, err := h.checkinSvc.CurrentSession(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.OK(c, dto.SessionResponse{
		Now:              sc.Now.Format("2006-01-02T15:04:05Z07:00"),
		Date:             sc.Date,
		Weekday:          sc.Weekday.String(),
		Session:          sc.Session,
		Section:          sc.Section,
		Cutoff:           sc.CutoffString(),
		RosterCollection: sc.RosterKey.Collection,
		RosterTable:      sc.RosterKey.Table,
		LedgerCollection: sc.LogKey.Ref.Collection,
		LedgerTable:      sc.LogKey.Ref.Table,
	})
}

// CheckIn 提交一次签到
// POST /api/v1/checkins
func (h *CheckinHandler) CheckIn(c *gin.Context) {
	var req dto.CheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "invalid request")
		return
	}

	result, err := h.checkinSvc.CheckIn(c.Request.Context(), &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Created(c, result)
}

// ListPresent 本时段出勤列表
// GET /api/v1/checkins
func (h *CheckinHandler) ListPresent(c *gin.Context) {
	result, err := h.checkinSvc.ListPresent(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.OK(c, result)
}

// ListAbsent 本时段缺勤列表
// GET /api/v1/absentees
func (h *CheckinHandler) ListAbsent(c *gin.Context) {
	result, err := h.checkinSvc.ListAbsent(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.OK(c, result)
}

// RefreshAbsent 重新核对并重写缺勤块
// POST /api/v1/absentees/refresh
func (h *CheckinHandler) RefreshAbsent(c *gin.Context) {
	result, err := h.checkinSvc.RefreshAbsent(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.OK(c, result)
}
