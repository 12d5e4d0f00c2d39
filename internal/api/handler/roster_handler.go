package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"checkin-desk/internal/dto"
	"checkin-desk/internal/service"
	"checkin-desk/pkg/response"
)

// RosterHandler 名单模块 HTTP 处理器
type RosterHandler struct {
	checkinSvc service.CheckinService
	badgeSvc   service.BadgeService
}

// NewRosterHandler 创建 RosterHandler
func NewRosterHandler(checkinSvc service.CheckinService, badgeSvc service.BadgeService) *RosterHandler {
	return &RosterHandler{checkinSvc: checkinSvc, badgeSvc: badgeSvc}
}

// List 当前时段名单（按学号排序，分页）
// GET /api/v1/roster?page=1&page_size=100
func (h *RosterHandler) List(c *gin.Context) {
	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "invalid pagination")
		return
	}

	_, roster, err := h.checkinSvc.CurrentRoster(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}

	students := roster.Students()
	total := len(students)
	start := req.GetOffset()
	if start > total {
		start = total
	}
	end := start + req.GetPageSize()
	if end > total {
		end = total
	}

	list := make([]dto.StudentResponse, 0, end-start)
	for _, s := range students[start:end] {
		list = append(list, dto.StudentResponse{StudentID: s.StudentID, FullName: s.FullName, Seat: s.Seat})
	}
	response.OKPage(c, list, int64(total), req.GetPage(), req.GetPageSize())
}

// Badge 学生二维码胸牌
// GET /api/v1/roster/students/:student_id/badge.png
func (h *RosterHandler) Badge(c *gin.Context) {
	png, err := h.badgeSvc.StudentBadge(c.Request.Context(), c.Param("student_id"))
	if err != nil {
		if errors.Is(err, service.ErrStudentNotInRoster) {
			response.NotFound(c, 20007, "student not in current roster")
			return
		}
		writeServiceError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
