package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"checkin-desk/internal/service"
	apperrors "checkin-desk/pkg/errors"
	"checkin-desk/pkg/response"
)

// ── 业务错误码 ──
//
//	200xx 签到校验（用户可更正，清空输入后重试）
//	300xx 环境 / 配置（当前时段无法继续，fatal=true）
const (
	codeMissingInput     = 20001
	codeUnknownID        = 20002
	codeUnknownSeat      = 20003
	codeDuplicateCheckin = 20004
	codeSeatConflict     = 20005
	codeSeatMismatch     = 20006

	codeAttendanceClosed = 30001
	codeRosterNotFound   = 30002
	codeRosterEmpty      = 30003
	codeStoreUnavailable = 30004
	codeLedgerChanged    = 30005
	codeNoLedgerRoute    = 30006
)

// writeServiceError 将签到相关的 Service 错误映射为 HTTP 响应
func writeServiceError(c *gin.Context, err error) {
	// 用户可更正的拒绝原因，消息直接展示给学生
	var ce *service.CheckinError
	if errors.As(err, &ce) {
		switch {
		case errors.Is(err, service.ErrMissingInput):
			response.Error(c, http.StatusUnprocessableEntity, codeMissingInput, ce.Message)
		case errors.Is(err, service.ErrUnknownID):
			response.NotFound(c, codeUnknownID, ce.Message)
		case errors.Is(err, service.ErrUnknownSeat):
			response.NotFound(c, codeUnknownSeat, ce.Message)
		case errors.Is(err, service.ErrDuplicateCheckin):
			response.Conflict(c, codeDuplicateCheckin, ce.Message)
		case errors.Is(err, service.ErrSeatConflict):
			response.Conflict(c, codeSeatConflict, ce.Message)
		case errors.Is(err, service.ErrSeatMismatch):
			response.Conflict(c, codeSeatMismatch, ce.Message)
		default:
			response.BadRequest(c, 10001, ce.Message)
		}
		return
	}

	switch {
	case errors.Is(err, service.ErrAttendanceClosed):
		response.Fatal(c, http.StatusLocked, codeAttendanceClosed, "attendance closed", "attendance runs Monday to Friday only")
	case errors.Is(err, service.ErrRosterNotFound):
		response.Fatal(c, http.StatusServiceUnavailable, codeRosterNotFound, "roster not found for this session", "")
	case errors.Is(err, service.ErrRosterEmpty):
		response.Fatal(c, http.StatusServiceUnavailable, codeRosterEmpty, "roster is empty or missing its header row", "")
	case errors.Is(err, service.ErrNoLedgerRoute), errors.Is(err, service.ErrUnknownSection):
		response.Fatal(c, http.StatusServiceUnavailable, codeNoLedgerRoute, "no attendance log configured for this section", err.Error())
	case errors.Is(err, apperrors.ErrBackingStoreUnavailable):
		response.Fatal(c, http.StatusServiceUnavailable, codeStoreUnavailable, "attendance store unavailable", "")
	case errors.Is(err, service.ErrLedgerChanged):
		response.ErrorWithDetails(c, http.StatusConflict, codeLedgerChanged, "attendance log changed while refreshing", "retry the refresh")
	default:
		response.InternalError(c)
	}
}
