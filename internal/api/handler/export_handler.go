package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"checkin-desk/internal/service"
	"checkin-desk/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportPresent 导出本时段出勤列表
// GET /api/v1/export/present
func (h *ExportHandler) ExportPresent(c *gin.Context) {
	h.send(c, h.exportSvc.ExportPresent)
}

// ExportAbsent 导出本时段缺勤列表
// GET /api/v1/export/absent
func (h *ExportHandler) ExportAbsent(c *gin.Context) {
	h.send(c, h.exportSvc.ExportAbsent)
}

func (h *ExportHandler) send(c *gin.Context, export func(context.Context) (*bytes.Buffer, string, error)) {
	buf, filename, err := export(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrExportGenerateFail) {
			response.InternalError(c)
			return
		}
		writeServiceError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.PathEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
