package handler

import "checkin-desk/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth    *AuthHandler
	Checkin *CheckinHandler
	Roster  *RosterHandler
	Export  *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(svc.Auth),
		Checkin: NewCheckinHandler(svc.Checkin),
		Roster:  NewRosterHandler(svc.Checkin, svc.Badge),
		Export:  NewExportHandler(svc.Export),
	}
}
