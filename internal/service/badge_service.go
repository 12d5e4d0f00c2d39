package service

import (
	"context"
	"errors"

	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

var ErrStudentNotInRoster = errors.New("student not in current roster")

const badgeSize = 256

// BadgeService 学生二维码胸牌，内容为学号本身，可直接被签到扫码识别
type BadgeService interface {
	StudentBadge(ctx context.Context, studentID string) ([]byte, error)
}

type badgeService struct {
	checkin CheckinService
	logger  *zap.Logger
}

// NewBadgeService 创建 BadgeService 实例
func NewBadgeService(checkin CheckinService, logger *zap.Logger) BadgeService {
	return &badgeService{checkin: checkin, logger: logger}
}

func (s *badgeService) StudentBadge(ctx context.Context, studentID string) ([]byte, error) {
	id, ok := ExtractStudentID(studentID)
	if !ok {
		return nil, ErrStudentNotInRoster
	}

	_, roster, err := s.checkin.CurrentRoster(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := roster.Lookup(id); !ok {
		return nil, ErrStudentNotInRoster
	}

	png, err := qrcode.Encode(id, qrcode.Medium, badgeSize)
	if err != nil {
		s.logger.Error("生成二维码失败", zap.String("student_id", id), zap.Error(err))
		return nil, err
	}
	return png, nil
}
