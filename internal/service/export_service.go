package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("failed to generate excel file")

// ExportService 导出业务接口
//
// 导出当前日期 + 时段的出勤 / 缺勤列表为 .xlsx，
// 首行为说明日期与时段的横幅，第二行为表头。
// 以 bytes.Buffer 返回，由 Handler 层设置下载响应头。
type ExportService interface {
	ExportPresent(ctx context.Context) (*bytes.Buffer, string, error)
	ExportAbsent(ctx context.Context) (*bytes.Buffer, string, error)
}

type exportService struct {
	checkin CheckinService
	logger  *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(checkin CheckinService, logger *zap.Logger) ExportService {
	return &exportService{checkin: checkin, logger: logger}
}

func (s *exportService) ExportPresent(ctx context.Context) (*bytes.Buffer, string, error) {
	sc, err := s.checkin.CurrentSession(ctx)
	if err != nil {
		return nil, "", err
	}
	list, err := s.checkin.ListPresent(ctx)
	if err != nil {
		return nil, "", err
	}

	rows := make([][]string, len(list.Records))
	for i, r := range list.Records {
		rows[i] = []string{r.StudentID, r.FullName, r.Seat, r.Time, r.Status}
	}

	buf, err := s.render(sheetData{
		name:   list.Date,
		banner: fmt.Sprintf("Attendance date %s | Session %s", list.Date, list.Session),
		header: []string{"Student ID", "Full Name", "Seat", "Check-in Time", "Status"},
		widths: []float64{16, 32, 8, 16, 10},
		rows:   rows,
	})
	if err != nil {
		return nil, "", err
	}
	return buf, fmt.Sprintf("Attendance %s %s.xlsx", sc.Weekday, sc.Session), nil
}

func (s *exportService) ExportAbsent(ctx context.Context) (*bytes.Buffer, string, error) {
	sc, err := s.checkin.CurrentSession(ctx)
	if err != nil {
		return nil, "", err
	}
	list, err := s.checkin.ListAbsent(ctx)
	if err != nil {
		return nil, "", err
	}

	rows := make([][]string, len(list.Students))
	for i, st := range list.Students {
		rows[i] = []string{st.StudentID, st.FullName, st.Seat, "Absent"}
	}

	buf, err := s.render(sheetData{
		name:   "Absent",
		banner: fmt.Sprintf("Absent list • %s • %s", list.Date, list.Session),
		header: []string{"Student ID", "Full Name", "Seat", "Status"},
		widths: []float64{16, 32, 8, 10},
		rows:   rows,
	})
	if err != nil {
		return nil, "", err
	}
	return buf, fmt.Sprintf("Absent %s %s.xlsx", sc.Weekday, sc.Session), nil
}

// ── 内部辅助方法 ──

type sheetData struct {
	name   string
	banner string
	header []string
	widths []float64
	rows   [][]string
}

// render 横幅（合并单元格）+ 表头 + 数据行；单元格一律按文本写入，学号不丢前导零
func (s *exportService) render(d sheetData) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), d.name); err != nil {
		s.logger.Error("创建工作表失败", zap.Error(err))
		return nil, ErrExportGenerateFail
	}

	lastCol, _ := excelize.ColumnNumberToName(len(d.header))
	for i, w := range d.widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(d.name, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	bannerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
	})

	// 横幅
	f.SetCellStr(d.name, "A1", d.banner)
	f.MergeCell(d.name, "A1", lastCol+"1")
	f.SetCellStyle(d.name, "A1", "A1", bannerStyle)

	// 表头
	for i, h := range d.header {
		c, _ := excelize.CoordinatesToCellName(i+1, 2)
		f.SetCellStr(d.name, c, h)
	}
	f.SetCellStyle(d.name, "A2", lastCol+"2", headerStyle)

	// 数据行
	for r, row := range d.rows {
		for i, v := range row {
			c, _ := excelize.CoordinatesToCellName(i+1, r+3)
			f.SetCellStr(d.name, c, v)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, ErrExportGenerateFail
	}
	return buf, nil
}
