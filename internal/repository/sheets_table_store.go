package repository

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// sheetsTableStore Google Sheets 存储：collection 为 spreadsheet ID，table 为工作表标题
type sheetsTableStore struct {
	svc *sheets.Service
}

// NewSheetsTableStore 使用服务账号凭据创建 Google Sheets 存储
func NewSheetsTableStore(ctx context.Context, credentialsFile string) (TableStore, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("初始化 Google Sheets 客户端失败: %w", err)
	}
	return &sheetsTableStore{svc: svc}, nil
}

// a1Range 整张工作表的 A1 区域；标题中的单引号需要转义
func a1Range(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func (s *sheetsTableStore) hasSheet(ctx context.Context, ref TableRef) (bool, error) {
	ss, err := s.svc.Spreadsheets.Get(ref.Collection).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return false, fmt.Errorf("读取表格 %s 失败: %w", ref.Collection, err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == ref.Table {
			return true, nil
		}
	}
	return false, nil
}

func (s *sheetsTableStore) requireSheet(ctx context.Context, ref TableRef) error {
	ok, err := s.hasSheet(ctx, ref)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTableNotFound
	}
	return nil
}

func (s *sheetsTableStore) ReadAll(ctx context.Context, ref TableRef) ([][]string, error) {
	if err := s.requireSheet(ctx, ref); err != nil {
		return nil, err
	}
	resp, err := s.svc.Spreadsheets.Values.Get(ref.Collection, a1Range(ref.Table)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("读取工作表 %s 失败: %w", ref, err)
	}

	rows := make([][]string, len(resp.Values))
	for i, r := range resp.Values {
		row := make([]string, len(r))
		for j, v := range r {
			row[j] = fmt.Sprint(v)
		}
		rows[i] = row
	}
	return rows, nil
}

func (s *sheetsTableStore) Append(ctx context.Context, ref TableRef, row []string) error {
	return s.AppendMany(ctx, ref, [][]string{row})
}

func (s *sheetsTableStore) AppendMany(ctx context.Context, ref TableRef, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	if err := s.requireSheet(ctx, ref); err != nil {
		return err
	}
	// RAW：学号按原文写入，不被识别为数字而丢失前导零
	_, err := s.svc.Spreadsheets.Values.Append(ref.Collection, a1Range(ref.Table), toValueRange(rows)).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("追加到工作表 %s 失败: %w", ref, err)
	}
	return nil
}

func (s *sheetsTableStore) ReplaceAll(ctx context.Context, ref TableRef, rows [][]string) error {
	if err := s.requireSheet(ctx, ref); err != nil {
		return err
	}
	_, err := s.svc.Spreadsheets.Values.Clear(ref.Collection, a1Range(ref.Table), &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("清空工作表 %s 失败: %w", ref, err)
	}
	if len(rows) == 0 {
		return nil
	}
	_, err = s.svc.Spreadsheets.Values.Update(ref.Collection, a1Range(ref.Table)+"!A1", toValueRange(rows)).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("重写工作表 %s 失败: %w", ref, err)
	}
	return nil
}

func (s *sheetsTableStore) EnsureTable(ctx context.Context, ref TableRef, header []string) (bool, error) {
	ok, err := s.hasSheet(ctx, ref)
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: ref.Table,
					GridProperties: &sheets.GridProperties{
						RowCount:    2000,
						ColumnCount: 10,
					},
				},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(ref.Collection, req).Context(ctx).Do(); err != nil {
		return false, fmt.Errorf("创建工作表 %s 失败: %w", ref, err)
	}

	if len(header) > 0 {
		if err := s.AppendMany(ctx, ref, [][]string{header}); err != nil {
			return true, err
		}
	}
	return true, nil
}

func toValueRange(rows [][]string) *sheets.ValueRange {
	values := make([][]interface{}, len(rows))
	for i, r := range rows {
		row := make([]interface{}, len(r))
		for j, v := range r {
			row[j] = v
		}
		values[i] = row
	}
	return &sheets.ValueRange{Values: values}
}
