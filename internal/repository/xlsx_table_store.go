package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
)

// xlsxTableStore 本地 Excel 工作簿存储：collection 对应 <dir>/<collection>.xlsx，
// table 对应其中的工作表。进程内以互斥锁串行化同一目录下的读写。
type xlsxTableStore struct {
	dir string
	mu  sync.Mutex
}

// NewXlsxTableStore 创建工作簿目录并返回存储实例
func NewXlsxTableStore(dir string) (TableStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建工作簿目录失败: %w", err)
	}
	return &xlsxTableStore{dir: dir}, nil
}

func (s *xlsxTableStore) path(collection string) string {
	name := collection
	if !strings.HasSuffix(strings.ToLower(name), ".xlsx") {
		name += ".xlsx"
	}
	return filepath.Join(s.dir, filepath.Base(name))
}

// open 打开工作簿；文件不存在时 create=false 返回 ErrTableNotFound
func (s *xlsxTableStore) open(collection string, create bool) (*excelize.File, bool, error) {
	p := s.path(collection)
	if _, err := os.Stat(p); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, false, err
		}
		if !create {
			return nil, false, ErrTableNotFound
		}
		return excelize.NewFile(), true, nil
	}
	f, err := excelize.OpenFile(p)
	if err != nil {
		return nil, false, fmt.Errorf("打开工作簿 %s 失败: %w", p, err)
	}
	return f, false, nil
}

func (s *xlsxTableStore) openSheet(ref TableRef) (*excelize.File, error) {
	f, _, err := s.open(ref.Collection, false)
	if err != nil {
		return nil, err
	}
	idx, err := f.GetSheetIndex(ref.Table)
	if err != nil || idx == -1 {
		f.Close()
		return nil, ErrTableNotFound
	}
	return f, nil
}

func (s *xlsxTableStore) ReadAll(_ context.Context, ref TableRef) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.openSheet(ref)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// RawCellValue 避免学号等长数字被按数字格式渲染
	rows, err := f.GetRows(ref.Table, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("读取工作表 %s 失败: %w", ref, err)
	}
	return cloneRows(rows), nil
}

func (s *xlsxTableStore) Append(ctx context.Context, ref TableRef, row []string) error {
	return s.AppendMany(ctx, ref, [][]string{row})
}

func (s *xlsxTableStore) AppendMany(_ context.Context, ref TableRef, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.openSheet(ref)
	if err != nil {
		return err
	}
	defer f.Close()

	existing, err := f.GetRows(ref.Table)
	if err != nil {
		return fmt.Errorf("读取工作表 %s 失败: %w", ref, err)
	}
	if err := writeRows(f, ref.Table, len(existing)+1, rows); err != nil {
		return err
	}
	return f.SaveAs(s.path(ref.Collection))
}

func (s *xlsxTableStore) ReplaceAll(_ context.Context, ref TableRef, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.openSheet(ref)
	if err != nil {
		return err
	}
	defer f.Close()

	existing, err := f.GetRows(ref.Table)
	if err != nil {
		return fmt.Errorf("读取工作表 %s 失败: %w", ref, err)
	}
	for i := len(existing); i >= 1; i-- {
		if err := f.RemoveRow(ref.Table, i); err != nil {
			return fmt.Errorf("清空工作表 %s 失败: %w", ref, err)
		}
	}
	if err := writeRows(f, ref.Table, 1, rows); err != nil {
		return err
	}
	return f.SaveAs(s.path(ref.Collection))
}

func (s *xlsxTableStore) EnsureTable(_ context.Context, ref TableRef, header []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, isNew, err := s.open(ref.Collection, true)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(ref.Table); err == nil && idx != -1 {
		return false, nil
	}

	if isNew {
		// 新工作簿自带默认 Sheet1，直接改名
		if err := f.SetSheetName(f.GetSheetName(0), ref.Table); err != nil {
			return false, fmt.Errorf("创建工作表 %s 失败: %w", ref, err)
		}
	} else if _, err := f.NewSheet(ref.Table); err != nil {
		return false, fmt.Errorf("创建工作表 %s 失败: %w", ref, err)
	}

	if len(header) > 0 {
		if err := writeRows(f, ref.Table, 1, [][]string{header}); err != nil {
			return false, err
		}
	}
	if err := f.SaveAs(s.path(ref.Collection)); err != nil {
		return false, fmt.Errorf("保存工作簿失败: %w", err)
	}
	return true, nil
}

// writeRows 从第 startRow 行（1 起）开始逐行写入字符串单元格
func writeRows(f *excelize.File, sheet string, startRow int, rows [][]string) error {
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, startRow+i)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(r))
		for j, v := range r {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("写入第 %d 行失败: %w", startRow+i, err)
		}
	}
	return nil
}
