package repository

import (
	"context"
	"errors"
)

// ErrTableNotFound 集合中不存在该工作表
var ErrTableNotFound = errors.New("table not found")

// TableRef 定位一张工作表：collection 可以是数据库中的集合名、
// Excel 工作簿文件名或 Google 表格的 spreadsheet ID；table 为其中的工作表名
type TableRef struct {
	Collection string
	Table      string
}

func (r TableRef) String() string {
	return r.Collection + "/" + r.Table
}

// TableStore 按行读写字符串单元格的表格存储
//
// 约定：
//   - 第一行由调用方决定是否为表头，存储层不解释内容
//   - ReadAll / Append / AppendMany / ReplaceAll 在表不存在时返回 ErrTableNotFound
//   - 存储层不去重；跨终端的“读后写”竞争由上层处理
type TableStore interface {
	ReadAll(ctx context.Context, ref TableRef) ([][]string, error)
	Append(ctx context.Context, ref TableRef, row []string) error
	AppendMany(ctx context.Context, ref TableRef, rows [][]string) error
	// ReplaceAll 清空后按顺序重写全部行
	ReplaceAll(ctx context.Context, ref TableRef, rows [][]string) error
	// EnsureTable 不存在时创建并写入表头，返回是否新建
	EnsureTable(ctx context.Context, ref TableRef, header []string) (bool, error)
}

// cloneRows 深拷贝行，避免调用方与存储共享底层数组
func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
