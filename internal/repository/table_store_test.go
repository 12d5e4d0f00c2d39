package repository_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"checkin-desk/internal/repository"
)

var ledgerHeader = []string{"date", "session", "student_id", "full_name", "seat", "time", "status"}

// runTableStoreContract 所有后端共用的行为校验
func runTableStoreContract(t *testing.T, store repository.TableStore, collection string) {
	ctx := context.Background()
	ref := repository.TableRef{Collection: collection, Table: "tue_morning 2026-03-10"}

	t.Run("缺失的表", func(t *testing.T) {
		missing := repository.TableRef{Collection: collection, Table: "no such table"}
		if _, err := store.ReadAll(ctx, missing); !errors.Is(err, repository.ErrTableNotFound) {
			t.Errorf("ReadAll 期望 ErrTableNotFound，实际: %v", err)
		}
		if err := store.Append(ctx, missing, []string{"x"}); !errors.Is(err, repository.ErrTableNotFound) {
			t.Errorf("Append 期望 ErrTableNotFound，实际: %v", err)
		}
		if err := store.ReplaceAll(ctx, missing, [][]string{{"x"}}); !errors.Is(err, repository.ErrTableNotFound) {
			t.Errorf("ReplaceAll 期望 ErrTableNotFound，实际: %v", err)
		}
	})

	t.Run("建表幂等", func(t *testing.T) {
		created, err := store.EnsureTable(ctx, ref, ledgerHeader)
		if err != nil || !created {
			t.Fatalf("首次 EnsureTable 应新建: created=%v err=%v", created, err)
		}
		created, err = store.EnsureTable(ctx, ref, ledgerHeader)
		if err != nil || created {
			t.Fatalf("再次 EnsureTable 不应新建: created=%v err=%v", created, err)
		}
		rows, err := store.ReadAll(ctx, ref)
		if err != nil {
			t.Fatalf("ReadAll 应成功: %v", err)
		}
		if len(rows) != 1 || !reflect.DeepEqual(rows[0], ledgerHeader) {
			t.Errorf("期望只有表头，实际 %v", rows)
		}
	})

	t.Run("追加保持顺序", func(t *testing.T) {
		first := []string{"2026-03-10", "Morning", "0012345678", "Alice Anan", "A1", "09:01:02", "On time"}
		if err := store.Append(ctx, ref, first); err != nil {
			t.Fatalf("Append 应成功: %v", err)
		}
		more := [][]string{
			{"2026-03-10", "Morning", "1000000002", "Bee Boonmee", "B2", "09:11:00", "Late"},
			{"2026-03-10", "Morning", "1000000003", "Chai, \"C\" {x}", "", "09:12:00", "Late"},
		}
		if err := store.AppendMany(ctx, ref, more); err != nil {
			t.Fatalf("AppendMany 应成功: %v", err)
		}

		rows, err := store.ReadAll(ctx, ref)
		if err != nil {
			t.Fatalf("ReadAll 应成功: %v", err)
		}
		if len(rows) != 4 {
			t.Fatalf("期望 4 行，实际 %d", len(rows))
		}
		// 前导零与特殊字符原样保留
		if rows[1][2] != "0012345678" {
			t.Errorf("学号前导零丢失: %q", rows[1][2])
		}
		if rows[3][3] != "Chai, \"C\" {x}" {
			t.Errorf("单元格内容被改变: %q", rows[3][3])
		}
	})

	t.Run("整表重写", func(t *testing.T) {
		block := [][]string{
			ledgerHeader,
			{"2026-03-10", "Morning", "1000000002", "Bee Boonmee", "B2", "09:11:00", "Late"},
			{"ABSENT LIST", "", "", "", "", "", ""},
			{"", "", "1000000004", "Dao Duangdee", "C4", "", "Absent"},
		}
		if err := store.ReplaceAll(ctx, ref, block); err != nil {
			t.Fatalf("ReplaceAll 应成功: %v", err)
		}
		rows, err := store.ReadAll(ctx, ref)
		if err != nil {
			t.Fatalf("ReadAll 应成功: %v", err)
		}
		if len(rows) != 4 {
			t.Fatalf("期望 4 行，实际 %d: %v", len(rows), rows)
		}
		if rows[1][2] != "1000000002" || rows[2][0] != "ABSENT LIST" || rows[3][2] != "1000000004" {
			t.Errorf("重写内容不符: %v", rows)
		}

		// 重写后追加到末尾
		if err := store.Append(ctx, ref, []string{"2026-03-10", "Morning", "1000000005"}); err != nil {
			t.Fatalf("Append 应成功: %v", err)
		}
		rows, _ = store.ReadAll(ctx, ref)
		if len(rows) != 5 || rows[4][2] != "1000000005" {
			t.Errorf("追加位置错误: %v", rows)
		}
	})

	t.Run("返回值与存储隔离", func(t *testing.T) {
		rows, _ := store.ReadAll(ctx, ref)
		rows[0][0] = "mutated"
		again, _ := store.ReadAll(ctx, ref)
		if again[0][0] != "date" {
			t.Error("修改 ReadAll 的返回值不应影响存储")
		}
	})
}
