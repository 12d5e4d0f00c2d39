package repository_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"checkin-desk/internal/repository"
)

func TestXlsxTableStore(t *testing.T) {
	dir := t.TempDir()
	store, err := repository.NewXlsxTableStore(dir)
	if err != nil {
		t.Fatalf("NewXlsxTableStore 应成功: %v", err)
	}

	runTableStoreContract(t, store, "attendance")

	if _, err := os.Stat(filepath.Join(dir, "attendance.xlsx")); err != nil {
		t.Errorf("期望生成 attendance.xlsx: %v", err)
	}
}

func TestXlsxTableStore_MultipleSheets(t *testing.T) {
	store, err := repository.NewXlsxTableStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewXlsxTableStore 应成功: %v", err)
	}
	ctx := context.Background()
	morning := repository.TableRef{Collection: "students", Table: "อังคารเช้า"}
	afternoon := repository.TableRef{Collection: "students", Table: "อังคารบ่าย"}

	for _, ref := range []repository.TableRef{morning, afternoon} {
		if _, err := store.EnsureTable(ctx, ref, []string{"Student ID", "Full Name", "Seat"}); err != nil {
			t.Fatalf("EnsureTable %s 失败: %v", ref, err)
		}
	}
	if err := store.Append(ctx, afternoon, []string{"1000000001", "Alice Anan", "A1"}); err != nil {
		t.Fatalf("Append 应成功: %v", err)
	}

	m, _ := store.ReadAll(ctx, morning)
	a, _ := store.ReadAll(ctx, afternoon)
	if len(m) != 1 || len(a) != 2 {
		t.Errorf("工作表之间不应互相影响: morning=%d afternoon=%d", len(m), len(a))
	}
}
