package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/saclworks/trialflow/internal/qc/entity"
	"github.com/saclworks/trialflow/internal/qc/testutil"
)

func TestFlowValidateEmpty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewFlowRepository(db)

	if err := repo.Validate(context.Background()); err == nil {
		t.Fatal("expected validation error on empty flow")
	}
}

func TestFlowValidateDuplicateSequence(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewFlowRepository(db)

	testutil.SeedDepartment(t, db, "SAND_LAB", "Sand Laboratory", 1)
	// 同顺序号在配置错误场景下可能出现（索引缺失的旧库），建第二个部门并复用顺序号 1
	d2 := &entity.Department{ID: uuid.New().String()[:32], Code: "POURING", Name: "Pouring"}
	if err := db.Create(d2).Error; err != nil {
		t.Fatalf("create department failed: %v", err)
	}
	dup := &entity.DepartmentFlow{ID: uuid.New().String()[:32], DepartmentID: d2.ID, SequenceNo: 1}
	if err := db.Create(dup).Error; err != nil {
		// 唯一索引生效时数据库直接拒绝，同样满足配置不可重复的约束
		t.Skipf("unique index rejected duplicate sequence at insert: %v", err)
	}

	if err := repo.Validate(context.Background()); err == nil {
		t.Fatal("expected validation error on duplicate sequence_no")
	}
}

func TestFlowNextToleratesGaps(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewFlowRepository(db)

	d1 := testutil.SeedDepartment(t, db, "SAND_LAB", "Sand Laboratory", 1)
	// 顺序号跳到 5，后继查询按大于取，不要求连续
	d5 := testutil.SeedDepartment(t, db, "POURING", "Pouring", 5)

	next, err := repo.Next(context.Background(), d1.ID)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if next.DepartmentID != d5.ID {
		t.Errorf("expected successor %s, got %s", d5.ID, next.DepartmentID)
	}

	if _, err := repo.Next(context.Background(), d5.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for last department, got %v", err)
	}

	if err := repo.Validate(context.Background()); err != nil {
		t.Errorf("expected gapped sequence to validate, got %v", err)
	}
}

func TestFlowFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewFlowRepository(db)

	if _, err := repo.First(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty flow, got %v", err)
	}

	testutil.SeedDepartment(t, db, "POURING", "Pouring", 2)
	d1 := testutil.SeedDepartment(t, db, "SAND_LAB", "Sand Laboratory", 1)

	first, err := repo.First(context.Background())
	if err != nil {
		t.Fatalf("First failed: %v", err)
	}
	if first.DepartmentID != d1.ID {
		t.Errorf("expected first department %s, got %s", d1.ID, first.DepartmentID)
	}
}
