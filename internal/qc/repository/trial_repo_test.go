package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/saclworks/trialflow/internal/qc/entity"
	"github.com/saclworks/trialflow/internal/qc/testutil"
)

func TestTrialSoftDeleteAndRestore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewTrialRepository(db)
	ctx := context.Background()

	testutil.SeedTrial(t, db, "T1", "Brake Drum", "u1")

	if err := repo.SoftDelete(ctx, "T1"); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	// 软删除后常规查询不可见
	if _, err := repo.FindByID(ctx, "T1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after soft delete, got %v", err)
	}

	// 卡号仍被占用，不允许重建同号试制卡
	exists, err := repo.Exists(ctx, "T1")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("expected soft-deleted trial id to stay reserved")
	}

	if err := repo.Restore(ctx, "T1"); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	trial, err := repo.FindByID(ctx, "T1")
	if err != nil {
		t.Fatalf("FindByID after restore failed: %v", err)
	}
	if trial.PartName != "Brake Drum" {
		t.Errorf("expected restored trial intact, got %+v", trial)
	}
}

func TestTrialListFilters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewTrialRepository(db)
	ctx := context.Background()

	testutil.SeedTrial(t, db, "T1", "Brake Drum", "u1")
	t2 := testutil.SeedTrial(t, db, "T2", "Flywheel Housing", "u1")
	db.Model(t2).Update("status", entity.TrialStatusClosed)

	trials, total, err := repo.List(ctx, ListFilter{Status: entity.TrialStatusClosed}, 1, 20)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 || len(trials) != 1 || trials[0].ID != "T2" {
		t.Errorf("expected only T2 closed, got total=%d trials=%+v", total, trials)
	}

	trials, total, err = repo.List(ctx, ListFilter{Keyword: "brake"}, 1, 20)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 || len(trials) != 1 || trials[0].ID != "T1" {
		t.Errorf("expected keyword match T1, got total=%d trials=%+v", total, trials)
	}
}
