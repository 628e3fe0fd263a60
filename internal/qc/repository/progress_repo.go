package repository

import (
	"context"
	"errors"

	"github.com/saclworks/trialflow/internal/qc/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressRepository 试制卡进度仓库
// 每张试制卡同一时刻只有一条进度行（trial_id 唯一索引）
type ProgressRepository struct {
	db *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Create 在事务内创建进度行
func (r *ProgressRepository) Create(ctx context.Context, tx *gorm.DB, progress *entity.DepartmentProgress) error {
	return tx.WithContext(ctx).Create(progress).Error
}

// FindByTrialForUpdate 在事务内按试制卡号加行锁读取进度
// 状态迁移必须走这条路径，避免并发提交/审批交叉
func (r *ProgressRepository) FindByTrialForUpdate(ctx context.Context, tx *gorm.DB, trialID string) (*entity.DepartmentProgress, error) {
	var progress entity.DepartmentProgress
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("trial_id = ?", trialID).
		First(&progress).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &progress, nil
}

// FindByTrial 只读查询进度行
func (r *ProgressRepository) FindByTrial(ctx context.Context, trialID string) (*entity.DepartmentProgress, error) {
	var progress entity.DepartmentProgress
	err := r.db.WithContext(ctx).
		Where("trial_id = ?", trialID).
		First(&progress).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &progress, nil
}

// Update 在事务内保存进度行
func (r *ProgressRepository) Update(ctx context.Context, tx *gorm.DB, progress *entity.DepartmentProgress) error {
	return tx.WithContext(ctx).Save(progress).Error
}

// Delete 在事务内删除进度行（试制卡关闭时）
func (r *ProgressRepository) Delete(ctx context.Context, tx *gorm.DB, trialID string) error {
	return tx.WithContext(ctx).
		Where("trial_id = ?", trialID).
		Delete(&entity.DepartmentProgress{}).Error
}

// ListByDepartment 某部门当前待处理的全部进度行
func (r *ProgressRepository) ListByDepartment(ctx context.Context, departmentID string) ([]entity.DepartmentProgress, error) {
	var rows []entity.DepartmentProgress
	err := r.db.WithContext(ctx).
		Where("department_id = ?", departmentID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// ListByUsername 指定用户名下待处理的进度行
func (r *ProgressRepository) ListByUsername(ctx context.Context, username string) ([]entity.DepartmentProgress, error) {
	var rows []entity.DepartmentProgress
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}
