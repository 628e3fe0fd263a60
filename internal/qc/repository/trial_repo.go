package repository

import (
	"context"
	"errors"

	"github.com/saclworks/trialflow/internal/qc/entity"
	"gorm.io/gorm"
)

// TrialRepository 试制卡仓库
type TrialRepository struct {
	db *gorm.DB
}

func NewTrialRepository(db *gorm.DB) *TrialRepository {
	return &TrialRepository{db: db}
}

// Create 创建试制卡
func (r *TrialRepository) Create(ctx context.Context, trial *entity.Trial) error {
	return r.db.WithContext(ctx).Create(trial).Error
}

// FindByID 按编号查询试制卡
func (r *TrialRepository) FindByID(ctx context.Context, id string) (*entity.Trial, error) {
	var trial entity.Trial
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&trial).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &trial, nil
}

// Exists 编号是否已占用（含软删除的卡）
func (r *TrialRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&entity.Trial{}).
		Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Update 更新试制卡
func (r *TrialRepository) Update(ctx context.Context, trial *entity.Trial) error {
	return r.db.WithContext(ctx).Save(trial).Error
}

// ListFilter 试制卡列表过滤条件
type ListFilter struct {
	Status       string
	DepartmentID string
	Keyword      string
}

// List 分页查询试制卡
func (r *TrialRepository) List(ctx context.Context, filter ListFilter, page, pageSize int) ([]entity.Trial, int64, error) {
	var items []entity.Trial
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Trial{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.DepartmentID != "" {
		query = query.Where("current_department_id = ?", filter.DepartmentID)
	}
	if filter.Keyword != "" {
		kw := "%" + filter.Keyword + "%"
		query = query.Where("id ILIKE ? OR part_name ILIKE ? OR pattern_code ILIKE ?", kw, kw, kw)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// SoftDelete 软删除试制卡
func (r *TrialRepository) SoftDelete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Trial{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Restore 恢复软删除的试制卡
func (r *TrialRepository) Restore(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Unscoped().Model(&entity.Trial{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Update("deleted_at", nil)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
