package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/saclworks/trialflow/internal/qc/entity"
	"gorm.io/gorm"
)

// FlowRepository 部门流转顺序仓库（只读配置数据）
type FlowRepository struct {
	db *gorm.DB
}

func NewFlowRepository(db *gorm.DB) *FlowRepository {
	return &FlowRepository{db: db}
}

// First 流程的第一个部门（sequence_no 最小）
func (r *FlowRepository) First(ctx context.Context) (*entity.DepartmentFlow, error) {
	var flow entity.DepartmentFlow
	err := r.db.WithContext(ctx).
		Order("sequence_no ASC").
		First(&flow).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &flow, nil
}

// ByDepartment 按部门查流转节点
func (r *FlowRepository) ByDepartment(ctx context.Context, departmentID string) (*entity.DepartmentFlow, error) {
	var flow entity.DepartmentFlow
	err := r.db.WithContext(ctx).
		Where("department_id = ?", departmentID).
		First(&flow).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &flow, nil
}

// Next 当前部门的后继节点
// 按 sequence_no 严格递增取下一行，允许顺序号存在空洞；
// 无后继（当前为最后一个部门）时返回 ErrNotFound
func (r *FlowRepository) Next(ctx context.Context, currentDepartmentID string) (*entity.DepartmentFlow, error) {
	current, err := r.ByDepartment(ctx, currentDepartmentID)
	if err != nil {
		return nil, err
	}

	var next entity.DepartmentFlow
	err = r.db.WithContext(ctx).
		Where("sequence_no > ?", current.SequenceNo).
		Order("sequence_no ASC").
		First(&next).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &next, nil
}

// ListOrdered 按顺序列出全部流转节点（含部门信息）
func (r *FlowRepository) ListOrdered(ctx context.Context) ([]entity.DepartmentFlow, error) {
	var flows []entity.DepartmentFlow
	err := r.db.WithContext(ctx).
		Preload("Department").
		Order("sequence_no ASC").
		Find(&flows).Error
	return flows, err
}

// ListDepartments 全部部门
func (r *FlowRepository) ListDepartments(ctx context.Context) ([]entity.Department, error) {
	var departments []entity.Department
	err := r.db.WithContext(ctx).Order("code ASC").Find(&departments).Error
	return departments, err
}

// FindDepartment 按 ID 查部门
func (r *FlowRepository) FindDepartment(ctx context.Context, id string) (*entity.Department, error) {
	var department entity.Department
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&department).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &department, nil
}

// CreateDepartment 新建部门（管理端）
func (r *FlowRepository) CreateDepartment(ctx context.Context, department *entity.Department) error {
	return r.db.WithContext(ctx).Create(department).Error
}

// CreateNode 新建流转节点（管理端）
func (r *FlowRepository) CreateNode(ctx context.Context, flow *entity.DepartmentFlow) error {
	return r.db.WithContext(ctx).Create(flow).Error
}

// Validate 启动时校验流转配置
// 顺序号重复属于配置错误，直接拒绝启动；空洞可以容忍（Next 按大于取）
func (r *FlowRepository) Validate(ctx context.Context) error {
	flows, err := r.ListOrdered(ctx)
	if err != nil {
		return fmt.Errorf("读取部门流转配置失败: %w", err)
	}
	if len(flows) == 0 {
		return fmt.Errorf("部门流转配置为空")
	}

	seen := make(map[int]string, len(flows))
	for _, f := range flows {
		if dup, ok := seen[f.SequenceNo]; ok {
			return fmt.Errorf("部门流转顺序号重复: sequence_no=%d (departments %s, %s)", f.SequenceNo, dup, f.DepartmentID)
		}
		seen[f.SequenceNo] = f.DepartmentID
	}
	return nil
}
