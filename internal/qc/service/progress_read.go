package service

import (
	"context"
	"fmt"

	"github.com/saclworks/trialflow/internal/qc/entity"
	"github.com/saclworks/trialflow/internal/qc/repository"
)

// 进度只读查询，不触发任何迁移

// GetByTrial 单张试制卡的当前进度
func (s *ProgressService) GetByTrial(ctx context.Context, trialID string) (*entity.DepartmentProgress, error) {
	progress, err := s.repos.Progress.FindByTrial(ctx, trialID)
	if err != nil {
		return nil, err
	}
	s.decorate(ctx, progress)
	return progress, nil
}

// ListPending 当前用户名下待处理的进度
func (s *ProgressService) ListPending(ctx context.Context, username string) ([]entity.DepartmentProgress, error) {
	rows, err := s.repos.Progress.ListByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		s.decorate(ctx, &rows[i])
	}
	return rows, nil
}

// ListByDepartment 某部门当前在办的进度
func (s *ProgressService) ListByDepartment(ctx context.Context, departmentID string) ([]entity.DepartmentProgress, error) {
	rows, err := s.repos.Progress.ListByDepartment(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		s.decorate(ctx, &rows[i])
	}
	return rows, nil
}

// ListCompletedTrials 已关闭的试制卡
func (s *ProgressService) ListCompletedTrials(ctx context.Context, page, pageSize int) ([]entity.Trial, int64, error) {
	return s.repos.Trial.List(ctx, repository.ListFilter{Status: entity.TrialStatusClosed}, page, pageSize)
}

// AuditTrail 试制卡的全部审计记录，按时间正序
func (s *ProgressService) AuditTrail(ctx context.Context, trialID string) ([]entity.AuditLog, error) {
	if _, err := s.repos.Trial.FindByID(ctx, trialID); err != nil {
		return nil, err
	}
	logs, err := s.repos.AuditLog.ListByTrial(ctx, trialID)
	if err != nil {
		return nil, fmt.Errorf("查询审计记录失败: %w", err)
	}
	return logs, nil
}

// decorate 补充部门名称与零件名称（展示用途，查询失败不报错）
func (s *ProgressService) decorate(ctx context.Context, progress *entity.DepartmentProgress) {
	if dept, err := s.repos.Flow.FindDepartment(ctx, progress.DepartmentID); err == nil {
		progress.DepartmentName = dept.Name
	}
	if trial, err := s.repos.Trial.FindByID(ctx, progress.TrialID); err == nil {
		progress.PartName = trial.PartName
	}
}
