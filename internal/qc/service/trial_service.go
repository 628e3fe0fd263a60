package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/saclworks/trialflow/internal/qc/entity"
	"github.com/saclworks/trialflow/internal/qc/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrTrialExists 试制卡号已存在（含已软删除的）
	ErrTrialExists = errors.New("trial already exists")
)

// TrialService 试制卡服务
type TrialService struct {
	db       *gorm.DB
	repos    *repository.Repositories
	progress *ProgressService
	logger   *zap.Logger
}

func NewTrialService(db *gorm.DB, repos *repository.Repositories, progress *ProgressService, logger *zap.Logger) *TrialService {
	return &TrialService{
		db:       db,
		repos:    repos,
		progress: progress,
		logger:   logger,
	}
}

// CreateTrialRequest 创建试制卡请求
type CreateTrialRequest struct {
	ID            string `json:"id" binding:"required"`
	TrialNo       string `json:"trial_no" binding:"required"`
	PartName      string `json:"part_name" binding:"required"`
	PatternCode   string `json:"pattern_code"`
	MaterialGrade string `json:"material_grade"`
	Initiator     string `json:"initiator"`
	SamplingDate  string `json:"sampling_date"`
}

// UpdateTrialRequest 更新试制卡描述字段
// 状态与当前部门只能由流转引擎修改
type UpdateTrialRequest struct {
	TrialNo       *string `json:"trial_no"`
	PartName      *string `json:"part_name"`
	PatternCode   *string `json:"pattern_code"`
	MaterialGrade *string `json:"material_grade"`
	Initiator     *string `json:"initiator"`
	SamplingDate  *string `json:"sampling_date"`
}

// Create 创建试制卡并初始化首条进度行（同一事务）
func (s *TrialService) Create(ctx context.Context, req *CreateTrialRequest, actor Actor) (*entity.Trial, error) {
	exists, err := s.repos.Trial.Exists(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("检查试制卡号失败: %w", err)
	}
	if exists {
		return nil, ErrTrialExists
	}

	trial := &entity.Trial{
		ID:            req.ID,
		TrialNo:       req.TrialNo,
		PartName:      req.PartName,
		PatternCode:   req.PatternCode,
		MaterialGrade: req.MaterialGrade,
		Initiator:     req.Initiator,
		Status:        entity.TrialStatusCreated,
		CreatedBy:     actor.UserID,
	}
	if req.SamplingDate != "" {
		t, err := time.Parse("2006-01-02", req.SamplingDate)
		if err != nil {
			return nil, fmt.Errorf("取样日期格式错误: %w", err)
		}
		trial.SamplingDate = &t
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(trial).Error; err != nil {
			return fmt.Errorf("创建试制卡失败: %w", err)
		}
		return s.progress.InitializeProgress(ctx, tx, trial, actor)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("试制卡创建成功",
		zap.String("trial_id", trial.ID),
		zap.String("part_name", trial.PartName),
		zap.String("created_by", actor.Username))
	return trial, nil
}

// Get 查询试制卡，附带当前部门名称
func (s *TrialService) Get(ctx context.Context, id string) (*entity.Trial, error) {
	trial, err := s.repos.Trial.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if trial.CurrentDepartmentID != "" {
		if dept, err := s.repos.Flow.FindDepartment(ctx, trial.CurrentDepartmentID); err == nil {
			trial.CurrentDepartmentName = dept.Name
		}
	}
	return trial, nil
}

// List 分页查询试制卡
func (s *TrialService) List(ctx context.Context, filter repository.ListFilter, page, pageSize int) ([]entity.Trial, int64, error) {
	return s.repos.Trial.List(ctx, filter, page, pageSize)
}

// Update 更新描述字段
func (s *TrialService) Update(ctx context.Context, id string, req *UpdateTrialRequest, actor Actor) (*entity.Trial, error) {
	trial, err := s.repos.Trial.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if trial.Status == entity.TrialStatusClosed {
		return nil, ErrTrialClosed
	}

	if req.TrialNo != nil {
		trial.TrialNo = *req.TrialNo
	}
	if req.PartName != nil {
		trial.PartName = *req.PartName
	}
	if req.PatternCode != nil {
		trial.PatternCode = *req.PatternCode
	}
	if req.MaterialGrade != nil {
		trial.MaterialGrade = *req.MaterialGrade
	}
	if req.Initiator != nil {
		trial.Initiator = *req.Initiator
	}
	if req.SamplingDate != nil {
		t, err := time.Parse("2006-01-02", *req.SamplingDate)
		if err != nil {
			return nil, fmt.Errorf("取样日期格式错误: %w", err)
		}
		trial.SamplingDate = &t
	}

	if err := s.repos.Trial.Update(ctx, trial); err != nil {
		return nil, fmt.Errorf("更新试制卡失败: %w", err)
	}

	s.repos.AuditLog.RecordAsync(actor.UserID, actor.DepartmentID, trial.ID,
		entity.ActionTrialUpdated, fmt.Sprintf("Trial %s updated by %s", trial.ID, actor.Username))
	return trial, nil
}

// Delete 软删除试制卡
func (s *TrialService) Delete(ctx context.Context, id string, actor Actor) error {
	if _, err := s.repos.Trial.FindByID(ctx, id); err != nil {
		return err
	}
	if err := s.repos.Trial.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("删除试制卡失败: %w", err)
	}
	s.repos.AuditLog.RecordAsync(actor.UserID, actor.DepartmentID, id,
		entity.ActionTrialDeleted, fmt.Sprintf("Trial %s deleted by %s", id, actor.Username))
	return nil
}

// Restore 恢复软删除的试制卡
func (s *TrialService) Restore(ctx context.Context, id string, actor Actor) error {
	if err := s.repos.Trial.Restore(ctx, id); err != nil {
		return fmt.Errorf("恢复试制卡失败: %w", err)
	}
	s.repos.AuditLog.RecordAsync(actor.UserID, actor.DepartmentID, id,
		entity.ActionTrialRestored, fmt.Sprintf("Trial %s restored by %s", id, actor.Username))
	return nil
}
