package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/saclworks/trialflow/internal/qc/entity"
	"github.com/saclworks/trialflow/internal/qc/repository"
	"go.uber.org/zap"
)

// InspectionService 各部门检验数据服务
// 记录落库成功后，按请求标记触发用户完成流转（同一部门可能录入多条记录，
// 只有最后一次提交带 complete 标记）
type InspectionService struct {
	repos    *repository.Repositories
	progress *ProgressService
	logger   *zap.Logger
}

func NewInspectionService(repos *repository.Repositories, progress *ProgressService, logger *zap.Logger) *InspectionService {
	return &InspectionService{
		repos:    repos,
		progress: progress,
		logger:   logger,
	}
}

// ensureOpen 提交前校验试制卡存在、未关闭，且正处于操作人所属部门
func (s *InspectionService) ensureOpen(ctx context.Context, trialID string, actor Actor) error {
	trial, err := s.repos.Trial.FindByID(ctx, trialID)
	if err != nil {
		return err
	}
	if trial.Status == entity.TrialStatusClosed {
		return ErrTrialClosed
	}
	if trial.CurrentDepartmentID != actor.DepartmentID {
		return ErrWrongDepartment
	}
	return nil
}

// maybeAdvance 带 complete 标记的提交触发用户完成流转
func (s *InspectionService) maybeAdvance(ctx context.Context, trialID string, actor Actor, complete bool) error {
	if !complete {
		return nil
	}
	return s.progress.AdvanceOnUserCompletion(ctx, trialID, actor)
}

func (s *InspectionService) SubmitSandProperty(ctx context.Context, rec *entity.SandProperty, actor Actor, complete bool) error {
	if err := s.ensureOpen(ctx, rec.TrialID, actor); err != nil {
		return err
	}
	rec.ID = uuid.New().String()[:32]
	rec.SubmittedBy = actor.Username
	if err := s.repos.Inspection.CreateSandProperty(ctx, rec); err != nil {
		return fmt.Errorf("保存砂性能记录失败: %w", err)
	}
	return s.maybeAdvance(ctx, rec.TrialID, actor, complete)
}

func (s *InspectionService) SubmitMouldingRecord(ctx context.Context, rec *entity.MouldingRecord, actor Actor, complete bool) error {
	if err := s.ensureOpen(ctx, rec.TrialID, actor); err != nil {
		return err
	}
	rec.ID = uuid.New().String()[:32]
	rec.SubmittedBy = actor.Username
	if err := s.repos.Inspection.CreateMouldingRecord(ctx, rec); err != nil {
		return fmt.Errorf("保存造型记录失败: %w", err)
	}
	return s.maybeAdvance(ctx, rec.TrialID, actor, complete)
}

func (s *InspectionService) SubmitMouldCorrection(ctx context.Context, rec *entity.MouldCorrection, actor Actor, complete bool) error {
	if err := s.ensureOpen(ctx, rec.TrialID, actor); err != nil {
		return err
	}
	rec.ID = uuid.New().String()[:32]
	rec.SubmittedBy = actor.Username
	if err := s.repos.Inspection.CreateMouldCorrection(ctx, rec); err != nil {
		return fmt.Errorf("保存型腔修正记录失败: %w", err)
	}
	return s.maybeAdvance(ctx, rec.TrialID, actor, complete)
}

func (s *InspectionService) SubmitPouringRecord(ctx context.Context, rec *entity.PouringRecord, actor Actor, complete bool) error {
	if err := s.ensureOpen(ctx, rec.TrialID, actor); err != nil {
		return err
	}
	rec.ID = uuid.New().String()[:32]
	rec.SubmittedBy = actor.Username
	if err := s.repos.Inspection.CreatePouringRecord(ctx, rec); err != nil {
		return fmt.Errorf("保存浇注记录失败: %w", err)
	}
	return s.maybeAdvance(ctx, rec.TrialID, actor, complete)
}

func (s *InspectionService) SubmitVisualInspection(ctx context.Context, rec *entity.VisualInspection, actor Actor, complete bool) error {
	if err := s.ensureOpen(ctx, rec.TrialID, actor); err != nil {
		return err
	}
	rec.ID = uuid.New().String()[:32]
	rec.SubmittedBy = actor.Username
	if err := s.repos.Inspection.CreateVisualInspection(ctx, rec); err != nil {
		return fmt.Errorf("保存外观检验记录失败: %w", err)
	}
	return s.maybeAdvance(ctx, rec.TrialID, actor, complete)
}

func (s *InspectionService) SubmitDimensionalInspection(ctx context.Context, rec *entity.DimensionalInspection, actor Actor, complete bool) error {
	if err := s.ensureOpen(ctx, rec.TrialID, actor); err != nil {
		return err
	}
	rec.ID = uuid.New().String()[:32]
	rec.SubmittedBy = actor.Username
	if err := s.repos.Inspection.CreateDimensionalInspection(ctx, rec); err != nil {
		return fmt.Errorf("保存尺寸检验记录失败: %w", err)
	}
	return s.maybeAdvance(ctx, rec.TrialID, actor, complete)
}

func (s *InspectionService) SubmitMetallurgicalInspection(ctx context.Context, rec *entity.MetallurgicalInspection, actor Actor, complete bool) error {
	if err := s.ensureOpen(ctx, rec.TrialID, actor); err != nil {
		return err
	}
	rec.ID = uuid.New().String()[:32]
	rec.SubmittedBy = actor.Username
	if err := s.repos.Inspection.CreateMetallurgicalInspection(ctx, rec); err != nil {
		return fmt.Errorf("保存金相检验记录失败: %w", err)
	}
	return s.maybeAdvance(ctx, rec.TrialID, actor, complete)
}

func (s *InspectionService) SubmitMaterialCorrection(ctx context.Context, rec *entity.MaterialCorrection, actor Actor, complete bool) error {
	if err := s.ensureOpen(ctx, rec.TrialID, actor); err != nil {
		return err
	}
	rec.ID = uuid.New().String()[:32]
	rec.SubmittedBy = actor.Username
	if err := s.repos.Inspection.CreateMaterialCorrection(ctx, rec); err != nil {
		return fmt.Errorf("保存材质修正记录失败: %w", err)
	}
	return s.maybeAdvance(ctx, rec.TrialID, actor, complete)
}

func (s *InspectionService) SubmitMachineShopRecord(ctx context.Context, rec *entity.MachineShopRecord, actor Actor, complete bool) error {
	if err := s.ensureOpen(ctx, rec.TrialID, actor); err != nil {
		return err
	}
	rec.ID = uuid.New().String()[:32]
	rec.SubmittedBy = actor.Username
	if err := s.repos.Inspection.CreateMachineShopRecord(ctx, rec); err != nil {
		return fmt.Errorf("保存机加工记录失败: %w", err)
	}
	return s.maybeAdvance(ctx, rec.TrialID, actor, complete)
}

func (s *InspectionService) ListSandProperties(ctx context.Context, trialID string) ([]entity.SandProperty, error) {
	return s.repos.Inspection.ListSandProperties(ctx, trialID)
}

func (s *InspectionService) ListMouldingRecords(ctx context.Context, trialID string) ([]entity.MouldingRecord, error) {
	return s.repos.Inspection.ListMouldingRecords(ctx, trialID)
}

func (s *InspectionService) ListMouldCorrections(ctx context.Context, trialID string) ([]entity.MouldCorrection, error) {
	return s.repos.Inspection.ListMouldCorrections(ctx, trialID)
}

func (s *InspectionService) ListPouringRecords(ctx context.Context, trialID string) ([]entity.PouringRecord, error) {
	return s.repos.Inspection.ListPouringRecords(ctx, trialID)
}

func (s *InspectionService) ListVisualInspections(ctx context.Context, trialID string) ([]entity.VisualInspection, error) {
	return s.repos.Inspection.ListVisualInspections(ctx, trialID)
}

func (s *InspectionService) ListDimensionalInspections(ctx context.Context, trialID string) ([]entity.DimensionalInspection, error) {
	return s.repos.Inspection.ListDimensionalInspections(ctx, trialID)
}

func (s *InspectionService) ListMetallurgicalInspections(ctx context.Context, trialID string) ([]entity.MetallurgicalInspection, error) {
	return s.repos.Inspection.ListMetallurgicalInspections(ctx, trialID)
}

func (s *InspectionService) ListMaterialCorrections(ctx context.Context, trialID string) ([]entity.MaterialCorrection, error) {
	return s.repos.Inspection.ListMaterialCorrections(ctx, trialID)
}

func (s *InspectionService) ListMachineShopRecords(ctx context.Context, trialID string) ([]entity.MachineShopRecord, error) {
	return s.repos.Inspection.ListMachineShopRecords(ctx, trialID)
}
