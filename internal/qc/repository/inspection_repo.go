package repository

import (
	"context"

	"github.com/saclworks/trialflow/internal/qc/entity"
	"gorm.io/gorm"
)

// InspectionRepository 各部门检验记录仓库
// 九类记录结构各不相同，但读写模式一致：按试制卡追加、按试制卡列表
type InspectionRepository struct {
	db *gorm.DB
}

func NewInspectionRepository(db *gorm.DB) *InspectionRepository {
	return &InspectionRepository{db: db}
}

func (r *InspectionRepository) create(ctx context.Context, record interface{}) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *InspectionRepository) listByTrial(ctx context.Context, trialID string, dest interface{}) error {
	return r.db.WithContext(ctx).
		Where("trial_id = ?", trialID).
		Order("created_at ASC").
		Find(dest).Error
}

func (r *InspectionRepository) CreateSandProperty(ctx context.Context, rec *entity.SandProperty) error {
	return r.create(ctx, rec)
}

func (r *InspectionRepository) ListSandProperties(ctx context.Context, trialID string) ([]entity.SandProperty, error) {
	var rows []entity.SandProperty
	err := r.listByTrial(ctx, trialID, &rows)
	return rows, err
}

func (r *InspectionRepository) CreateMouldingRecord(ctx context.Context, rec *entity.MouldingRecord) error {
	return r.create(ctx, rec)
}

func (r *InspectionRepository) ListMouldingRecords(ctx context.Context, trialID string) ([]entity.MouldingRecord, error) {
	var rows []entity.MouldingRecord
	err := r.listByTrial(ctx, trialID, &rows)
	return rows, err
}

func (r *InspectionRepository) CreateMouldCorrection(ctx context.Context, rec *entity.MouldCorrection) error {
	return r.create(ctx, rec)
}

func (r *InspectionRepository) ListMouldCorrections(ctx context.Context, trialID string) ([]entity.MouldCorrection, error) {
	var rows []entity.MouldCorrection
	err := r.listByTrial(ctx, trialID, &rows)
	return rows, err
}

func (r *InspectionRepository) CreatePouringRecord(ctx context.Context, rec *entity.PouringRecord) error {
	return r.create(ctx, rec)
}

func (r *InspectionRepository) ListPouringRecords(ctx context.Context, trialID string) ([]entity.PouringRecord, error) {
	var rows []entity.PouringRecord
	err := r.listByTrial(ctx, trialID, &rows)
	return rows, err
}

func (r *InspectionRepository) CreateVisualInspection(ctx context.Context, rec *entity.VisualInspection) error {
	return r.create(ctx, rec)
}

func (r *InspectionRepository) ListVisualInspections(ctx context.Context, trialID string) ([]entity.VisualInspection, error) {
	var rows []entity.VisualInspection
	err := r.listByTrial(ctx, trialID, &rows)
	return rows, err
}

func (r *InspectionRepository) CreateDimensionalInspection(ctx context.Context, rec *entity.DimensionalInspection) error {
	return r.create(ctx, rec)
}

func (r *InspectionRepository) ListDimensionalInspections(ctx context.Context, trialID string) ([]entity.DimensionalInspection, error) {
	var rows []entity.DimensionalInspection
	err := r.listByTrial(ctx, trialID, &rows)
	return rows, err
}

func (r *InspectionRepository) CreateMetallurgicalInspection(ctx context.Context, rec *entity.MetallurgicalInspection) error {
	return r.create(ctx, rec)
}

func (r *InspectionRepository) ListMetallurgicalInspections(ctx context.Context, trialID string) ([]entity.MetallurgicalInspection, error) {
	var rows []entity.MetallurgicalInspection
	err := r.listByTrial(ctx, trialID, &rows)
	return rows, err
}

func (r *InspectionRepository) CreateMaterialCorrection(ctx context.Context, rec *entity.MaterialCorrection) error {
	return r.create(ctx, rec)
}

func (r *InspectionRepository) ListMaterialCorrections(ctx context.Context, trialID string) ([]entity.MaterialCorrection, error) {
	var rows []entity.MaterialCorrection
	err := r.listByTrial(ctx, trialID, &rows)
	return rows, err
}

func (r *InspectionRepository) CreateMachineShopRecord(ctx context.Context, rec *entity.MachineShopRecord) error {
	return r.create(ctx, rec)
}

func (r *InspectionRepository) ListMachineShopRecords(ctx context.Context, trialID string) ([]entity.MachineShopRecord, error) {
	var rows []entity.MachineShopRecord
	err := r.listByTrial(ctx, trialID, &rows)
	return rows, err
}

// CountByTrial 各类记录的条数，报表汇总页用
func (r *InspectionRepository) CountByTrial(ctx context.Context, trialID string) (map[string]int64, error) {
	counts := make(map[string]int64, 9)
	tables := map[string]interface{}{
		"sand_properties":           &entity.SandProperty{},
		"moulding_records":          &entity.MouldingRecord{},
		"mould_corrections":         &entity.MouldCorrection{},
		"pouring_records":           &entity.PouringRecord{},
		"visual_inspections":        &entity.VisualInspection{},
		"dimensional_inspections":   &entity.DimensionalInspection{},
		"metallurgical_inspections": &entity.MetallurgicalInspection{},
		"material_corrections":      &entity.MaterialCorrection{},
		"machine_shop_records":      &entity.MachineShopRecord{},
	}
	for name, model := range tables {
		var n int64
		if err := r.db.WithContext(ctx).Model(model).Where("trial_id = ?", trialID).Count(&n).Error; err != nil {
			return nil, err
		}
		counts[name] = n
	}
	return counts, nil
}
