package repository

import (
	"context"
	"errors"

	"github.com/saclworks/trialflow/internal/qc/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReportRepository 报表与文档元数据仓库
type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// SaveReport 保存报表元数据，重复生成时覆盖旧记录
func (r *ReportRepository) SaveReport(ctx context.Context, report *entity.TrialReport) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "trial_id"}},
			UpdateAll: true,
		}).
		Create(report).Error
}

func (r *ReportRepository) FindReportByTrial(ctx context.Context, trialID string) (*entity.TrialReport, error) {
	var report entity.TrialReport
	err := r.db.WithContext(ctx).
		Where("trial_id = ?", trialID).
		First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &report, nil
}

func (r *ReportRepository) CreateDocument(ctx context.Context, doc *entity.TrialDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *ReportRepository) FindDocumentByID(ctx context.Context, id string) (*entity.TrialDocument, error) {
	var doc entity.TrialDocument
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *ReportRepository) ListDocumentsByTrial(ctx context.Context, trialID string) ([]entity.TrialDocument, error) {
	var docs []entity.TrialDocument
	err := r.db.WithContext(ctx).
		Where("trial_id = ?", trialID).
		Order("created_at DESC").
		Find(&docs).Error
	return docs, err
}

func (r *ReportRepository) DeleteDocument(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&entity.TrialDocument{}).Error
}
