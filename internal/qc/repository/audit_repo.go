package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/saclworks/trialflow/internal/qc/entity"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuditLogRepository 审计日志仓库（只追加）
type AuditLogRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewAuditLogRepository(db *gorm.DB, logger *zap.Logger) *AuditLogRepository {
	return &AuditLogRepository{db: db, logger: logger}
}

// Record 在事务内写入一条审计记录
// 状态迁移的审计必须与迁移同事务提交
func (r *AuditLogRepository) Record(ctx context.Context, tx *gorm.DB, log *entity.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()[:32]
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	return tx.WithContext(ctx).Create(log).Error
}

// RecordAsync 异步写入审计（非事务性操作使用，失败仅记日志）
func (r *AuditLogRepository) RecordAsync(userID, departmentID, trialID, action, remarks string) {
	go func() {
		log := &entity.AuditLog{
			ID:           uuid.New().String()[:32],
			UserID:       userID,
			DepartmentID: departmentID,
			TrialID:      trialID,
			Action:       action,
			Remarks:      remarks,
			CreatedAt:    time.Now(),
		}
		if err := r.db.Create(log).Error; err != nil {
			r.logger.Error("写入审计日志失败",
				zap.String("trial_id", trialID),
				zap.String("action", action),
				zap.Error(err))
		}
	}()
}

// ListByTrial 按时间正序返回某试制卡的全部审计记录
func (r *AuditLogRepository) ListByTrial(ctx context.Context, trialID string) ([]entity.AuditLog, error) {
	var logs []entity.AuditLog
	err := r.db.WithContext(ctx).
		Where("trial_id = ?", trialID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}

// ListRecent 最近 n 条审计记录（仪表盘用）
func (r *AuditLogRepository) ListRecent(ctx context.Context, limit int) ([]entity.AuditLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var logs []entity.AuditLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
