package repository

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 仓库集合
type Repositories struct {
	Trial      *TrialRepository
	Flow       *FlowRepository
	Progress   *ProgressRepository
	AuditLog   *AuditLogRepository
	User       *UserRepository
	Inspection *InspectionRepository
	Report     *ReportRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Trial:      NewTrialRepository(db),
		Flow:       NewFlowRepository(db),
		Progress:   NewProgressRepository(db),
		AuditLog:   NewAuditLogRepository(db, logger),
		User:       NewUserRepository(db),
		Inspection: NewInspectionRepository(db),
		Report:     NewReportRepository(db),
	}
}

// WithTx 返回绑定到指定事务句柄的仓库集合
// 事务内的读写（如终审时生成报表）必须经由它，否则会落在连接池的独立连接上
func (r *Repositories) WithTx(tx *gorm.DB) *Repositories {
	return &Repositories{
		Trial:      NewTrialRepository(tx),
		Flow:       NewFlowRepository(tx),
		Progress:   NewProgressRepository(tx),
		AuditLog:   NewAuditLogRepository(tx, r.AuditLog.logger),
		User:       NewUserRepository(tx),
		Inspection: NewInspectionRepository(tx),
		Report:     NewReportRepository(tx),
	}
}
