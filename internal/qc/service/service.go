package service

import (
	"github.com/redis/go-redis/v9"
	"github.com/saclworks/trialflow/internal/config"
	"github.com/saclworks/trialflow/internal/qc/repository"
	"github.com/saclworks/trialflow/internal/shared/mailer"
	"github.com/saclworks/trialflow/internal/shared/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services 服务集合
type Services struct {
	Progress   *ProgressService
	Trial      *TrialService
	Inspection *InspectionService
	Auth       *AuthService
	Master     *MasterService
	Report     *ReportService
	Document   *DocumentService
	Dashboard  *DashboardService
}

// NewServices 创建服务集合
func NewServices(db *gorm.DB, repos *repository.Repositories, rdb *redis.Client, store *storage.Client, mail *mailer.Mailer, jwtCfg config.JWTConfig, logger *zap.Logger) *Services {
	report := NewReportService(repos, store, logger)
	progress := NewProgressService(db, repos, report, mail, logger)

	return &Services{
		Progress:   progress,
		Trial:      NewTrialService(db, repos, progress, logger),
		Inspection: NewInspectionService(repos, progress, logger),
		Auth:       NewAuthService(repos, rdb, mail, jwtCfg, logger),
		Master:     NewMasterService(repos, logger),
		Report:     report,
		Document:   NewDocumentService(repos, store, logger),
		Dashboard:  NewDashboardService(db, repos),
	}
}
