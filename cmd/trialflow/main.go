package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/saclworks/trialflow/internal/config"
	"github.com/saclworks/trialflow/internal/middleware"
	"github.com/saclworks/trialflow/internal/qc/entity"
	"github.com/saclworks/trialflow/internal/qc/handler"
	"github.com/saclworks/trialflow/internal/qc/repository"
	"github.com/saclworks/trialflow/internal/qc/service"
	"github.com/saclworks/trialflow/internal/shared/mailer"
	"github.com/saclworks/trialflow/internal/shared/storage"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting trialflow service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := migrate(db); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}

	// 种子数据：部门、流转顺序、管理员账号
	if err := seed(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to seed reference data", zap.Error(err))
	}

	// 初始化 Redis
	rdb := initRedis(cfg.Redis)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		zapLogger.Fatal("Failed to connect to redis", zap.Error(err))
	}

	// 初始化对象存储
	store, err := storage.New(context.Background(), cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, cfg.MinIO.Bucket, cfg.MinIO.UseSSL)
	if err != nil {
		zapLogger.Fatal("Failed to init object storage", zap.Error(err))
	}

	// 邮件客户端
	mail := mailer.New(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From, cfg.SMTP.MaxInflight)

	// 仓库、服务、处理器
	repos := repository.NewRepositories(db, zapLogger)
	services := service.NewServices(db, repos, rdb, store, mail, cfg.JWT, zapLogger)
	handlers := handler.NewHandlers(services)

	// 启动前校验流转配置：顺序号重复直接拒绝启动
	if err := repos.Flow.Validate(context.Background()); err != nil {
		zapLogger.Fatal("Invalid department flow configuration", zap.Error(err))
	}

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// 注册路由
	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 认证 (无需登录)
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
			auth.POST("/password/forgot", h.Auth.RequestPasswordReset)
			auth.POST("/password/reset", h.Auth.ResetPassword)
		}

		// 需要认证的接口
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.POST("/auth/password/change", h.Auth.ChangePassword)

			// 试制卡
			trials := authorized.Group("/trials")
			{
				trials.POST("", h.Trial.Create)
				trials.GET("", h.Trial.List)
				trials.GET("/:id", h.Trial.Get)
				trials.PUT("/:id", h.Trial.Update)
				trials.DELETE("/:id", middleware.RequireRole(entity.RoleAdmin), h.Trial.Delete)
				trials.POST("/:id/restore", middleware.RequireRole(entity.RoleAdmin), h.Trial.Restore)
			}

			// 进度流转
			progress := authorized.Group("/progress")
			{
				progress.GET("/pending", h.Progress.ListPending)
				progress.GET("/completed", h.Progress.ListCompleted)
				progress.GET("/department/:department_id", h.Progress.ListByDepartment)
				progress.GET("/:trial_id", h.Progress.GetByTrial)
				progress.GET("/:trial_id/audit", h.Progress.AuditTrail)
				progress.POST("/:trial_id/complete", middleware.RequireRole(entity.RoleUser), h.Progress.Complete)
				progress.POST("/:trial_id/approve", middleware.RequireRole(entity.RoleHOD), h.Progress.Approve)
				progress.POST("/:trial_id/reject", middleware.RequireRole(entity.RoleHOD), h.Progress.Reject)
			}

			// 检验记录
			inspections := authorized.Group("/inspections")
			{
				inspections.POST("/sand-properties", h.Inspection.SubmitSandProperty)
				inspections.GET("/sand-properties/:trial_id", h.Inspection.ListSandProperties)
				inspections.POST("/moulding-records", h.Inspection.SubmitMouldingRecord)
				inspections.GET("/moulding-records/:trial_id", h.Inspection.ListMouldingRecords)
				inspections.POST("/mould-corrections", h.Inspection.SubmitMouldCorrection)
				inspections.GET("/mould-corrections/:trial_id", h.Inspection.ListMouldCorrections)
				inspections.POST("/pouring-records", h.Inspection.SubmitPouringRecord)
				inspections.GET("/pouring-records/:trial_id", h.Inspection.ListPouringRecords)
				inspections.POST("/visual", h.Inspection.SubmitVisualInspection)
				inspections.GET("/visual/:trial_id", h.Inspection.ListVisualInspections)
				inspections.POST("/dimensional", h.Inspection.SubmitDimensionalInspection)
				inspections.GET("/dimensional/:trial_id", h.Inspection.ListDimensionalInspections)
				inspections.POST("/metallurgical", h.Inspection.SubmitMetallurgicalInspection)
				inspections.GET("/metallurgical/:trial_id", h.Inspection.ListMetallurgicalInspections)
				inspections.POST("/material-corrections", h.Inspection.SubmitMaterialCorrection)
				inspections.GET("/material-corrections/:trial_id", h.Inspection.ListMaterialCorrections)
				inspections.POST("/machine-shop", h.Inspection.SubmitMachineShopRecord)
				inspections.GET("/machine-shop/:trial_id", h.Inspection.ListMachineShopRecords)
			}

			// 报表（下载支持 query param token）
			reports := authorized.Group("/reports")
			{
				reports.GET("/:trial_id", h.Report.Get)
				reports.GET("/:trial_id/download", h.Report.Download)
			}

			// 附件
			documents := authorized.Group("/documents")
			{
				documents.POST("", h.Document.Upload)
				documents.GET("/trial/:trial_id", h.Document.List)
				documents.GET("/:id/download", h.Document.Download)
				documents.DELETE("/:id", h.Document.Delete)
			}

			// 主数据（只读）
			authorized.GET("/departments", h.Master.ListDepartments)
			authorized.GET("/flow", h.Master.ListFlow)

			// 仪表盘
			authorized.GET("/dashboard/stats", h.Dashboard.Stats)

			// 管理端
			admin := authorized.Group("/admin")
			admin.Use(middleware.RequireRole(entity.RoleAdmin))
			{
				admin.POST("/users", h.Master.CreateUser)
				admin.GET("/users", h.Master.ListUsers)
				admin.DELETE("/users/:id", h.Master.DeactivateUser)
				admin.POST("/departments", h.Master.CreateDepartment)
				admin.POST("/flow", h.Master.AddFlowNode)
			}
		}
	}
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&entity.Department{},
		&entity.DepartmentFlow{},
		&entity.User{},
		&entity.Trial{},
		&entity.DepartmentProgress{},
		&entity.AuditLog{},
		&entity.SandProperty{},
		&entity.MouldingRecord{},
		&entity.MouldCorrection{},
		&entity.PouringRecord{},
		&entity.VisualInspection{},
		&entity.DimensionalInspection{},
		&entity.MetallurgicalInspection{},
		&entity.MaterialCorrection{},
		&entity.MachineShopRecord{},
		&entity.TrialReport{},
		&entity.TrialDocument{},
	); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}

	migrationSQL := []string{
		"CREATE INDEX IF NOT EXISTS idx_trials_status ON trials(status)",
		"CREATE INDEX IF NOT EXISTS idx_trials_current_department ON trials(current_department_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_trial_created ON audit_logs(trial_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_department_progresses_username ON department_progresses(username)",
	}
	for _, sql := range migrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("migration %q failed: %w", sql, err)
		}
	}
	return nil
}

// seed 初始化参考数据：部门、流转顺序、管理员账号
// 已有数据时跳过，幂等
func seed(db *gorm.DB, zapLogger *zap.Logger) error {
	var deptCount int64
	if err := db.Model(&entity.Department{}).Count(&deptCount).Error; err != nil {
		return err
	}
	if deptCount == 0 {
		departments := []struct {
			Code string
			Name string
		}{
			{"SAMPLING", "Sampling"},
			{"SAND_LAB", "Sand Laboratory"},
			{"MOULDING", "Moulding"},
			{"POURING", "Pouring"},
			{"VISUAL", "Visual Inspection"},
			{"DIMENSIONAL", "Dimensional Inspection"},
			{"METALLURGY", "Metallurgical Inspection"},
			{"MACHINE_SHOP", "Machine Shop"},
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			for i, d := range departments {
				dept := &entity.Department{
					ID:   uuid.New().String()[:32],
					Code: d.Code,
					Name: d.Name,
				}
				if err := tx.Create(dept).Error; err != nil {
					return err
				}
				flow := &entity.DepartmentFlow{
					ID:           uuid.New().String()[:32],
					DepartmentID: dept.ID,
					SequenceNo:   i + 1,
				}
				if err := tx.Create(flow).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("seed departments failed: %w", err)
		}
		zapLogger.Info("Seeded departments and flow", zap.Int("count", len(departments)))
	}

	var adminCount int64
	if err := db.Model(&entity.User{}).Where("role = ?", entity.RoleAdmin).Count(&adminCount).Error; err != nil {
		return err
	}
	if adminCount == 0 {
		password := config.GetEnvOrDefault("ADMIN_INITIAL_PASSWORD", "admin@trialflow")
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		admin := &entity.User{
			ID:           uuid.New().String()[:32],
			Username:     "admin",
			Name:         "Administrator",
			Email:        "admin@example.com",
			PasswordHash: string(hash),
			Role:         entity.RoleAdmin,
			IsActive:     true,
		}
		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("seed admin failed: %w", err)
		}
		zapLogger.Info("Seeded admin account", zap.String("username", admin.Username))
	}
	return nil
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}
