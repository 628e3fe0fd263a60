package service

import (
	"context"
	"fmt"

	"github.com/saclworks/trialflow/internal/qc/entity"
	"github.com/saclworks/trialflow/internal/qc/repository"
	"gorm.io/gorm"
)

// DashboardService 仪表盘统计
type DashboardService struct {
	db    *gorm.DB
	repos *repository.Repositories
}

func NewDashboardService(db *gorm.DB, repos *repository.Repositories) *DashboardService {
	return &DashboardService{db: db, repos: repos}
}

// DashboardStats 总览统计
type DashboardStats struct {
	TotalTrials      int64             `json:"total_trials"`
	InProgressTrials int64             `json:"in_progress_trials"`
	ClosedTrials     int64             `json:"closed_trials"`
	ByDepartment     []DepartmentCount `json:"by_department"`
	RecentActivity   []entity.AuditLog `json:"recent_activity"`
}

// DepartmentCount 按部门统计在办试制卡
type DepartmentCount struct {
	DepartmentID   string `json:"department_id"`
	DepartmentName string `json:"department_name"`
	Count          int64  `json:"count"`
}

// Stats 总览统计
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}

	row := s.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = ?),
			COUNT(*) FILTER (WHERE status = ?)
		FROM trials
		WHERE deleted_at IS NULL
	`, entity.TrialStatusInProgress, entity.TrialStatusClosed).Row()
	if err := row.Scan(&stats.TotalTrials, &stats.InProgressTrials, &stats.ClosedTrials); err != nil {
		return nil, fmt.Errorf("统计试制卡失败: %w", err)
	}

	rows, err := s.db.WithContext(ctx).Raw(`
		SELECT d.id, d.name, COUNT(t.id)
		FROM departments d
		LEFT JOIN trials t
			ON t.current_department_id = d.id
			AND t.status = ?
			AND t.deleted_at IS NULL
		GROUP BY d.id, d.name
		ORDER BY d.code
	`, entity.TrialStatusInProgress).Rows()
	if err != nil {
		return nil, fmt.Errorf("按部门统计失败: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var dc DepartmentCount
		if err := rows.Scan(&dc.DepartmentID, &dc.DepartmentName, &dc.Count); err != nil {
			return nil, fmt.Errorf("按部门统计失败: %w", err)
		}
		stats.ByDepartment = append(stats.ByDepartment, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("按部门统计失败: %w", err)
	}

	recent, err := s.repos.AuditLog.ListRecent(ctx, 20)
	if err != nil {
		return nil, fmt.Errorf("查询最近动态失败: %w", err)
	}
	stats.RecentActivity = recent

	return stats, nil
}
