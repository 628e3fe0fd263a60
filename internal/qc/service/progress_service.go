package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/saclworks/trialflow/internal/qc/entity"
	"github.com/saclworks/trialflow/internal/qc/repository"
	"github.com/saclworks/trialflow/internal/shared/mailer"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNoInitialDepartment 流转配置缺少首个部门
	ErrNoInitialDepartment = errors.New("no initial department configured")
	// ErrNoUserForDepartment 目标部门没有在职的承接用户
	ErrNoUserForDepartment = errors.New("no active user for department")
	// ErrTrialClosed 试制卡已关闭，不再接受任何流转
	ErrTrialClosed = errors.New("trial is closed")
	// ErrNotPending 进度行不处于待处理状态
	ErrNotPending = errors.New("progress is not pending")
	// ErrNotAssignee 操作人不是当前进度的指派人
	ErrNotAssignee = errors.New("user is not the current assignee")
	// ErrWrongDepartment 试制卡不在操作人所属部门
	ErrWrongDepartment = errors.New("trial is not in the user's department")
)

// Actor 发起流转的操作人（从 JWT 声明提取）
type Actor struct {
	UserID       string
	Username     string
	Name         string
	DepartmentID string
}

// ReportGenerator 报表生成器，试制卡终审时在事务内调用一次
// 实现必须经由 tx 读写，生成失败会回滚整个终审
type ReportGenerator interface {
	GenerateAndStore(ctx context.Context, tx *gorm.DB, trialID, generatedBy string) error
}

// ProgressService 部门进度流转引擎
// 所有迁移在单个事务内完成：进度行、试制卡状态、审计记录要么全部提交要么全部回滚；
// 交接通知在事务提交后异步发送，失败只记日志
type ProgressService struct {
	db       *gorm.DB
	repos    *repository.Repositories
	reporter ReportGenerator
	mail     *mailer.Mailer
	logger   *zap.Logger
}

func NewProgressService(db *gorm.DB, repos *repository.Repositories, reporter ReportGenerator, mail *mailer.Mailer, logger *zap.Logger) *ProgressService {
	return &ProgressService{
		db:       db,
		repos:    repos,
		reporter: reporter,
		mail:     mail,
		logger:   logger,
	}
}

// mailJob 事务提交后待发送的交接通知
type mailJob struct {
	to       string
	name     string
	trialID  string
	partName string
	deptName string
	action   string
}

// InitializeProgress 在事务内为新建的试制卡创建首条进度行
// 与试制卡插入同事务调用；首部门取流转顺序最小的节点；指派给创建人本人
func (s *ProgressService) InitializeProgress(ctx context.Context, tx *gorm.DB, trial *entity.Trial, actor Actor) error {
	first, err := s.repos.Flow.First(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoInitialDepartment
		}
		return fmt.Errorf("查询首个流转部门失败: %w", err)
	}

	progress := &entity.DepartmentProgress{
		ID:             uuid.New().String()[:32],
		TrialID:        trial.ID,
		DepartmentID:   first.DepartmentID,
		Username:       actor.Username,
		ApprovalStatus: entity.ApprovalStatusPending,
		Remarks:        entity.RemarkUserSubmissionPending,
	}
	if err := s.repos.Progress.Create(ctx, tx, progress); err != nil {
		return fmt.Errorf("创建进度行失败: %w", err)
	}

	trial.CurrentDepartmentID = first.DepartmentID
	trial.Status = entity.TrialStatusInProgress
	if err := tx.WithContext(ctx).Model(&entity.Trial{}).
		Where("id = ?", trial.ID).
		Updates(map[string]interface{}{
			"current_department_id": first.DepartmentID,
			"status":                entity.TrialStatusInProgress,
		}).Error; err != nil {
		return fmt.Errorf("更新试制卡状态失败: %w", err)
	}

	return s.audit(ctx, tx, actor, trial.ID, entity.ActionProgressAdded,
		fmt.Sprintf("Trial %s created for part %s", trial.ID, trial.PartName))
}

// AdvanceOnUserCompletion 部门用户完成数据录入后的交接
// 有在职 HOD 则交给 HOD 审批；没有则视为审批默许，直接推进到后继部门
func (s *ProgressService) AdvanceOnUserCompletion(ctx context.Context, trialID string, actor Actor) error {
	var jobs []mailJob

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		trial, progress, err := s.loadForTransition(ctx, tx, trialID, actor)
		if err != nil {
			return err
		}

		if err := s.audit(ctx, tx, actor, trialID, entity.ActionProgressCompleted,
			fmt.Sprintf("User %s completed data entry for department %s", actor.Username, progress.DepartmentID)); err != nil {
			return err
		}

		hod, err := s.repos.User.FindActiveHOD(ctx, progress.DepartmentID)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("查询部门 HOD 失败: %w", err)
			}
			// 部门没有在职 HOD，跳过审批环节直接推进
			job, err := s.advanceToSuccessor(ctx, tx, trial, progress, actor)
			if err != nil {
				return err
			}
			if job != nil {
				jobs = append(jobs, *job)
			}
			return nil
		}

		progress.Username = hod.Username
		progress.Remarks = entity.RemarkHODApprovalPending
		progress.ApprovalStatus = entity.ApprovalStatusPending
		if err := s.repos.Progress.Update(ctx, tx, progress); err != nil {
			return fmt.Errorf("更新进度行失败: %w", err)
		}

		if err := s.audit(ctx, tx, actor, trialID, entity.ActionProgressUpdated,
			fmt.Sprintf("Reassigned to HOD %s for approval", hod.Username)); err != nil {
			return err
		}

		jobs = append(jobs, mailJob{
			to:       hod.Email,
			name:     hod.Name,
			trialID:  trialID,
			partName: trial.PartName,
			deptName: progress.DepartmentID,
			action:   "awaiting your approval",
		})
		return nil
	})
	if err != nil {
		return err
	}

	s.dispatch(jobs)
	return nil
}

// AdvanceOnHodApproval 部门 HOD 审批通过后的推进
// 有后继部门则交接给其在职用户；无后继则终审关闭
func (s *ProgressService) AdvanceOnHodApproval(ctx context.Context, trialID string, actor Actor) error {
	var jobs []mailJob

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		trial, progress, err := s.loadForTransition(ctx, tx, trialID, actor)
		if err != nil {
			return err
		}

		if err := s.audit(ctx, tx, actor, trialID, entity.ActionProgressUpdated,
			fmt.Sprintf("HOD %s approved department %s", actor.Username, progress.DepartmentID)); err != nil {
			return err
		}

		job, err := s.advanceToSuccessor(ctx, tx, trial, progress, actor)
		if err != nil {
			return err
		}
		if job != nil {
			jobs = append(jobs, *job)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.dispatch(jobs)
	return nil
}

// RejectToSubmitter 部门 HOD 驳回，进度退回本部门的在职用户重新提交
// 试制卡不回退部门，顺序号不变，满足访问序列非递减
func (s *ProgressService) RejectToSubmitter(ctx context.Context, trialID string, actor Actor, reason string) error {
	var jobs []mailJob

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		trial, progress, err := s.loadForTransition(ctx, tx, trialID, actor)
		if err != nil {
			return err
		}

		user, err := s.repos.User.FindActiveUser(ctx, progress.DepartmentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNoUserForDepartment
			}
			return fmt.Errorf("查询部门用户失败: %w", err)
		}

		progress.Username = user.Username
		progress.Remarks = entity.RemarkUserSubmissionPending
		progress.ApprovalStatus = entity.ApprovalStatusPending
		if err := s.repos.Progress.Update(ctx, tx, progress); err != nil {
			return fmt.Errorf("更新进度行失败: %w", err)
		}

		remarks := fmt.Sprintf("HOD %s rejected, reassigned to %s", actor.Username, user.Username)
		if reason != "" {
			remarks = fmt.Sprintf("%s: %s", remarks, reason)
		}
		if err := s.audit(ctx, tx, actor, trialID, entity.ActionProgressRejected, remarks); err != nil {
			return err
		}

		jobs = append(jobs, mailJob{
			to:       user.Email,
			name:     user.Name,
			trialID:  trialID,
			partName: trial.PartName,
			deptName: progress.DepartmentID,
			action:   "returned for rework",
		})
		return nil
	})
	if err != nil {
		return err
	}

	s.dispatch(jobs)
	return nil
}

// FinalizeProgress 终审：进度置为 approved、生成报表、试制卡关闭
// 也可由审批端点直接触达（最后一个部门审批时由 advanceToSuccessor 内部调用）
func (s *ProgressService) FinalizeProgress(ctx context.Context, trialID string, actor Actor) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		trial, progress, err := s.loadForTransition(ctx, tx, trialID, actor)
		if err != nil {
			return err
		}
		return s.finalize(ctx, tx, trial, progress, actor)
	})
}

// advanceToSuccessor 共享的后继推进逻辑
// 无后继部门时终审；有后继但无在职用户时整体回滚，试制卡不能落在无人承接的部门
func (s *ProgressService) advanceToSuccessor(ctx context.Context, tx *gorm.DB, trial *entity.Trial, progress *entity.DepartmentProgress, actor Actor) (*mailJob, error) {
	next, err := s.repos.Flow.Next(ctx, progress.DepartmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.finalize(ctx, tx, trial, progress, actor)
		}
		return nil, fmt.Errorf("查询后继部门失败: %w", err)
	}

	user, err := s.repos.User.FindActiveUser(ctx, next.DepartmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoUserForDepartment
		}
		return nil, fmt.Errorf("查询后继部门用户失败: %w", err)
	}

	progress.DepartmentID = next.DepartmentID
	progress.Username = user.Username
	progress.Remarks = entity.RemarkUserSubmissionPending
	progress.ApprovalStatus = entity.ApprovalStatusPending
	if err := s.repos.Progress.Update(ctx, tx, progress); err != nil {
		return nil, fmt.Errorf("更新进度行失败: %w", err)
	}

	if err := tx.WithContext(ctx).Model(&entity.Trial{}).
		Where("id = ?", trial.ID).
		Updates(map[string]interface{}{
			"current_department_id": next.DepartmentID,
			"status":                entity.TrialStatusInProgress,
		}).Error; err != nil {
		return nil, fmt.Errorf("更新试制卡状态失败: %w", err)
	}

	if err := s.audit(ctx, tx, actor, trial.ID, entity.ActionProgressUpdated,
		fmt.Sprintf("Handed off to department %s, user %s", next.DepartmentID, user.Username)); err != nil {
		return nil, err
	}

	return &mailJob{
		to:       user.Email,
		name:     user.Name,
		trialID:  trial.ID,
		partName: trial.PartName,
		deptName: next.DepartmentID,
		action:   "awaiting your submission",
	}, nil
}

func (s *ProgressService) finalize(ctx context.Context, tx *gorm.DB, trial *entity.Trial, progress *entity.DepartmentProgress, actor Actor) error {
	now := time.Now()
	progress.ApprovalStatus = entity.ApprovalStatusApproved
	progress.CompletedAt = &now
	if err := s.repos.Progress.Update(ctx, tx, progress); err != nil {
		return fmt.Errorf("更新进度行失败: %w", err)
	}

	if s.reporter != nil {
		if err := s.reporter.GenerateAndStore(ctx, tx, trial.ID, actor.Username); err != nil {
			return fmt.Errorf("生成试制报表失败: %w", err)
		}
	}

	if err := tx.WithContext(ctx).Model(&entity.Trial{}).
		Where("id = ?", trial.ID).
		Update("status", entity.TrialStatusClosed).Error; err != nil {
		return fmt.Errorf("更新试制卡状态失败: %w", err)
	}

	return s.audit(ctx, tx, actor, trial.ID, entity.ActionProgressApproved,
		fmt.Sprintf("Trial %s approved and closed by %s", trial.ID, actor.Username))
}

// loadForTransition 加行锁读取试制卡与进度行，并做统一前置校验
func (s *ProgressService) loadForTransition(ctx context.Context, tx *gorm.DB, trialID string, actor Actor) (*entity.Trial, *entity.DepartmentProgress, error) {
	var trial entity.Trial
	if err := tx.WithContext(ctx).Where("id = ?", trialID).First(&trial).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, repository.ErrNotFound
		}
		return nil, nil, fmt.Errorf("查询试制卡失败: %w", err)
	}
	if trial.Status == entity.TrialStatusClosed {
		return nil, nil, ErrTrialClosed
	}

	progress, err := s.repos.Progress.FindByTrialForUpdate(ctx, tx, trialID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, repository.ErrNotFound
		}
		return nil, nil, fmt.Errorf("查询进度行失败: %w", err)
	}
	if progress.ApprovalStatus != entity.ApprovalStatusPending {
		return nil, nil, ErrNotPending
	}
	if progress.Username != actor.Username {
		return nil, nil, ErrNotAssignee
	}
	return &trial, progress, nil
}

func (s *ProgressService) audit(ctx context.Context, tx *gorm.DB, actor Actor, trialID, action, remarks string) error {
	log := &entity.AuditLog{
		UserID:       actor.UserID,
		DepartmentID: actor.DepartmentID,
		TrialID:      trialID,
		Action:       action,
		Remarks:      remarks,
	}
	if err := s.repos.AuditLog.Record(ctx, tx, log); err != nil {
		return fmt.Errorf("写入审计记录失败: %w", err)
	}
	return nil
}

// dispatch 事务提交后异步发送交接通知，失败只记日志
func (s *ProgressService) dispatch(jobs []mailJob) {
	if s.mail == nil {
		return
	}
	for _, job := range jobs {
		if job.to == "" {
			continue
		}
		job := job
		go func() {
			subject, body := mailer.NewHandoffMail(job.name, job.trialID, job.partName, job.deptName, job.action)
			if err := s.mail.SendWithTimeout(job.to, subject, body, 15*time.Second); err != nil {
				s.logger.Error("发送交接通知失败",
					zap.String("trial_id", job.trialID),
					zap.String("to", job.to),
					zap.Error(err))
			}
		}()
	}
}
