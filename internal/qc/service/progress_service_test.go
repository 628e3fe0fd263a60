package service

import (
	"context"
	"errors"
	"testing"

	"github.com/saclworks/trialflow/internal/qc/entity"
	"github.com/saclworks/trialflow/internal/qc/repository"
	"github.com/saclworks/trialflow/internal/qc/testutil"
	"github.com/saclworks/trialflow/internal/shared/mailer"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fakeReporter records finalization calls instead of producing a workbook
type fakeReporter struct {
	calls []string
	err   error

	// onGenerate runs inside the finalize transaction with its tx handle
	onGenerate func(tx *gorm.DB) error
}

func (f *fakeReporter) GenerateAndStore(ctx context.Context, tx *gorm.DB, trialID, generatedBy string) error {
	if f.err != nil {
		return f.err
	}
	if f.onGenerate != nil {
		if err := f.onGenerate(tx); err != nil {
			return err
		}
	}
	f.calls = append(f.calls, trialID)
	return nil
}

type progressFixture struct {
	db       *gorm.DB
	repos    *repository.Repositories
	progress *ProgressService
	trials   *TrialService
	reporter *fakeReporter

	dept1 *entity.Department
	dept2 *entity.Department
}

// 两个部门的流转配置：dept1(seq 1) → dept2(seq 2)
// dept1 有 User + HOD，dept2 默认只有 User
func setupProgress(t *testing.T) *progressFixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	repos := repository.NewRepositories(db, logger)
	reporter := &fakeReporter{}
	// 通知器传 nil：流转不依赖邮件发送
	progress := NewProgressService(db, repos, reporter, nil, logger)
	trials := NewTrialService(db, repos, progress, logger)

	f := &progressFixture{
		db:       db,
		repos:    repos,
		progress: progress,
		trials:   trials,
		reporter: reporter,
	}
	f.dept1 = testutil.SeedDepartment(t, db, "SAND_LAB", "Sand Laboratory", 1)
	f.dept2 = testutil.SeedDepartment(t, db, "POURING", "Pouring", 2)
	testutil.SeedUser(t, db, "user1", f.dept1.ID, entity.RoleUser)
	testutil.SeedUser(t, db, "hod1", f.dept1.ID, entity.RoleHOD)
	testutil.SeedUser(t, db, "user2", f.dept2.ID, entity.RoleUser)
	return f
}

func (f *progressFixture) createTrial(t *testing.T, id string, actor Actor) *entity.Trial {
	t.Helper()
	trial, err := f.trials.Create(context.Background(), &CreateTrialRequest{
		ID:       id,
		TrialNo:  "TN-" + id,
		PartName: "Brake Drum",
	}, actor)
	if err != nil {
		t.Fatalf("Create trial failed: %v", err)
	}
	return trial
}

func (f *progressFixture) getProgress(t *testing.T, trialID string) *entity.DepartmentProgress {
	t.Helper()
	progress, err := f.repos.Progress.FindByTrial(context.Background(), trialID)
	if err != nil {
		t.Fatalf("FindByTrial failed: %v", err)
	}
	return progress
}

func (f *progressFixture) getTrial(t *testing.T, trialID string) *entity.Trial {
	t.Helper()
	trial, err := f.repos.Trial.FindByID(context.Background(), trialID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	return trial
}

func actorFor(user *entity.User) Actor {
	return Actor{
		UserID:       user.ID,
		Username:     user.Username,
		Name:         user.Name,
		DepartmentID: user.DepartmentID,
	}
}

func (f *progressFixture) user(t *testing.T, username string) *entity.User {
	t.Helper()
	u, err := f.repos.User.FindByUsername(context.Background(), username)
	if err != nil {
		t.Fatalf("FindByUsername %s failed: %v", username, err)
	}
	return u
}

func TestInitializeProgress(t *testing.T) {
	f := setupProgress(t)
	creator := actorFor(f.user(t, "user1"))

	f.createTrial(t, "T1", creator)

	progress := f.getProgress(t, "T1")
	if progress.DepartmentID != f.dept1.ID {
		t.Errorf("expected progress at dept1 %s, got %s", f.dept1.ID, progress.DepartmentID)
	}
	if progress.ApprovalStatus != entity.ApprovalStatusPending {
		t.Errorf("expected approval_status pending, got %s", progress.ApprovalStatus)
	}
	if progress.Username != "user1" {
		t.Errorf("expected self-assignment to user1, got %s", progress.Username)
	}

	trial := f.getTrial(t, "T1")
	if trial.Status != entity.TrialStatusInProgress {
		t.Errorf("expected trial IN_PROGRESS, got %s", trial.Status)
	}
	if trial.CurrentDepartmentID != f.dept1.ID {
		t.Errorf("expected current_department_id %s, got %s", f.dept1.ID, trial.CurrentDepartmentID)
	}

	logs, err := f.repos.AuditLog.ListByTrial(context.Background(), "T1")
	if err != nil {
		t.Fatalf("ListByTrial failed: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != entity.ActionProgressAdded {
		t.Errorf("expected one %q audit entry, got %+v", entity.ActionProgressAdded, logs)
	}
}

func TestInitializeProgressNoFlow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	repos := repository.NewRepositories(db, logger)
	progress := NewProgressService(db, repos, &fakeReporter{}, nil, logger)
	trials := NewTrialService(db, repos, progress, logger)

	_, err := trials.Create(context.Background(), &CreateTrialRequest{
		ID: "T1", TrialNo: "TN-T1", PartName: "Brake Drum",
	}, Actor{UserID: "u", Username: "user1"})
	if !errors.Is(err, ErrNoInitialDepartment) {
		t.Fatalf("expected ErrNoInitialDepartment, got %v", err)
	}

	// 事务整体回滚，试制卡不应残留
	if _, err := repos.Trial.FindByID(context.Background(), "T1"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected trial rolled back, got err=%v", err)
	}
}

func TestAdvanceOnUserCompletionToHOD(t *testing.T) {
	f := setupProgress(t)
	user1 := actorFor(f.user(t, "user1"))
	f.createTrial(t, "T1", user1)

	if err := f.progress.AdvanceOnUserCompletion(context.Background(), "T1", user1); err != nil {
		t.Fatalf("AdvanceOnUserCompletion failed: %v", err)
	}

	progress := f.getProgress(t, "T1")
	if progress.Username != "hod1" {
		t.Errorf("expected reassignment to hod1, got %s", progress.Username)
	}
	if progress.Remarks != entity.RemarkHODApprovalPending {
		t.Errorf("expected remarks %q, got %q", entity.RemarkHODApprovalPending, progress.Remarks)
	}
	if progress.ApprovalStatus != entity.ApprovalStatusPending {
		t.Errorf("expected approval_status pending, got %s", progress.ApprovalStatus)
	}
	if progress.DepartmentID != f.dept1.ID {
		t.Errorf("expected progress to stay at dept1, got %s", progress.DepartmentID)
	}

	trial := f.getTrial(t, "T1")
	if trial.Status != entity.TrialStatusInProgress {
		t.Errorf("expected trial IN_PROGRESS, got %s", trial.Status)
	}
}

func TestAdvanceOnUserCompletionWithoutHOD(t *testing.T) {
	f := setupProgress(t)
	// 去掉 dept1 的 HOD，完成提交应直接推进到 dept2
	hod := f.user(t, "hod1")
	if err := f.repos.User.Deactivate(context.Background(), hod.ID); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}

	user1 := actorFor(f.user(t, "user1"))
	f.createTrial(t, "T1", user1)

	if err := f.progress.AdvanceOnUserCompletion(context.Background(), "T1", user1); err != nil {
		t.Fatalf("AdvanceOnUserCompletion failed: %v", err)
	}

	progress := f.getProgress(t, "T1")
	if progress.DepartmentID != f.dept2.ID {
		t.Errorf("expected progress at dept2, got %s", progress.DepartmentID)
	}
	if progress.Username != "user2" {
		t.Errorf("expected assignment to user2, got %s", progress.Username)
	}
}

func TestAdvanceOnHodApprovalToNextDepartment(t *testing.T) {
	f := setupProgress(t)
	user1 := actorFor(f.user(t, "user1"))
	hod1 := actorFor(f.user(t, "hod1"))
	f.createTrial(t, "T1", user1)

	if err := f.progress.AdvanceOnUserCompletion(context.Background(), "T1", user1); err != nil {
		t.Fatalf("AdvanceOnUserCompletion failed: %v", err)
	}
	if err := f.progress.AdvanceOnHodApproval(context.Background(), "T1", hod1); err != nil {
		t.Fatalf("AdvanceOnHodApproval failed: %v", err)
	}

	progress := f.getProgress(t, "T1")
	if progress.DepartmentID != f.dept2.ID {
		t.Errorf("expected progress at dept2, got %s", progress.DepartmentID)
	}
	if progress.Username != "user2" {
		t.Errorf("expected assignment to user2, got %s", progress.Username)
	}
	if progress.Remarks != entity.RemarkUserSubmissionPending {
		t.Errorf("expected remarks %q, got %q", entity.RemarkUserSubmissionPending, progress.Remarks)
	}

	trial := f.getTrial(t, "T1")
	if trial.CurrentDepartmentID != f.dept2.ID {
		t.Errorf("expected current_department_id %s, got %s", f.dept2.ID, trial.CurrentDepartmentID)
	}
	if trial.Status != entity.TrialStatusInProgress {
		t.Errorf("expected trial IN_PROGRESS, got %s", trial.Status)
	}
}

func TestFinalizeOnLastDepartmentApproval(t *testing.T) {
	f := setupProgress(t)
	user1 := actorFor(f.user(t, "user1"))
	hod1 := actorFor(f.user(t, "hod1"))
	user2 := actorFor(f.user(t, "user2"))
	f.createTrial(t, "T1", user1)

	// dept1: 完成 + 审批
	if err := f.progress.AdvanceOnUserCompletion(context.Background(), "T1", user1); err != nil {
		t.Fatalf("dept1 complete failed: %v", err)
	}
	if err := f.progress.AdvanceOnHodApproval(context.Background(), "T1", hod1); err != nil {
		t.Fatalf("dept1 approve failed: %v", err)
	}
	// dept2 无 HOD：用户完成即走向终审
	if err := f.progress.AdvanceOnUserCompletion(context.Background(), "T1", user2); err != nil {
		t.Fatalf("dept2 complete failed: %v", err)
	}

	trial := f.getTrial(t, "T1")
	if trial.Status != entity.TrialStatusClosed {
		t.Errorf("expected trial CLOSED, got %s", trial.Status)
	}

	progress := f.getProgress(t, "T1")
	if progress.ApprovalStatus != entity.ApprovalStatusApproved {
		t.Errorf("expected approval_status approved, got %s", progress.ApprovalStatus)
	}
	if progress.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}

	if len(f.reporter.calls) != 1 || f.reporter.calls[0] != "T1" {
		t.Errorf("expected one report generation for T1, got %v", f.reporter.calls)
	}

	// 关闭后不再接受任何流转
	if err := f.progress.AdvanceOnUserCompletion(context.Background(), "T1", user2); !errors.Is(err, ErrTrialClosed) {
		t.Errorf("expected ErrTrialClosed after closure, got %v", err)
	}
}

func TestAdvanceRollsBackWhenNoUserInNextDepartment(t *testing.T) {
	f := setupProgress(t)
	user1 := actorFor(f.user(t, "user1"))
	hod1 := actorFor(f.user(t, "hod1"))
	f.createTrial(t, "T1", user1)

	if err := f.progress.AdvanceOnUserCompletion(context.Background(), "T1", user1); err != nil {
		t.Fatalf("AdvanceOnUserCompletion failed: %v", err)
	}

	// 停用 dept2 的用户后审批，整个迁移必须回滚
	user2 := f.user(t, "user2")
	if err := f.repos.User.Deactivate(context.Background(), user2.ID); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}

	auditBefore, _ := f.repos.AuditLog.ListByTrial(context.Background(), "T1")

	err := f.progress.AdvanceOnHodApproval(context.Background(), "T1", hod1)
	if !errors.Is(err, ErrNoUserForDepartment) {
		t.Fatalf("expected ErrNoUserForDepartment, got %v", err)
	}

	progress := f.getProgress(t, "T1")
	if progress.DepartmentID != f.dept1.ID {
		t.Errorf("expected progress unchanged at dept1, got %s", progress.DepartmentID)
	}
	if progress.Username != "hod1" {
		t.Errorf("expected assignment unchanged at hod1, got %s", progress.Username)
	}

	trial := f.getTrial(t, "T1")
	if trial.CurrentDepartmentID != f.dept1.ID {
		t.Errorf("expected current_department_id unchanged, got %s", trial.CurrentDepartmentID)
	}

	// 审计记录同事务回滚，条数不变
	auditAfter, _ := f.repos.AuditLog.ListByTrial(context.Background(), "T1")
	if len(auditAfter) != len(auditBefore) {
		t.Errorf("expected audit log unchanged (%d entries), got %d", len(auditBefore), len(auditAfter))
	}
}

func TestRejectToSubmitter(t *testing.T) {
	f := setupProgress(t)
	user1 := actorFor(f.user(t, "user1"))
	hod1 := actorFor(f.user(t, "hod1"))
	f.createTrial(t, "T1", user1)

	if err := f.progress.AdvanceOnUserCompletion(context.Background(), "T1", user1); err != nil {
		t.Fatalf("AdvanceOnUserCompletion failed: %v", err)
	}
	if err := f.progress.RejectToSubmitter(context.Background(), "T1", hod1, "dimensions out of tolerance"); err != nil {
		t.Fatalf("RejectToSubmitter failed: %v", err)
	}

	progress := f.getProgress(t, "T1")
	if progress.Username != "user1" {
		t.Errorf("expected reassignment back to user1, got %s", progress.Username)
	}
	if progress.DepartmentID != f.dept1.ID {
		t.Errorf("expected progress to stay at dept1, got %s", progress.DepartmentID)
	}
	if progress.Remarks != entity.RemarkUserSubmissionPending {
		t.Errorf("expected remarks %q, got %q", entity.RemarkUserSubmissionPending, progress.Remarks)
	}

	logs, _ := f.repos.AuditLog.ListByTrial(context.Background(), "T1")
	found := false
	for _, l := range logs {
		if l.Action == entity.ActionProgressRejected {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a %q audit entry, got %+v", entity.ActionProgressRejected, logs)
	}
}

func TestTransitionRequiresAssignee(t *testing.T) {
	f := setupProgress(t)
	user1 := actorFor(f.user(t, "user1"))
	user2 := actorFor(f.user(t, "user2"))
	f.createTrial(t, "T1", user1)

	// user2 不是当前指派人
	if err := f.progress.AdvanceOnUserCompletion(context.Background(), "T1", user2); !errors.Is(err, ErrNotAssignee) {
		t.Fatalf("expected ErrNotAssignee, got %v", err)
	}
}

func TestReportFailureRollsBackFinalize(t *testing.T) {
	f := setupProgress(t)
	f.reporter.err = errors.New("minio unavailable")

	user1 := actorFor(f.user(t, "user1"))
	hod1 := actorFor(f.user(t, "hod1"))
	user2 := actorFor(f.user(t, "user2"))
	f.createTrial(t, "T1", user1)

	if err := f.progress.AdvanceOnUserCompletion(context.Background(), "T1", user1); err != nil {
		t.Fatalf("dept1 complete failed: %v", err)
	}
	if err := f.progress.AdvanceOnHodApproval(context.Background(), "T1", hod1); err != nil {
		t.Fatalf("dept1 approve failed: %v", err)
	}

	if err := f.progress.AdvanceOnUserCompletion(context.Background(), "T1", user2); err == nil {
		t.Fatal("expected finalize to fail when report generation fails")
	}

	// 终审回滚，试制卡仍然在办
	trial := f.getTrial(t, "T1")
	if trial.Status == entity.TrialStatusClosed {
		t.Error("expected trial to remain open after report failure")
	}
	progress := f.getProgress(t, "T1")
	if progress.ApprovalStatus != entity.ApprovalStatusPending {
		t.Errorf("expected approval_status pending after rollback, got %s", progress.ApprovalStatus)
	}
}

// 报表元数据必须经由终审事务写入：生成器在写入元数据后失败时，元数据随终审一并回滚
func TestReportMetadataRollsBackWithFinalize(t *testing.T) {
	f := setupProgress(t)
	f.reporter.onGenerate = func(tx *gorm.DB) error {
		repos := f.repos.WithTx(tx)
		if err := repos.Report.SaveReport(context.Background(), &entity.TrialReport{
			ID:        "RPT-T1",
			TrialID:   "T1",
			ObjectKey: "reports/T1.xlsx",
		}); err != nil {
			return err
		}
		return errors.New("workbook write failed")
	}

	user1 := actorFor(f.user(t, "user1"))
	hod1 := actorFor(f.user(t, "hod1"))
	user2 := actorFor(f.user(t, "user2"))
	f.createTrial(t, "T1", user1)

	if err := f.progress.AdvanceOnUserCompletion(context.Background(), "T1", user1); err != nil {
		t.Fatalf("dept1 complete failed: %v", err)
	}
	if err := f.progress.AdvanceOnHodApproval(context.Background(), "T1", hod1); err != nil {
		t.Fatalf("dept1 approve failed: %v", err)
	}
	if err := f.progress.AdvanceOnUserCompletion(context.Background(), "T1", user2); err == nil {
		t.Fatal("expected finalize to fail when report generation fails")
	}

	if _, err := f.repos.Report.FindReportByTrial(context.Background(), "T1"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected report metadata rolled back with finalize, got %v", err)
	}
	trial := f.getTrial(t, "T1")
	if trial.Status == entity.TrialStatusClosed {
		t.Error("expected trial to remain open after rollback")
	}
}

// 报表生成的读取与终审同事务：能看到本次迁移尚未提交的审计记录
func TestReportSeesUncommittedAuditEntries(t *testing.T) {
	f := setupProgress(t)
	var inTx, inPool int
	f.reporter.onGenerate = func(tx *gorm.DB) error {
		logs, err := f.repos.WithTx(tx).AuditLog.ListByTrial(context.Background(), "T1")
		if err != nil {
			return err
		}
		inTx = len(logs)
		poolLogs, err := f.repos.AuditLog.ListByTrial(context.Background(), "T1")
		if err != nil {
			return err
		}
		inPool = len(poolLogs)
		return nil
	}

	user1 := actorFor(f.user(t, "user1"))
	hod1 := actorFor(f.user(t, "hod1"))
	user2 := actorFor(f.user(t, "user2"))
	f.createTrial(t, "T1", user1)

	if err := f.progress.AdvanceOnUserCompletion(context.Background(), "T1", user1); err != nil {
		t.Fatalf("dept1 complete failed: %v", err)
	}
	if err := f.progress.AdvanceOnHodApproval(context.Background(), "T1", hod1); err != nil {
		t.Fatalf("dept1 approve failed: %v", err)
	}
	if err := f.progress.AdvanceOnUserCompletion(context.Background(), "T1", user2); err != nil {
		t.Fatalf("dept2 complete failed: %v", err)
	}

	if inTx <= inPool {
		t.Errorf("expected report generation to see uncommitted audit entries: tx=%d pool=%d", inTx, inPool)
	}
}

// 交接通知发送失败不影响已提交的流转，错误只记日志
func TestHandoffMailFailureDoesNotFailTransition(t *testing.T) {
	f := setupProgress(t)
	// 指向不可达的 SMTP 端口，发送必然失败
	dead := mailer.New("127.0.0.1", 1, "", "", "noreply@trialflow.local", 1)
	progress := NewProgressService(f.db, f.repos, f.reporter, dead, zap.NewNop())

	user1 := actorFor(f.user(t, "user1"))
	f.createTrial(t, "T1", user1)

	if err := progress.AdvanceOnUserCompletion(context.Background(), "T1", user1); err != nil {
		t.Fatalf("expected transition to succeed despite mail failure, got %v", err)
	}

	p := f.getProgress(t, "T1")
	if p.Username != "hod1" {
		t.Errorf("expected progress handed to hod1, got %s", p.Username)
	}
	if p.Remarks != entity.RemarkHODApprovalPending {
		t.Errorf("expected remarks %q, got %q", entity.RemarkHODApprovalPending, p.Remarks)
	}
}
