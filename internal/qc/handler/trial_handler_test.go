package handler

import (
	"context"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/saclworks/trialflow/internal/qc/entity"
	"github.com/saclworks/trialflow/internal/qc/repository"
	"github.com/saclworks/trialflow/internal/qc/service"
	"github.com/saclworks/trialflow/internal/qc/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type noopReporter struct{}

func (noopReporter) GenerateAndStore(ctx context.Context, tx *gorm.DB, trialID, generatedBy string) error {
	return nil
}

type handlerFixture struct {
	db     *gorm.DB
	repos  *repository.Repositories
	router *gin.Engine

	dept1 *entity.Department
	dept2 *entity.Department
}

func setupHandlers(t *testing.T) *handlerFixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	repos := repository.NewRepositories(db, logger)
	progressSvc := service.NewProgressService(db, repos, noopReporter{}, nil, logger)
	trialSvc := service.NewTrialService(db, repos, progressSvc, logger)
	inspectionSvc := service.NewInspectionService(repos, progressSvc, logger)

	r := testutil.SetupRouter()
	authorized := testutil.AuthGroup(r, "/api/v1")

	trialH := NewTrialHandler(trialSvc)
	progressH := NewProgressHandler(progressSvc)
	inspectionH := NewInspectionHandler(inspectionSvc)

	trials := authorized.Group("/trials")
	trials.POST("", trialH.Create)
	trials.GET("/:id", trialH.Get)
	trials.GET("", trialH.List)

	progress := authorized.Group("/progress")
	progress.GET("/pending", progressH.ListPending)
	progress.GET("/:trial_id", progressH.GetByTrial)
	progress.GET("/:trial_id/audit", progressH.AuditTrail)
	progress.POST("/:trial_id/complete", progressH.Complete)
	progress.POST("/:trial_id/approve", progressH.Approve)
	progress.POST("/:trial_id/reject", progressH.Reject)

	inspections := authorized.Group("/inspections")
	inspections.POST("/sand-properties", inspectionH.SubmitSandProperty)
	inspections.GET("/sand-properties/:trial_id", inspectionH.ListSandProperties)

	f := &handlerFixture{db: db, repos: repos, router: r}
	f.dept1 = testutil.SeedDepartment(t, db, "SAND_LAB", "Sand Laboratory", 1)
	f.dept2 = testutil.SeedDepartment(t, db, "POURING", "Pouring", 2)
	testutil.SeedUser(t, db, "user1", f.dept1.ID, entity.RoleUser)
	testutil.SeedUser(t, db, "hod1", f.dept1.ID, entity.RoleHOD)
	testutil.SeedUser(t, db, "user2", f.dept2.ID, entity.RoleUser)
	return f
}

func (f *handlerFixture) token(username, departmentID, role string) string {
	return testutil.GenerateTestToken("uid-"+username, username, "Test "+username, departmentID, role)
}

func TestCreateTrialEndpoint(t *testing.T) {
	f := setupHandlers(t)
	token := f.token("user1", f.dept1.ID, entity.RoleUser)

	w := testutil.DoRequest(f.router, "POST", "/api/v1/trials", map[string]interface{}{
		"id":        "T1",
		"trial_no":  "TN-001",
		"part_name": "Brake Drum",
	}, token)
	if w.Code != 201 {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	// 进度行应指派给创建人，位于首个部门
	w = testutil.DoRequest(f.router, "GET", "/api/v1/progress/T1", nil, token)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["username"] != "user1" {
		t.Errorf("expected assignee user1, got %v", data["username"])
	}
	if data["approval_status"] != entity.ApprovalStatusPending {
		t.Errorf("expected approval_status pending, got %v", data["approval_status"])
	}
}

func TestCreateTrialDuplicate(t *testing.T) {
	f := setupHandlers(t)
	token := f.token("user1", f.dept1.ID, entity.RoleUser)

	body := map[string]interface{}{"id": "T1", "trial_no": "TN-001", "part_name": "Brake Drum"}
	if w := testutil.DoRequest(f.router, "POST", "/api/v1/trials", body, token); w.Code != 201 {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	w := testutil.DoRequest(f.router, "POST", "/api/v1/trials", body, token)
	if w.Code != 409 {
		t.Errorf("expected 409 on duplicate trial id, got %d: %s", w.Code, w.Body.String())
	}
}

func TestTrialRequiresAuth(t *testing.T) {
	f := setupHandlers(t)
	w := testutil.DoRequest(f.router, "GET", "/api/v1/trials", nil, "")
	if w.Code != 401 {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}
}

func TestProgressLifecycleOverHTTP(t *testing.T) {
	f := setupHandlers(t)
	user1Token := f.token("user1", f.dept1.ID, entity.RoleUser)
	hod1Token := f.token("hod1", f.dept1.ID, entity.RoleHOD)

	if w := testutil.DoRequest(f.router, "POST", "/api/v1/trials", map[string]interface{}{
		"id": "T1", "trial_no": "TN-001", "part_name": "Brake Drum",
	}, user1Token); w.Code != 201 {
		t.Fatalf("create trial failed: %d %s", w.Code, w.Body.String())
	}

	// 用户完成 → 交给 HOD
	if w := testutil.DoRequest(f.router, "POST", "/api/v1/progress/T1/complete", nil, user1Token); w.Code != 200 {
		t.Fatalf("complete failed: %d %s", w.Code, w.Body.String())
	}

	// 非指派人触发迁移被拒
	if w := testutil.DoRequest(f.router, "POST", "/api/v1/progress/T1/approve", nil, user1Token); w.Code != 403 {
		t.Fatalf("expected 403 for non-assignee approve, got %d", w.Code)
	}

	// HOD 驳回 → 退回 user1
	if w := testutil.DoRequest(f.router, "POST", "/api/v1/progress/T1/reject", map[string]interface{}{
		"reason": "incomplete data",
	}, hod1Token); w.Code != 200 {
		t.Fatalf("reject failed: %d %s", w.Code, w.Body.String())
	}

	w := testutil.DoRequest(f.router, "GET", "/api/v1/progress/T1", nil, user1Token)
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["username"] != "user1" {
		t.Fatalf("expected rejection to reassign user1, got %v", data["username"])
	}

	// 重新完成 → HOD 审批 → 进入 dept2
	if w := testutil.DoRequest(f.router, "POST", "/api/v1/progress/T1/complete", nil, user1Token); w.Code != 200 {
		t.Fatalf("re-complete failed: %d %s", w.Code, w.Body.String())
	}
	if w := testutil.DoRequest(f.router, "POST", "/api/v1/progress/T1/approve", nil, hod1Token); w.Code != 200 {
		t.Fatalf("approve failed: %d %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(f.router, "GET", "/api/v1/progress/T1", nil, user1Token)
	data = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["username"] != "user2" {
		t.Fatalf("expected handoff to user2, got %v", data["username"])
	}

	// 审计记录完整可查
	w = testutil.DoRequest(f.router, "GET", "/api/v1/progress/T1/audit", nil, user1Token)
	if w.Code != 200 {
		t.Fatalf("audit trail failed: %d", w.Code)
	}
	items := testutil.ParseResponse(w)["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) < 4 {
		t.Errorf("expected at least 4 audit entries, got %d", len(items))
	}
}

func TestInspectionSubmitAdvances(t *testing.T) {
	f := setupHandlers(t)
	user1Token := f.token("user1", f.dept1.ID, entity.RoleUser)

	if w := testutil.DoRequest(f.router, "POST", "/api/v1/trials", map[string]interface{}{
		"id": "T1", "trial_no": "TN-001", "part_name": "Brake Drum",
	}, user1Token); w.Code != 201 {
		t.Fatalf("create trial failed: %d %s", w.Code, w.Body.String())
	}

	// 不带 complete 标记：只落库，不流转
	if w := testutil.DoRequest(f.router, "POST", "/api/v1/inspections/sand-properties", map[string]interface{}{
		"trial_id":     "T1",
		"moisture_pct": 3.6,
		"permeability": 120.0,
	}, user1Token); w.Code != 201 {
		t.Fatalf("submit failed: %d %s", w.Code, w.Body.String())
	}

	w := testutil.DoRequest(f.router, "GET", "/api/v1/progress/T1", nil, user1Token)
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["username"] != "user1" {
		t.Fatalf("expected progress unchanged, got %v", data["username"])
	}

	// 带 complete 标记：落库并触发用户完成流转
	if w := testutil.DoRequest(f.router, "POST", "/api/v1/inspections/sand-properties", map[string]interface{}{
		"trial_id":     "T1",
		"moisture_pct": 3.4,
		"complete":     true,
	}, user1Token); w.Code != 201 {
		t.Fatalf("submit with complete failed: %d %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(f.router, "GET", "/api/v1/progress/T1", nil, user1Token)
	data = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["username"] != "hod1" {
		t.Fatalf("expected handoff to hod1, got %v", data["username"])
	}

	w = testutil.DoRequest(f.router, "GET", "/api/v1/inspections/sand-properties/T1", nil, user1Token)
	items := testutil.ParseResponse(w)["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) != 2 {
		t.Errorf("expected 2 sand property records, got %d", len(items))
	}
}

// 非当前部门的用户不能为试制卡录入检验数据
func TestInspectionSubmitWrongDepartment(t *testing.T) {
	f := setupHandlers(t)
	user1Token := f.token("user1", f.dept1.ID, entity.RoleUser)
	user2Token := f.token("user2", f.dept2.ID, entity.RoleUser)

	if w := testutil.DoRequest(f.router, "POST", "/api/v1/trials", map[string]interface{}{
		"id": "T1", "trial_no": "TN-001", "part_name": "Brake Drum",
	}, user1Token); w.Code != 201 {
		t.Fatalf("create trial failed: %d %s", w.Code, w.Body.String())
	}

	// 试制卡在 dept1，dept2 的用户提交应被拒绝
	w := testutil.DoRequest(f.router, "POST", "/api/v1/inspections/sand-properties", map[string]interface{}{
		"trial_id":     "T1",
		"moisture_pct": 3.6,
	}, user2Token)
	if w.Code != 403 {
		t.Fatalf("expected 403 for wrong department, got %d %s", w.Code, w.Body.String())
	}

	// 没有留下任何记录
	listW := testutil.DoRequest(f.router, "GET", "/api/v1/inspections/sand-properties/T1", nil, user1Token)
	items := testutil.ParseResponse(listW)["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) != 0 {
		t.Errorf("expected no sand property records, got %d", len(items))
	}
}
