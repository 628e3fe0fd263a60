package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/saclworks/trialflow/internal/qc/repository"
	"github.com/saclworks/trialflow/internal/qc/service"
)

// ProgressHandler 进度流转处理器
type ProgressHandler struct {
	svc *service.ProgressService
}

func NewProgressHandler(svc *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{svc: svc}
}

// Complete 部门用户完成数据录入
// POST /api/v1/progress/:trial_id/complete
func (h *ProgressHandler) Complete(c *gin.Context) {
	if err := h.svc.AdvanceOnUserCompletion(c.Request.Context(), c.Param("trial_id"), GetActor(c)); err != nil {
		transitionError(c, err)
		return
	}
	Success(c, nil)
}

// Approve HOD 审批通过
// POST /api/v1/progress/:trial_id/approve
func (h *ProgressHandler) Approve(c *gin.Context) {
	if err := h.svc.AdvanceOnHodApproval(c.Request.Context(), c.Param("trial_id"), GetActor(c)); err != nil {
		transitionError(c, err)
		return
	}
	Success(c, nil)
}

// Reject HOD 驳回，退回本部门用户重新提交
// POST /api/v1/progress/:trial_id/reject
func (h *ProgressHandler) Reject(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	// 驳回原因可选
	_ = c.ShouldBindJSON(&req)

	if err := h.svc.RejectToSubmitter(c.Request.Context(), c.Param("trial_id"), GetActor(c), req.Reason); err != nil {
		transitionError(c, err)
		return
	}
	Success(c, nil)
}

// GetByTrial 单张试制卡的当前进度
// GET /api/v1/progress/:trial_id
func (h *ProgressHandler) GetByTrial(c *gin.Context) {
	progress, err := h.svc.GetByTrial(c.Request.Context(), c.Param("trial_id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "进度不存在")
			return
		}
		InternalError(c, "查询进度失败: "+err.Error())
		return
	}
	Success(c, progress)
}

// ListPending 当前用户名下待处理的进度
// GET /api/v1/progress/pending
func (h *ProgressHandler) ListPending(c *gin.Context) {
	rows, err := h.svc.ListPending(c.Request.Context(), GetActor(c).Username)
	if err != nil {
		InternalError(c, "查询待处理进度失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": rows})
}

// ListByDepartment 某部门当前在办的进度
// GET /api/v1/progress/department/:department_id
func (h *ProgressHandler) ListByDepartment(c *gin.Context) {
	rows, err := h.svc.ListByDepartment(c.Request.Context(), c.Param("department_id"))
	if err != nil {
		InternalError(c, "查询部门进度失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": rows})
}

// ListCompleted 已关闭的试制卡
// GET /api/v1/progress/completed
func (h *ProgressHandler) ListCompleted(c *gin.Context) {
	page, pageSize := GetPagination(c)
	trials, total, err := h.svc.ListCompletedTrials(c.Request.Context(), page, pageSize)
	if err != nil {
		InternalError(c, "查询已完成试制卡失败: "+err.Error())
		return
	}
	Success(c, gin.H{
		"items":      trials,
		"pagination": newPagination(page, pageSize, total),
	})
}

// AuditTrail 试制卡的审计记录
// GET /api/v1/progress/:trial_id/audit
func (h *ProgressHandler) AuditTrail(c *gin.Context) {
	logs, err := h.svc.AuditTrail(c.Request.Context(), c.Param("trial_id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "试制卡不存在")
			return
		}
		InternalError(c, "查询审计记录失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": logs})
}
