package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/saclworks/trialflow/internal/qc/repository"
	"github.com/saclworks/trialflow/internal/qc/service"
)

// TrialHandler 试制卡处理器
type TrialHandler struct {
	svc *service.TrialService
}

func NewTrialHandler(svc *service.TrialService) *TrialHandler {
	return &TrialHandler{svc: svc}
}

// Create 创建试制卡
// POST /api/v1/trials
func (h *TrialHandler) Create(c *gin.Context) {
	var req service.CreateTrialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	trial, err := h.svc.Create(c.Request.Context(), &req, GetActor(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTrialExists):
			Conflict(c, "试制卡号已存在")
		case errors.Is(err, service.ErrNoInitialDepartment):
			InternalError(c, "部门流转配置缺少首个部门")
		default:
			InternalError(c, "创建试制卡失败: "+err.Error())
		}
		return
	}
	Created(c, trial)
}

// Get 查询试制卡
// GET /api/v1/trials/:id
func (h *TrialHandler) Get(c *gin.Context) {
	trial, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "试制卡不存在")
			return
		}
		InternalError(c, "查询试制卡失败: "+err.Error())
		return
	}
	Success(c, trial)
}

// List 分页查询试制卡
// GET /api/v1/trials?status=&department_id=&keyword=
func (h *TrialHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filter := repository.ListFilter{
		Status:       c.Query("status"),
		DepartmentID: c.Query("department_id"),
		Keyword:      c.Query("keyword"),
	}

	trials, total, err := h.svc.List(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		InternalError(c, "查询试制卡列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{
		"items":      trials,
		"pagination": newPagination(page, pageSize, total),
	})
}

// Update 更新描述字段
// PUT /api/v1/trials/:id
func (h *TrialHandler) Update(c *gin.Context) {
	var req service.UpdateTrialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	trial, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req, GetActor(c))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "试制卡不存在")
		case errors.Is(err, service.ErrTrialClosed):
			BadRequest(c, "试制卡已关闭")
		default:
			InternalError(c, "更新试制卡失败: "+err.Error())
		}
		return
	}
	Success(c, trial)
}

// Delete 软删除试制卡
// DELETE /api/v1/trials/:id
func (h *TrialHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), GetActor(c)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "试制卡不存在")
			return
		}
		InternalError(c, "删除试制卡失败: "+err.Error())
		return
	}
	Success(c, nil)
}

// Restore 恢复软删除的试制卡
// POST /api/v1/trials/:id/restore
func (h *TrialHandler) Restore(c *gin.Context) {
	if err := h.svc.Restore(c.Request.Context(), c.Param("id"), GetActor(c)); err != nil {
		InternalError(c, "恢复试制卡失败: "+err.Error())
		return
	}
	Success(c, nil)
}
