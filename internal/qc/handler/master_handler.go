package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/saclworks/trialflow/internal/qc/repository"
	"github.com/saclworks/trialflow/internal/qc/service"
)

// MasterHandler 主数据管理处理器（管理端）
type MasterHandler struct {
	svc *service.MasterService
}

func NewMasterHandler(svc *service.MasterService) *MasterHandler {
	return &MasterHandler{svc: svc}
}

// CreateUser POST /api/v1/admin/users
func (h *MasterHandler) CreateUser(c *gin.Context) {
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	user, err := h.svc.CreateUser(c.Request.Context(), &req, GetActor(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameTaken):
			Conflict(c, "用户名已存在")
		case errors.Is(err, service.ErrInvalidRole):
			BadRequest(c, "角色不合法")
		default:
			InternalError(c, "创建用户失败: "+err.Error())
		}
		return
	}
	Created(c, user)
}

// ListUsers GET /api/v1/admin/users?department_id=
func (h *MasterHandler) ListUsers(c *gin.Context) {
	page, pageSize := GetPagination(c)
	users, total, err := h.svc.ListUsers(c.Request.Context(), c.Query("department_id"), page, pageSize)
	if err != nil {
		InternalError(c, "查询用户列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{
		"items":      users,
		"pagination": newPagination(page, pageSize, total),
	})
}

// DeactivateUser DELETE /api/v1/admin/users/:id
func (h *MasterHandler) DeactivateUser(c *gin.Context) {
	if err := h.svc.DeactivateUser(c.Request.Context(), c.Param("id"), GetActor(c)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "用户不存在")
			return
		}
		InternalError(c, "停用用户失败: "+err.Error())
		return
	}
	Success(c, nil)
}

// ListDepartments GET /api/v1/departments
func (h *MasterHandler) ListDepartments(c *gin.Context) {
	departments, err := h.svc.ListDepartments(c.Request.Context())
	if err != nil {
		InternalError(c, "查询部门列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": departments})
}

// CreateDepartment POST /api/v1/admin/departments
func (h *MasterHandler) CreateDepartment(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	department, err := h.svc.CreateDepartment(c.Request.Context(), req.Code, req.Name)
	if err != nil {
		InternalError(c, "创建部门失败: "+err.Error())
		return
	}
	Created(c, department)
}

// ListFlow GET /api/v1/flow
func (h *MasterHandler) ListFlow(c *gin.Context) {
	flows, err := h.svc.ListFlow(c.Request.Context())
	if err != nil {
		InternalError(c, "查询流转配置失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": flows})
}

// AddFlowNode POST /api/v1/admin/flow
func (h *MasterHandler) AddFlowNode(c *gin.Context) {
	var req struct {
		DepartmentID string `json:"department_id" binding:"required"`
		SequenceNo   int    `json:"sequence_no" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	flow, err := h.svc.AddFlowNode(c.Request.Context(), req.DepartmentID, req.SequenceNo)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "部门不存在")
			return
		}
		BadRequest(c, "创建流转节点失败: "+err.Error())
		return
	}
	Created(c, flow)
}
