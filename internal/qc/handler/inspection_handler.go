package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/saclworks/trialflow/internal/qc/entity"
	"github.com/saclworks/trialflow/internal/qc/repository"
	"github.com/saclworks/trialflow/internal/qc/service"
)

// InspectionHandler 各部门检验数据处理器
// 提交体为对应记录实体加 complete 标记；带标记的提交触发用户完成流转
type InspectionHandler struct {
	svc *service.InspectionService
}

func NewInspectionHandler(svc *service.InspectionService) *InspectionHandler {
	return &InspectionHandler{svc: svc}
}

func (h *InspectionHandler) submitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, "试制卡不存在")
	case errors.Is(err, service.ErrTrialClosed):
		BadRequest(c, "试制卡已关闭")
	case errors.Is(err, service.ErrWrongDepartment):
		Forbidden(c, "试制卡不在该用户所属部门")
	case errors.Is(err, service.ErrNotPending), errors.Is(err, service.ErrNotAssignee),
		errors.Is(err, service.ErrNoUserForDepartment):
		transitionError(c, err)
	default:
		InternalError(c, "保存检验记录失败: "+err.Error())
	}
}

// SubmitSandProperty POST /api/v1/inspections/sand-properties
func (h *InspectionHandler) SubmitSandProperty(c *gin.Context) {
	var req struct {
		entity.SandProperty
		Complete bool `json:"complete"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if err := h.svc.SubmitSandProperty(c.Request.Context(), &req.SandProperty, GetActor(c), req.Complete); err != nil {
		h.submitError(c, err)
		return
	}
	Created(c, req.SandProperty)
}

// ListSandProperties GET /api/v1/inspections/sand-properties/:trial_id
func (h *InspectionHandler) ListSandProperties(c *gin.Context) {
	rows, err := h.svc.ListSandProperties(c.Request.Context(), c.Param("trial_id"))
	if err != nil {
		InternalError(c, "查询砂性能记录失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": rows})
}

// SubmitMouldingRecord POST /api/v1/inspections/moulding-records
func (h *InspectionHandler) SubmitMouldingRecord(c *gin.Context) {
	var req struct {
		entity.MouldingRecord
		Complete bool `json:"complete"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if err := h.svc.SubmitMouldingRecord(c.Request.Context(), &req.MouldingRecord, GetActor(c), req.Complete); err != nil {
		h.submitError(c, err)
		return
	}
	Created(c, req.MouldingRecord)
}

// ListMouldingRecords GET /api/v1/inspections/moulding-records/:trial_id
func (h *InspectionHandler) ListMouldingRecords(c *gin.Context) {
	rows, err := h.svc.ListMouldingRecords(c.Request.Context(), c.Param("trial_id"))
	if err != nil {
		InternalError(c, "查询造型记录失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": rows})
}

// SubmitMouldCorrection POST /api/v1/inspections/mould-corrections
func (h *InspectionHandler) SubmitMouldCorrection(c *gin.Context) {
	var req struct {
		entity.MouldCorrection
		Complete bool `json:"complete"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if err := h.svc.SubmitMouldCorrection(c.Request.Context(), &req.MouldCorrection, GetActor(c), req.Complete); err != nil {
		h.submitError(c, err)
		return
	}
	Created(c, req.MouldCorrection)
}

// ListMouldCorrections GET /api/v1/inspections/mould-corrections/:trial_id
func (h *InspectionHandler) ListMouldCorrections(c *gin.Context) {
	rows, err := h.svc.ListMouldCorrections(c.Request.Context(), c.Param("trial_id"))
	if err != nil {
		InternalError(c, "查询型腔修正记录失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": rows})
}

// SubmitPouringRecord POST /api/v1/inspections/pouring-records
func (h *InspectionHandler) SubmitPouringRecord(c *gin.Context) {
	var req struct {
		entity.PouringRecord
		Complete bool `json:"complete"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if err := h.svc.SubmitPouringRecord(c.Request.Context(), &req.PouringRecord, GetActor(c), req.Complete); err != nil {
		h.submitError(c, err)
		return
	}
	Created(c, req.PouringRecord)
}

// ListPouringRecords GET /api/v1/inspections/pouring-records/:trial_id
func (h *InspectionHandler) ListPouringRecords(c *gin.Context) {
	rows, err := h.svc.ListPouringRecords(c.Request.Context(), c.Param("trial_id"))
	if err != nil {
		InternalError(c, "查询浇注记录失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": rows})
}

// SubmitVisualInspection POST /api/v1/inspections/visual
func (h *InspectionHandler) SubmitVisualInspection(c *gin.Context) {
	var req struct {
		entity.VisualInspection
		Complete bool `json:"complete"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if err := h.svc.SubmitVisualInspection(c.Request.Context(), &req.VisualInspection, GetActor(c), req.Complete); err != nil {
		h.submitError(c, err)
		return
	}
	Created(c, req.VisualInspection)
}

// ListVisualInspections GET /api/v1/inspections/visual/:trial_id
func (h *InspectionHandler) ListVisualInspections(c *gin.Context) {
	rows, err := h.svc.ListVisualInspections(c.Request.Context(), c.Param("trial_id"))
	if err != nil {
		InternalError(c, "查询外观检验记录失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": rows})
}

// SubmitDimensionalInspection POST /api/v1/inspections/dimensional
func (h *InspectionHandler) SubmitDimensionalInspection(c *gin.Context) {
	var req struct {
		entity.DimensionalInspection
		Complete bool `json:"complete"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if err := h.svc.SubmitDimensionalInspection(c.Request.Context(), &req.DimensionalInspection, GetActor(c), req.Complete); err != nil {
		h.submitError(c, err)
		return
	}
	Created(c, req.DimensionalInspection)
}

// ListDimensionalInspections GET /api/v1/inspections/dimensional/:trial_id
func (h *InspectionHandler) ListDimensionalInspections(c *gin.Context) {
	rows, err := h.svc.ListDimensionalInspections(c.Request.Context(), c.Param("trial_id"))
	if err != nil {
		InternalError(c, "查询尺寸检验记录失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": rows})
}

// SubmitMetallurgicalInspection POST /api/v1/inspections/metallurgical
func (h *InspectionHandler) SubmitMetallurgicalInspection(c *gin.Context) {
	var req struct {
		entity.MetallurgicalInspection
		Complete bool `json:"complete"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if err := h.svc.SubmitMetallurgicalInspection(c.Request.Context(), &req.MetallurgicalInspection, GetActor(c), req.Complete); err != nil {
		h.submitError(c, err)
		return
	}
	Created(c, req.MetallurgicalInspection)
}

// ListMetallurgicalInspections GET /api/v1/inspections/metallurgical/:trial_id
func (h *InspectionHandler) ListMetallurgicalInspections(c *gin.Context) {
	rows, err := h.svc.ListMetallurgicalInspections(c.Request.Context(), c.Param("trial_id"))
	if err != nil {
		InternalError(c, "查询金相检验记录失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": rows})
}

// SubmitMaterialCorrection POST /api/v1/inspections/material-corrections
func (h *InspectionHandler) SubmitMaterialCorrection(c *gin.Context) {
	var req struct {
		entity.MaterialCorrection
		Complete bool `json:"complete"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if err := h.svc.SubmitMaterialCorrection(c.Request.Context(), &req.MaterialCorrection, GetActor(c), req.Complete); err != nil {
		h.submitError(c, err)
		return
	}
	Created(c, req.MaterialCorrection)
}

// ListMaterialCorrections GET /api/v1/inspections/material-corrections/:trial_id
func (h *InspectionHandler) ListMaterialCorrections(c *gin.Context) {
	rows, err := h.svc.ListMaterialCorrections(c.Request.Context(), c.Param("trial_id"))
	if err != nil {
		InternalError(c, "查询材质修正记录失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": rows})
}

// SubmitMachineShopRecord POST /api/v1/inspections/machine-shop
func (h *InspectionHandler) SubmitMachineShopRecord(c *gin.Context) {
	var req struct {
		entity.MachineShopRecord
		Complete bool `json:"complete"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if err := h.svc.SubmitMachineShopRecord(c.Request.Context(), &req.MachineShopRecord, GetActor(c), req.Complete); err != nil {
		h.submitError(c, err)
		return
	}
	Created(c, req.MachineShopRecord)
}

// ListMachineShopRecords GET /api/v1/inspections/machine-shop/:trial_id
func (h *InspectionHandler) ListMachineShopRecords(c *gin.Context) {
	rows, err := h.svc.ListMachineShopRecords(c.Request.Context(), c.Param("trial_id"))
	if err != nil {
		InternalError(c, "查询机加工记录失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": rows})
}
