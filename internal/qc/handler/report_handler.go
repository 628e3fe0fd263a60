package handler

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/saclworks/trialflow/internal/qc/repository"
	"github.com/saclworks/trialflow/internal/qc/service"
)

// ReportHandler 试制报表处理器
type ReportHandler struct {
	svc *service.ReportService
}

func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// Download 下载试制报表
// GET /api/v1/reports/:trial_id/download
func (h *ReportHandler) Download(c *gin.Context) {
	trialID := c.Param("trial_id")
	_, data, err := h.svc.Download(c.Request.Context(), trialID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "报表不存在")
			return
		}
		InternalError(c, "下载报表失败: "+err.Error())
		return
	}

	fileName := fmt.Sprintf("trial_%s_report.xlsx", trialID)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))
	c.Data(200, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// Get 报表元数据
// GET /api/v1/reports/:trial_id
func (h *ReportHandler) Get(c *gin.Context) {
	report, err := h.svc.Get(c.Request.Context(), c.Param("trial_id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "报表不存在")
			return
		}
		InternalError(c, "查询报表失败: "+err.Error())
		return
	}
	Success(c, report)
}
