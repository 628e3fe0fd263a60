package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/saclworks/trialflow/internal/qc/service"
)

// DashboardHandler 仪表盘处理器
type DashboardHandler struct {
	svc *service.DashboardService
}

func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// Stats 总览统计
// GET /api/v1/dashboard/stats
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		InternalError(c, "查询统计数据失败: "+err.Error())
		return
	}
	Success(c, stats)
}
