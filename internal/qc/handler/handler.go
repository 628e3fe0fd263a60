package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/saclworks/trialflow/internal/middleware"
	"github.com/saclworks/trialflow/internal/qc/repository"
	"github.com/saclworks/trialflow/internal/qc/service"
)

// Handlers 处理器集合
type Handlers struct {
	Auth       *AuthHandler
	Trial      *TrialHandler
	Progress   *ProgressHandler
	Inspection *InspectionHandler
	Master     *MasterHandler
	Report     *ReportHandler
	Document   *DocumentHandler
	Dashboard  *DashboardHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Auth:       NewAuthHandler(svc.Auth),
		Trial:      NewTrialHandler(svc.Trial),
		Progress:   NewProgressHandler(svc.Progress),
		Inspection: NewInspectionHandler(svc.Inspection),
		Master:     NewMasterHandler(svc.Master),
		Report:     NewReportHandler(svc.Report),
		Document:   NewDocumentHandler(svc.Document),
		Dashboard:  NewDashboardHandler(svc.Dashboard),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Pagination 分页信息
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// Unauthorized 未授权响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

// Forbidden 禁止访问响应
func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// Conflict 资源冲突响应
func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// GetActor 从上下文提取操作人
func GetActor(c *gin.Context) service.Actor {
	if v, exists := c.Get("claims"); exists {
		if claims, ok := v.(*middleware.JWTClaims); ok {
			return service.Actor{
				UserID:       claims.UserID,
				Username:     claims.Username,
				Name:         claims.Name,
				DepartmentID: claims.DepartmentID,
			}
		}
	}
	return service.Actor{}
}

// GetPagination 从请求获取分页参数
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

func newPagination(page, pageSize int, total int64) *Pagination {
	totalPages := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		totalPages++
	}
	return &Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}

// transitionError 统一映射流转引擎的业务错误
func transitionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, "试制卡或进度不存在")
	case errors.Is(err, service.ErrTrialClosed):
		BadRequest(c, "试制卡已关闭")
	case errors.Is(err, service.ErrNotPending):
		BadRequest(c, "进度不在待处理状态")
	case errors.Is(err, service.ErrNotAssignee):
		Forbidden(c, "当前进度未指派给该用户")
	case errors.Is(err, service.ErrNoUserForDepartment):
		BadRequest(c, "目标部门没有在职的承接用户")
	case errors.Is(err, service.ErrNoInitialDepartment):
		InternalError(c, "部门流转配置缺少首个部门")
	default:
		InternalError(c, "流转失败: "+err.Error())
	}
}
