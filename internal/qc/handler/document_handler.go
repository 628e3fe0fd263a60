package handler

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/saclworks/trialflow/internal/qc/repository"
	"github.com/saclworks/trialflow/internal/qc/service"
)

// DocumentHandler 试制卡附件处理器
type DocumentHandler struct {
	svc *service.DocumentService
}

func NewDocumentHandler(svc *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

// Upload 上传附件（base64 编码）
// POST /api/v1/documents
func (h *DocumentHandler) Upload(c *gin.Context) {
	var req service.UploadDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	doc, err := h.svc.Upload(c.Request.Context(), &req, GetActor(c))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "试制卡不存在")
		case errors.Is(err, service.ErrEmptyDocument):
			BadRequest(c, "文档内容为空")
		case errors.Is(err, service.ErrDocumentTooLarge):
			BadRequest(c, "文档超出大小限制")
		default:
			InternalError(c, "上传附件失败: "+err.Error())
		}
		return
	}
	Created(c, doc)
}

// List 试制卡附件列表
// GET /api/v1/documents/trial/:trial_id
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.svc.List(c.Request.Context(), c.Param("trial_id"))
	if err != nil {
		InternalError(c, "查询附件列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": docs})
}

// Download 下载附件
// GET /api/v1/documents/:id/download
func (h *DocumentHandler) Download(c *gin.Context) {
	doc, data, err := h.svc.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "附件不存在")
			return
		}
		InternalError(c, "下载附件失败: "+err.Error())
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, doc.FileName))
	c.Data(200, doc.ContentType, data)
}

// Delete 删除附件
// DELETE /api/v1/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), GetActor(c)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "附件不存在")
			return
		}
		InternalError(c, "删除附件失败: "+err.Error())
		return
	}
	Success(c, nil)
}
