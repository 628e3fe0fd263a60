package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/saclworks/trialflow/internal/qc/entity"
	"github.com/saclworks/trialflow/internal/qc/repository"
	"github.com/saclworks/trialflow/internal/shared/storage"
	"go.uber.org/zap"
)

var (
	// ErrEmptyDocument 文档内容为空
	ErrEmptyDocument = errors.New("document payload is empty")
	// ErrDocumentTooLarge 文档超出大小限制
	ErrDocumentTooLarge = errors.New("document exceeds size limit")
)

// 单个附件大小上限 20MB
const maxDocumentSize = 20 << 20

// DocumentService 试制卡附件服务
// 前端以 base64 上传，解码后存对象存储，元数据落库
type DocumentService struct {
	repos  *repository.Repositories
	store  *storage.Client
	logger *zap.Logger
}

func NewDocumentService(repos *repository.Repositories, store *storage.Client, logger *zap.Logger) *DocumentService {
	return &DocumentService{repos: repos, store: store, logger: logger}
}

// UploadDocumentRequest 附件上传请求
type UploadDocumentRequest struct {
	TrialID     string `json:"trial_id" binding:"required"`
	FileName    string `json:"file_name" binding:"required"`
	ContentType string `json:"content_type"`
	// Payload base64 编码的文件内容，允许带 data URI 前缀
	Payload string `json:"payload" binding:"required"`
}

// Upload 解码并上传附件
func (s *DocumentService) Upload(ctx context.Context, req *UploadDocumentRequest, actor Actor) (*entity.TrialDocument, error) {
	if _, err := s.repos.Trial.FindByID(ctx, req.TrialID); err != nil {
		return nil, err
	}

	payload := req.Payload
	if idx := strings.Index(payload, ";base64,"); idx >= 0 {
		payload = payload[idx+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("base64 解码失败: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}
	if len(data) > maxDocumentSize {
		return nil, ErrDocumentTooLarge
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	docID := uuid.New().String()[:32]
	objectKey := fmt.Sprintf("trials/%s/%s_%s", req.TrialID, docID, req.FileName)
	if err := s.store.Upload(ctx, objectKey, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return nil, fmt.Errorf("上传附件失败: %w", err)
	}

	doc := &entity.TrialDocument{
		ID:          docID,
		TrialID:     req.TrialID,
		FileName:    req.FileName,
		ObjectKey:   objectKey,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		UploadedBy:  actor.Username,
	}
	if err := s.repos.Report.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("保存附件元数据失败: %w", err)
	}

	s.repos.AuditLog.RecordAsync(actor.UserID, actor.DepartmentID, req.TrialID,
		entity.ActionDocumentUploaded, fmt.Sprintf("Document %s uploaded by %s", req.FileName, actor.Username))
	return doc, nil
}

// List 试制卡附件列表
func (s *DocumentService) List(ctx context.Context, trialID string) ([]entity.TrialDocument, error) {
	return s.repos.Report.ListDocumentsByTrial(ctx, trialID)
}

// Download 下载附件
func (s *DocumentService) Download(ctx context.Context, docID string) (*entity.TrialDocument, []byte, error) {
	doc, err := s.repos.Report.FindDocumentByID(ctx, docID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Download(ctx, doc.ObjectKey)
	if err != nil {
		return nil, nil, err
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, nil, fmt.Errorf("读取附件内容失败: %w", err)
	}
	return doc, buf.Bytes(), nil
}

// Delete 删除附件（对象存储删除失败只记日志，元数据为准）
func (s *DocumentService) Delete(ctx context.Context, docID string, actor Actor) error {
	doc, err := s.repos.Report.FindDocumentByID(ctx, docID)
	if err != nil {
		return err
	}
	if err := s.repos.Report.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("删除附件元数据失败: %w", err)
	}
	if err := s.store.Remove(ctx, doc.ObjectKey); err != nil {
		s.logger.Warn("删除附件对象失败",
			zap.String("object_key", doc.ObjectKey),
			zap.Error(err))
	}
	return nil
}
