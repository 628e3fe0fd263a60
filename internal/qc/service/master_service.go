package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/saclworks/trialflow/internal/qc/entity"
	"github.com/saclworks/trialflow/internal/qc/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUsernameTaken 用户名已存在
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidRole 角色不在枚举内
	ErrInvalidRole = errors.New("invalid role")
)

// MasterService 主数据管理：用户、部门、流转顺序
type MasterService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewMasterService(repos *repository.Repositories, logger *zap.Logger) *MasterService {
	return &MasterService{repos: repos, logger: logger}
}

// CreateUserRequest 创建用户请求
type CreateUserRequest struct {
	Username     string `json:"username" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=8"`
	DepartmentID string `json:"department_id" binding:"required"`
	Role         string `json:"role" binding:"required"`
}

// CreateUser 创建用户（管理端）
func (s *MasterService) CreateUser(ctx context.Context, req *CreateUserRequest, actor Actor) (*entity.User, error) {
	switch req.Role {
	case entity.RoleUser, entity.RoleHOD, entity.RoleAdmin:
	default:
		return nil, ErrInvalidRole
	}

	if _, err := s.repos.User.FindByUsername(ctx, req.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("检查用户名失败: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("密码加密失败: %w", err)
	}

	user := &entity.User{
		ID:           uuid.New().String()[:32],
		Username:     req.Username,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		DepartmentID: req.DepartmentID,
		Role:         req.Role,
		IsActive:     true,
	}
	if err := s.repos.User.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}

	s.repos.AuditLog.RecordAsync(actor.UserID, actor.DepartmentID, "",
		entity.ActionUserCreated, fmt.Sprintf("User %s created with role %s", user.Username, user.Role))
	return user, nil
}

// DeactivateUser 停用用户
func (s *MasterService) DeactivateUser(ctx context.Context, id string, actor Actor) error {
	user, err := s.repos.User.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repos.User.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("停用用户失败: %w", err)
	}
	s.repos.AuditLog.RecordAsync(actor.UserID, actor.DepartmentID, "",
		entity.ActionUserDeleted, fmt.Sprintf("User %s deactivated", user.Username))
	return nil
}

// ListUsers 分页查询用户
func (s *MasterService) ListUsers(ctx context.Context, departmentID string, page, pageSize int) ([]entity.User, int64, error) {
	return s.repos.User.List(ctx, departmentID, page, pageSize)
}

// ListDepartments 全部部门
func (s *MasterService) ListDepartments(ctx context.Context) ([]entity.Department, error) {
	return s.repos.Flow.ListDepartments(ctx)
}

// CreateDepartment 新建部门
func (s *MasterService) CreateDepartment(ctx context.Context, code, name string) (*entity.Department, error) {
	department := &entity.Department{
		ID:   uuid.New().String()[:32],
		Code: code,
		Name: name,
	}
	if err := s.repos.Flow.CreateDepartment(ctx, department); err != nil {
		return nil, fmt.Errorf("创建部门失败: %w", err)
	}
	return department, nil
}

// ListFlow 流转顺序（含部门信息）
func (s *MasterService) ListFlow(ctx context.Context) ([]entity.DepartmentFlow, error) {
	return s.repos.Flow.ListOrdered(ctx)
}

// AddFlowNode 追加流转节点，随即重新校验整条配置
func (s *MasterService) AddFlowNode(ctx context.Context, departmentID string, sequenceNo int) (*entity.DepartmentFlow, error) {
	if _, err := s.repos.Flow.FindDepartment(ctx, departmentID); err != nil {
		return nil, err
	}
	flow := &entity.DepartmentFlow{
		ID:           uuid.New().String()[:32],
		DepartmentID: departmentID,
		SequenceNo:   sequenceNo,
	}
	if err := s.repos.Flow.CreateNode(ctx, flow); err != nil {
		return nil, fmt.Errorf("创建流转节点失败: %w", err)
	}
	if err := s.repos.Flow.Validate(ctx); err != nil {
		return nil, err
	}
	return flow, nil
}
