package repository

import (
	"context"
	"errors"

	"github.com/saclworks/trialflow/internal/qc/entity"
	"gorm.io/gorm"
)

// UserRepository 用户仓库
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).
		Preload("Department").
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).
		Preload("Department").
		Where("username = ?", username).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindActiveUser 部门内一个在职的普通用户（进度指派目标）
func (r *UserRepository) FindActiveUser(ctx context.Context, departmentID string) (*entity.User, error) {
	return r.findActiveByRole(ctx, departmentID, entity.RoleUser)
}

// FindActiveHOD 部门内一个在职的部门负责人（审批指派目标）
func (r *UserRepository) FindActiveHOD(ctx context.Context, departmentID string) (*entity.User, error) {
	return r.findActiveByRole(ctx, departmentID, entity.RoleHOD)
}

func (r *UserRepository) findActiveByRole(ctx context.Context, departmentID, role string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).
		Where("department_id = ? AND role = ? AND is_active = ?", departmentID, role, true).
		Order("created_at ASC").
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *UserRepository) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	return r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("username = ?", username).
		Update("password_hash", passwordHash).Error
}

// Deactivate 停用用户（不做物理删除，保留审计线索）
func (r *UserRepository) Deactivate(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

func (r *UserRepository) List(ctx context.Context, departmentID string, page, pageSize int) ([]entity.User, int64, error) {
	var users []entity.User
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.User{})
	if departmentID != "" {
		query = query.Where("department_id = ?", departmentID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Department").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users).Error
	return users, total, err
}
