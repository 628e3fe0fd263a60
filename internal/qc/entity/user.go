package entity

import (
	"time"
)

// User 用户实体
type User struct {
	ID           string     `json:"id" gorm:"primaryKey;size:32"`
	Username     string     `json:"username" gorm:"size:64;not null;uniqueIndex"`
	Name         string     `json:"name" gorm:"size:64;not null"`
	Email        string     `json:"email" gorm:"size:128;uniqueIndex"`
	PasswordHash string     `json:"-" gorm:"size:128;not null"`
	DepartmentID string     `json:"department_id" gorm:"size:32;index"`
	Role         string     `json:"role" gorm:"size:16;not null;default:User"` // User/HOD/Admin
	IsActive     bool       `json:"is_active" gorm:"not null;default:true"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// 关联
	Department *Department `json:"department,omitempty" gorm:"foreignKey:DepartmentID"`
}

func (User) TableName() string {
	return "users"
}

// 用户角色
const (
	RoleUser  = "User"  // 部门录入员
	RoleHOD   = "HOD"   // 部门主管（审批人）
	RoleAdmin = "Admin" // 系统管理员
)
