package entity

import "time"

// Department 部门主数据
type Department struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Code      string    `json:"code" gorm:"size:32;uniqueIndex"`
	Name      string    `json:"name" gorm:"size:128;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Department) TableName() string {
	return "departments"
}

// DepartmentFlow 部门流转顺序模板
// sequence_no 为全局顺序号，引擎按其升序推进试制卡；只读配置数据
type DepartmentFlow struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	DepartmentID string    `json:"department_id" gorm:"size:32;uniqueIndex;not null"`
	SequenceNo   int       `json:"sequence_no" gorm:"uniqueIndex;not null"`
	CreatedAt    time.Time `json:"created_at"`

	Department *Department `json:"department,omitempty" gorm:"foreignKey:DepartmentID"`
}

func (DepartmentFlow) TableName() string {
	return "department_flows"
}

// DepartmentProgress 试制卡的流转令牌
// 每张未关闭的试制卡恰有一行，指向"当前必须行动的人"；
// 交接时原地改写，历史由 audit_logs 重建
type DepartmentProgress struct {
	ID             string     `json:"id" gorm:"primaryKey;size:32"`
	TrialID        string     `json:"trial_id" gorm:"size:64;uniqueIndex;not null"`
	DepartmentID   string     `json:"department_id" gorm:"size:32;index;not null"`
	Username       string     `json:"username" gorm:"size:64;not null"`
	ApprovalStatus string     `json:"approval_status" gorm:"size:20;not null;default:pending"` // pending/approved
	Remarks        string     `json:"remarks" gorm:"size:200"`
	CompletedAt    *time.Time `json:"completed_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// 关联查询填充
	DepartmentName string `json:"department_name,omitempty" gorm:"-"`
	PartName       string `json:"part_name,omitempty" gorm:"-"`
}

func (DepartmentProgress) TableName() string {
	return "department_progresses"
}

// 流转令牌审批状态
const (
	ApprovalStatusPending  = "pending"
	ApprovalStatusApproved = "approved"
)

// 流转令牌子状态备注（随令牌展示给前端）
const (
	RemarkUserSubmissionPending = "User submission pending"
	RemarkHODApprovalPending    = "HOD approval pending"
)
