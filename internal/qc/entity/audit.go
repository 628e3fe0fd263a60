package entity

import "time"

// AuditLog 操作审计日志
// 只增不改：每次状态迁移写入一行，是试制卡生命周期的权威历史
type AuditLog struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	UserID       string    `json:"user_id" gorm:"size:32;index"`
	DepartmentID string    `json:"department_id" gorm:"size:32"`
	TrialID      string    `json:"trial_id" gorm:"size:64;index"`
	Action       string    `json:"action" gorm:"size:64;not null"`
	Remarks      string    `json:"remarks" gorm:"size:500"`
	CreatedAt    time.Time `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// 审计动作标签（封闭枚举）
const (
	ActionProgressAdded     = "Department progress added"
	ActionProgressUpdated   = "Department progress updated"
	ActionProgressCompleted = "Department progress completed"
	ActionProgressApproved  = "Department progress approved"
	ActionProgressRejected  = "Department progress rejected"

	ActionTrialCreated  = "Trial created"
	ActionTrialUpdated  = "Trial updated"
	ActionTrialDeleted  = "Trial deleted"
	ActionTrialRestored = "Trial restored"

	ActionUserCreated = "User created"
	ActionUserDeleted = "User deleted"

	ActionDocumentUploaded = "Document uploaded"
	ActionReportGenerated  = "Report generated"
)
