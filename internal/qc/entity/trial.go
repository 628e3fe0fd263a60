package entity

import (
	"time"

	"gorm.io/gorm"
)

// Trial 试制卡 —— 一次铸件试制/送样的全程跟踪载体
// ID 为人工编制的试制卡编号，全局唯一
type Trial struct {
	ID                  string         `json:"trial_id" gorm:"primaryKey;size:64"`
	TrialNo             string         `json:"trial_no" gorm:"size:64"`
	PartName            string         `json:"part_name" gorm:"size:200;not null"`
	PatternCode         string         `json:"pattern_code" gorm:"size:64"`
	MaterialGrade       string         `json:"material_grade" gorm:"size:64"`
	Initiator           string         `json:"initiator" gorm:"size:64"`
	SamplingDate        *time.Time     `json:"sampling_date"`
	Status              string         `json:"status" gorm:"size:20;not null;default:CREATED"` // CREATED/IN_PROGRESS/CLOSED
	CurrentDepartmentID string         `json:"current_department_id" gorm:"size:32;index"`
	CreatedBy           string         `json:"created_by" gorm:"size:64"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `json:"-" gorm:"index"`

	// 关联查询填充
	CurrentDepartmentName string `json:"current_department_name,omitempty" gorm:"-"`
}

func (Trial) TableName() string {
	return "trials"
}

// 试制卡状态
const (
	TrialStatusCreated    = "CREATED"     // 已建卡，流程未推进
	TrialStatusInProgress = "IN_PROGRESS" // 部门流转中
	TrialStatusClosed     = "CLOSED"      // 终审通过，已关闭
)
