package entity

import "time"

// TrialReport 试制卡终审报告快照
// 终审通过时生成一次，对象存储中保存xlsx文件
type TrialReport struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	TrialID     string    `json:"trial_id" gorm:"size:64;uniqueIndex;not null"`
	ObjectKey   string    `json:"object_key" gorm:"size:256;not null"`
	SizeBytes   int64     `json:"size_bytes"`
	GeneratedBy string    `json:"generated_by" gorm:"size:64"`
	GeneratedAt time.Time `json:"generated_at"`
}

func (TrialReport) TableName() string {
	return "trial_reports"
}

// TrialDocument 试制卡附件（图纸、照片等，base64上传）
type TrialDocument struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	TrialID     string    `json:"trial_id" gorm:"size:64;index;not null"`
	FileName    string    `json:"file_name" gorm:"size:256;not null"`
	ObjectKey   string    `json:"object_key" gorm:"size:512;not null"`
	ContentType string    `json:"content_type" gorm:"size:128"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedBy  string    `json:"uploaded_by" gorm:"size:64"`
	CreatedAt   time.Time `json:"created_at"`
}

func (TrialDocument) TableName() string {
	return "trial_documents"
}
