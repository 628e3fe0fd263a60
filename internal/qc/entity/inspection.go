package entity

import "time"

// 各部门检验记录实体
// 每张表对应一个部门阶段的数据录入表单；录入完成后由检验服务
// 触发流转引擎的"用户提交完成"迁移

// SandProperty 砂实验室检测记录
type SandProperty struct {
	ID                       string    `json:"id" gorm:"primaryKey;size:32"`
	TrialID                  string    `json:"trial_id" gorm:"size:64;index;not null"`
	MoisturePct              float64   `json:"moisture_pct"`
	Permeability             float64   `json:"permeability"`
	GreenCompressionStrength float64   `json:"green_compression_strength"` // g/cm2
	CompactabilityPct        float64   `json:"compactability_pct"`
	ActiveClayPct            float64   `json:"active_clay_pct"`
	LossOnIgnitionPct        float64   `json:"loss_on_ignition_pct"`
	GrainFinenessNo          float64   `json:"grain_fineness_no"`
	Remarks                  string    `json:"remarks" gorm:"size:500"`
	SubmittedBy              string    `json:"submitted_by" gorm:"size:64"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

func (SandProperty) TableName() string {
	return "qc_sand_properties"
}

// MouldingRecord 造型记录
type MouldingRecord struct {
	ID            string    `json:"id" gorm:"primaryKey;size:32"`
	TrialID       string    `json:"trial_id" gorm:"size:64;index;not null"`
	MouldType     string    `json:"mould_type" gorm:"size:64"`
	MouldHardness float64   `json:"mould_hardness"`
	NoOfMoulds    int       `json:"no_of_moulds"`
	CoreUsed      bool      `json:"core_used"`
	CoreDetails   string    `json:"core_details" gorm:"size:200"`
	Remarks       string    `json:"remarks" gorm:"size:500"`
	SubmittedBy   string    `json:"submitted_by" gorm:"size:64"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (MouldingRecord) TableName() string {
	return "qc_moulding_records"
}

// MouldCorrection 模具修正记录
type MouldCorrection struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	TrialID     string    `json:"trial_id" gorm:"size:64;index;not null"`
	Details     string    `json:"details" gorm:"size:1000;not null"`
	CorrectedBy string    `json:"corrected_by" gorm:"size:64"`
	SubmittedBy string    `json:"submitted_by" gorm:"size:64"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (MouldCorrection) TableName() string {
	return "qc_mould_corrections"
}

// PouringRecord 浇注记录
type PouringRecord struct {
	ID             string    `json:"id" gorm:"primaryKey;size:32"`
	TrialID        string    `json:"trial_id" gorm:"size:64;index;not null"`
	HeatNo         string    `json:"heat_no" gorm:"size:64"`
	LadleNo        string    `json:"ladle_no" gorm:"size:32"`
	PouringTempC   float64   `json:"pouring_temp_c"`
	PouringTimeSec float64   `json:"pouring_time_sec"`
	TreatmentType  string    `json:"treatment_type" gorm:"size:64"`
	InoculantAdded string    `json:"inoculant_added" gorm:"size:128"`
	Remarks        string    `json:"remarks" gorm:"size:500"`
	SubmittedBy    string    `json:"submitted_by" gorm:"size:64"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (PouringRecord) TableName() string {
	return "qc_pouring_records"
}

// VisualInspection 外观检验记录
type VisualInspection struct {
	ID             string    `json:"id" gorm:"primaryKey;size:32"`
	TrialID        string    `json:"trial_id" gorm:"size:64;index;not null"`
	SurfaceDefects string    `json:"surface_defects" gorm:"size:500"`
	BlowHoles      bool      `json:"blow_holes"`
	Shrinkage      bool      `json:"shrinkage"`
	SandInclusion  bool      `json:"sand_inclusion"`
	Result         string    `json:"result" gorm:"size:16"` // pass/fail
	Remarks        string    `json:"remarks" gorm:"size:500"`
	SubmittedBy    string    `json:"submitted_by" gorm:"size:64"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (VisualInspection) TableName() string {
	return "qc_visual_inspections"
}

// DimensionalInspection 尺寸检验记录
type DimensionalInspection struct {
	ID             string    `json:"id" gorm:"primaryKey;size:32"`
	TrialID        string    `json:"trial_id" gorm:"size:64;index;not null"`
	DrawingNo      string    `json:"drawing_no" gorm:"size:64"`
	MeasuredValues string    `json:"measured_values" gorm:"type:text"`
	DeviationNotes string    `json:"deviation_notes" gorm:"size:1000"`
	Result         string    `json:"result" gorm:"size:16"`
	Remarks        string    `json:"remarks" gorm:"size:500"`
	SubmittedBy    string    `json:"submitted_by" gorm:"size:64"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (DimensionalInspection) TableName() string {
	return "qc_dimensional_inspections"
}

// MetallurgicalInspection 金相/理化检验记录
type MetallurgicalInspection struct {
	ID                 string    `json:"id" gorm:"primaryKey;size:32"`
	TrialID            string    `json:"trial_id" gorm:"size:64;index;not null"`
	Microstructure     string    `json:"microstructure" gorm:"size:500"`
	HardnessBHN        float64   `json:"hardness_bhn"`
	NodularityPct      float64   `json:"nodularity_pct"`
	TensileStrengthMPa float64   `json:"tensile_strength_mpa"`
	ElongationPct      float64   `json:"elongation_pct"`
	Result             string    `json:"result" gorm:"size:16"`
	Remarks            string    `json:"remarks" gorm:"size:500"`
	SubmittedBy        string    `json:"submitted_by" gorm:"size:64"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (MetallurgicalInspection) TableName() string {
	return "qc_metallurgical_inspections"
}

// MaterialCorrection 材质修正记录
type MaterialCorrection struct {
	ID              string    `json:"id" gorm:"primaryKey;size:32"`
	TrialID         string    `json:"trial_id" gorm:"size:64;index;not null"`
	ElementAdjusted string    `json:"element_adjusted" gorm:"size:64"`
	Details         string    `json:"details" gorm:"size:1000;not null"`
	SubmittedBy     string    `json:"submitted_by" gorm:"size:64"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (MaterialCorrection) TableName() string {
	return "qc_material_corrections"
}

// MachineShopRecord 机加工检验记录
type MachineShopRecord struct {
	ID               string    `json:"id" gorm:"primaryKey;size:32"`
	TrialID          string    `json:"trial_id" gorm:"size:64;index;not null"`
	Operations       string    `json:"operations" gorm:"size:500"`
	MachiningDefects string    `json:"machining_defects" gorm:"size:500"`
	Result           string    `json:"result" gorm:"size:16"`
	Remarks          string    `json:"remarks" gorm:"size:500"`
	SubmittedBy      string    `json:"submitted_by" gorm:"size:64"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (MachineShopRecord) TableName() string {
	return "qc_machine_shop_records"
}

// 检验结果
const (
	InspectionResultPass = "pass"
	InspectionResultFail = "fail"
)
