package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/saclworks/trialflow/internal/qc/entity"
	"github.com/saclworks/trialflow/internal/qc/repository"
	"github.com/saclworks/trialflow/internal/shared/storage"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const reportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportService 试制报表生成与下载
// 终审时由流转引擎调用一次；生成 xlsx 工作簿上传对象存储并登记元数据
type ReportService struct {
	repos  *repository.Repositories
	store  *storage.Client
	logger *zap.Logger
}

func NewReportService(repos *repository.Repositories, store *storage.Client, logger *zap.Logger) *ReportService {
	return &ReportService{repos: repos, store: store, logger: logger}
}

// GenerateAndStore 生成试制卡汇总报表并持久化
// 终审事务内调用：所有读取与元数据写入都经由 tx，终审回滚时报表记录一并回滚
func (s *ReportService) GenerateAndStore(ctx context.Context, tx *gorm.DB, trialID, generatedBy string) error {
	repos := s.repos
	if tx != nil {
		repos = s.repos.WithTx(tx)
	}

	trial, err := repos.Trial.FindByID(ctx, trialID)
	if err != nil {
		return fmt.Errorf("查询试制卡失败: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := s.writeSummarySheet(ctx, repos, f, trial); err != nil {
		return err
	}
	if err := s.writeInspectionSheets(ctx, repos, f, trialID); err != nil {
		return err
	}
	if err := s.writeAuditSheet(ctx, repos, f, trialID); err != nil {
		return err
	}
	f.DeleteSheet("Sheet1")

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return fmt.Errorf("写入报表文件失败: %w", err)
	}

	objectKey := fmt.Sprintf("reports/%s.xlsx", trialID)
	size := int64(buf.Len())
	if err := s.store.Upload(ctx, objectKey, &buf, size, reportContentType); err != nil {
		return fmt.Errorf("上传报表失败: %w", err)
	}

	report := &entity.TrialReport{
		ID:          uuid.New().String()[:32],
		TrialID:     trialID,
		ObjectKey:   objectKey,
		SizeBytes:   size,
		GeneratedBy: generatedBy,
		GeneratedAt: time.Now(),
	}
	if err := repos.Report.SaveReport(ctx, report); err != nil {
		return fmt.Errorf("保存报表元数据失败: %w", err)
	}

	s.logger.Info("试制报表生成成功",
		zap.String("trial_id", trialID),
		zap.String("object_key", objectKey),
		zap.Int64("size_bytes", size))
	return nil
}

// Get 报表元数据
func (s *ReportService) Get(ctx context.Context, trialID string) (*entity.TrialReport, error) {
	return s.repos.Report.FindReportByTrial(ctx, trialID)
}

// Download 按试制卡号下载报表
func (s *ReportService) Download(ctx context.Context, trialID string) (*entity.TrialReport, []byte, error) {
	report, err := s.repos.Report.FindReportByTrial(ctx, trialID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Download(ctx, report.ObjectKey)
	if err != nil {
		return nil, nil, err
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, nil, fmt.Errorf("读取报表内容失败: %w", err)
	}
	return report, buf.Bytes(), nil
}

func (s *ReportService) writeSummarySheet(ctx context.Context, repos *repository.Repositories, f *excelize.File, trial *entity.Trial) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("创建汇总页失败: %w", err)
	}

	samplingDate := ""
	if trial.SamplingDate != nil {
		samplingDate = trial.SamplingDate.Format("2006-01-02")
	}
	rows := [][]interface{}{
		{"Trial ID", trial.ID},
		{"Trial No", trial.TrialNo},
		{"Part Name", trial.PartName},
		{"Pattern Code", trial.PatternCode},
		{"Material Grade", trial.MaterialGrade},
		{"Initiator", trial.Initiator},
		{"Sampling Date", samplingDate},
		{"Status", trial.Status},
		{"Generated At", time.Now().Format("2006-01-02 15:04:05")},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("写入汇总页失败: %w", err)
		}
	}

	counts, err := repos.Inspection.CountByTrial(ctx, trial.ID)
	if err != nil {
		return fmt.Errorf("统计检验记录失败: %w", err)
	}
	base := len(rows) + 2
	header := []interface{}{"Record Type", "Count"}
	cell, _ := excelize.CoordinatesToCellName(1, base)
	if err := f.SetSheetRow(sheet, cell, &header); err != nil {
		return fmt.Errorf("写入汇总页失败: %w", err)
	}
	i := 1
	for name, n := range counts {
		row := []interface{}{name, n}
		cell, _ := excelize.CoordinatesToCellName(1, base+i)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("写入汇总页失败: %w", err)
		}
		i++
	}
	return nil
}

func (s *ReportService) writeInspectionSheets(ctx context.Context, repos *repository.Repositories, f *excelize.File, trialID string) error {
	if err := s.writeSandSheet(ctx, repos, f, trialID); err != nil {
		return err
	}
	if err := s.writePouringSheet(ctx, repos, f, trialID); err != nil {
		return err
	}
	if err := s.writeMetallurgySheet(ctx, repos, f, trialID); err != nil {
		return err
	}
	return s.writeInspectionResultSheet(ctx, repos, f, trialID)
}

func (s *ReportService) writeSandSheet(ctx context.Context, repos *repository.Repositories, f *excelize.File, trialID string) error {
	const sheet = "Sand Lab"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header := []interface{}{"Moisture %", "Permeability", "GCS", "Compactability %", "Active Clay %", "LOI %", "GFN", "Submitted By", "Date"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	records, err := repos.Inspection.ListSandProperties(ctx, trialID)
	if err != nil {
		return err
	}
	for i, r := range records {
		row := []interface{}{r.MoisturePct, r.Permeability, r.GreenCompressionStrength, r.CompactabilityPct, r.ActiveClayPct, r.LossOnIgnitionPct, r.GrainFinenessNo, r.SubmittedBy, r.CreatedAt.Format("2006-01-02")}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func (s *ReportService) writePouringSheet(ctx context.Context, repos *repository.Repositories, f *excelize.File, trialID string) error {
	const sheet = "Pouring"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header := []interface{}{"Heat No", "Ladle No", "Temp (C)", "Time (s)", "Treatment", "Inoculant", "Submitted By", "Date"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	records, err := repos.Inspection.ListPouringRecords(ctx, trialID)
	if err != nil {
		return err
	}
	for i, r := range records {
		row := []interface{}{r.HeatNo, r.LadleNo, r.PouringTempC, r.PouringTimeSec, r.TreatmentType, r.InoculantAdded, r.SubmittedBy, r.CreatedAt.Format("2006-01-02")}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func (s *ReportService) writeMetallurgySheet(ctx context.Context, repos *repository.Repositories, f *excelize.File, trialID string) error {
	const sheet = "Metallurgy"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header := []interface{}{"Microstructure", "BHN", "Nodularity %", "Tensile (MPa)", "Elongation %", "Result", "Submitted By", "Date"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	records, err := repos.Inspection.ListMetallurgicalInspections(ctx, trialID)
	if err != nil {
		return err
	}
	for i, r := range records {
		row := []interface{}{r.Microstructure, r.HardnessBHN, r.NodularityPct, r.TensileStrengthMPa, r.ElongationPct, r.Result, r.SubmittedBy, r.CreatedAt.Format("2006-01-02")}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func (s *ReportService) writeInspectionResultSheet(ctx context.Context, repos *repository.Repositories, f *excelize.File, trialID string) error {
	const sheet = "Inspections"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header := []interface{}{"Stage", "Result", "Defects/Notes", "Submitted By", "Date"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	row := 2
	write := func(stage, result, notes, by string, at time.Time) error {
		line := []interface{}{stage, result, notes, by, at.Format("2006-01-02")}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		row++
		return f.SetSheetRow(sheet, cell, &line)
	}

	visuals, err := repos.Inspection.ListVisualInspections(ctx, trialID)
	if err != nil {
		return err
	}
	for _, r := range visuals {
		if err := write("Visual", r.Result, r.SurfaceDefects, r.SubmittedBy, r.CreatedAt); err != nil {
			return err
		}
	}

	dims, err := repos.Inspection.ListDimensionalInspections(ctx, trialID)
	if err != nil {
		return err
	}
	for _, r := range dims {
		if err := write("Dimensional", r.Result, r.DeviationNotes, r.SubmittedBy, r.CreatedAt); err != nil {
			return err
		}
	}

	machines, err := repos.Inspection.ListMachineShopRecords(ctx, trialID)
	if err != nil {
		return err
	}
	for _, r := range machines {
		if err := write("Machine Shop", r.Result, r.MachiningDefects, r.SubmittedBy, r.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

func (s *ReportService) writeAuditSheet(ctx context.Context, repos *repository.Repositories, f *excelize.File, trialID string) error {
	const sheet = "Audit Trail"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header := []interface{}{"Time", "User", "Department", "Action", "Remarks"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	logs, err := repos.AuditLog.ListByTrial(ctx, trialID)
	if err != nil {
		return fmt.Errorf("查询审计记录失败: %w", err)
	}
	for i, l := range logs {
		row := []interface{}{l.CreatedAt.Format("2006-01-02 15:04:05"), l.UserID, l.DepartmentID, l.Action, l.Remarks}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
