package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/medscan/constants"
	"github.com/joseph-ayodele/medscan/internal/repository"
)

const (
	LabSheet        = "Lab"
	MedicationSheet = "Medication"

	// shown in the date column when the reviewer still has to supply one
	needsDate = "NEEDS DATE"
)

var (
	labHeaders = []string{
		"Proposal ID", "Status", "Source File", "Collected On",
		"Analyte", "Value", "Unit", "Tier", "Source Line", "Report Confidence",
	}
	medicationHeaders = []string{
		"Proposal ID", "Status", "Source File", "Medication", "Strength", "Directions",
		"Pharmacy", "Pharmacy Phone", "Rx Number", "NDC", "Quantity", "Refills",
		"Fill Date", "Patient", "Prescriber", "Confidence",
	}
)

// Service produces review workbooks from stored proposals.
type Service struct {
	repo   repository.ProposalRepository
	logger *slog.Logger
}

func NewService(repo repository.ProposalRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ExportStatusXLSX exports every proposal in the given status.
func (s *Service) ExportStatusXLSX(ctx context.Context, status constants.ReviewStatus) ([]byte, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("export: no repository configured")
	}
	proposals, err := s.repo.ListByStatus(ctx, status, 0)
	if err != nil {
		return nil, fmt.Errorf("query proposals: %w", err)
	}
	return s.ExportXLSX(ctx, proposals)
}

// ExportXLSX returns an XLSX workbook (as bytes) with one Lab row per
// candidate value and one Medication row per label.
func (s *Service) ExportXLSX(ctx context.Context, proposals []*repository.Proposal) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", LabSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(MedicationSheet); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := writeHeader(f, LabSheet, labHeaders, bold); err != nil {
		return nil, err
	}
	if err := writeHeader(f, MedicationSheet, medicationHeaders, bold); err != nil {
		return nil, err
	}

	labRow, medRow := 2, 2
	for _, p := range proposals {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch {
		case p.Lab != nil:
			date := needsDate
			if p.Lab.DetectedDate != nil {
				date = *p.Lab.DetectedDate
			}
			for _, c := range p.Lab.Candidates {
				writeRow(f, LabSheet, labRow,
					p.ID, string(p.Status), p.SourcePath, date,
					c.DisplayName, c.Value, deref(c.Unit), string(c.ConfidenceTier),
					truncate(c.SourceLine, 140), string(p.Lab.Confidence))
				labRow++
			}
		case p.Medication != nil:
			m := p.Medication
			writeRow(f, MedicationSheet, medRow,
				p.ID, string(p.Status), p.SourcePath, deref(m.DisplayName), deref(m.Strength),
				truncate(deref(m.Directions), 200), deref(m.Pharmacy), deref(m.PharmacyPhone),
				deref(m.RxNumber), deref(m.NDC), intCell(m.Quantity), intCell(m.Refills),
				deref(m.FillDate), deref(m.PatientName), deref(m.Prescriber), string(m.Confidence))
			medRow++
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(LabSheet, "A", "A", 38) // id
	_ = f.SetColWidth(LabSheet, "C", "C", 40) // path
	_ = f.SetColWidth(LabSheet, "D", "E", 18)
	_ = f.SetColWidth(LabSheet, "I", "I", 48) // source line
	_ = f.SetColWidth(MedicationSheet, "A", "A", 38)
	_ = f.SetColWidth(MedicationSheet, "C", "D", 32)
	_ = f.SetColWidth(MedicationSheet, "F", "F", 48) // directions

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"proposals", len(proposals),
		"lab_rows", labRow-2,
		"medication_rows", medRow-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// intCell leaves the cell blank for a missing count.
func intCell(n *int) any {
	if n == nil {
		return ""
	}
	return *n
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
