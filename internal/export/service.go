package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/faaalmv/saf-gda/internal/orchestrator"
)

// Service produces XLSX workbooks from batch outcomes: one row per result
// plus a summary sheet with the batch metrics.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// BatchWorkbook builds the workbook in memory.
func (s *Service) BatchWorkbook(b orchestrator.Batch) (*excelize.File, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Results"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Job ID",
		"Status",
		"Worker",
		"Elapsed (s)",
		"Folio",
		"Folio From QR",
		"Total",
		"Purchase Order",
		"Issuer ID",
		"Issue Date",
		"Error",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range b.Results {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, r.JobID)
		write(2, string(r.Status))
		write(3, r.WorkerID)
		write(4, r.ElapsedSeconds)
		write(5, deref(r.Fields.Folio))
		write(6, r.Fields.FolioFromQR)
		write(7, deref(r.Fields.Total))
		write(8, deref(r.Fields.PurchaseOrder))
		write(9, deref(r.Fields.IssuerID))
		write(10, deref(r.Fields.IssueDate))
		write(11, deref(r.ErrorMessage))
		row++
	}

	const summary = "Summary"
	if _, err := f.NewSheet(summary); err != nil {
		return nil, err
	}
	summaryRows := [][]any{
		{"Batch ID", b.ID},
		{"Started At", b.StartedAt.Format(time.RFC3339)},
		{"OK", b.Metrics.OKCount},
		{"Failed", b.Metrics.FailCount},
		{"Total Elapsed (s)", b.Metrics.TotalElapsed},
		{"Average Latency (s)", b.Metrics.AverageLatency},
	}
	for i, pair := range summaryRows {
		for j, v := range pair {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+1)
			_ = f.SetCellValue(summary, cell, v)
		}
	}

	s.logger.Debug("workbook built", "batch_id", b.ID, "rows", len(b.Results), "duration_ms", time.Since(start).Milliseconds())
	return f, nil
}

// WriteBatchXLSX writes the workbook to path.
func (s *Service) WriteBatchXLSX(b orchestrator.Batch, path string) error {
	f, err := s.BatchWorkbook(b)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			s.logger.Warn("workbook close failed", "error", cerr)
		}
	}()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	s.logger.Info("batch exported", "batch_id", b.ID, "path", path)
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
