package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"downtime-tracker-backend/internal/report"
)

// BuildReportXLSX renders a report as a workbook with summary, equipment
// and pareto sheets.
func BuildReportXLSX(res *report.Result) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	equipmentSheet := "equipment"
	paretoSheet := "pareto"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(equipmentSheet)
	f.NewSheet(paretoSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Downtime Report")
	_ = f.SetCellValue(summarySheet, "A3", "Window Start")
	_ = f.SetCellValue(summarySheet, "B3", res.WindowStart.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A4", "Window End")
	_ = f.SetCellValue(summarySheet, "B4", res.WindowEnd.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A5", "Generated")
	_ = f.SetCellValue(summarySheet, "B5", res.GeneratedAt.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A6", "Category")
	_ = f.SetCellValue(summarySheet, "B6", categoryLabel(res.Category))
	_ = f.SetCellValue(summarySheet, "A8", "Equipment Count")
	_ = f.SetCellValue(summarySheet, "B8", res.Summary.EquipmentCount)
	_ = f.SetCellValue(summarySheet, "A9", "Event Count")
	_ = f.SetCellValue(summarySheet, "B9", res.Summary.EventCount)
	_ = f.SetCellValue(summarySheet, "A10", "Downtime (days)")
	_ = f.SetCellValue(summarySheet, "B10", res.Summary.DowntimeDays)
	_ = f.SetCellValue(summarySheet, "A11", "Availability (%)")
	_ = f.SetCellValue(summarySheet, "B11", res.Summary.AvailabilityPct)
	_ = f.SetCellValue(summarySheet, "A12", "MTTR (h)")
	_ = f.SetCellValue(summarySheet, "B12", res.Summary.MTTRHours)
	_ = f.SetCellValue(summarySheet, "A13", "MTBF (h)")
	_ = f.SetCellValue(summarySheet, "B13", res.Summary.MTBFHours)

	headers := []string{"Asset", "Description", "Department", "Events", "Downtime (days)", "Availability (%)", "MTTR (h)", "MTBF (h)"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(equipmentSheet, cell, h)
	}
	for i, m := range res.Equipment {
		row := i + 2
		_ = f.SetCellValue(equipmentSheet, fmt.Sprintf("A%d", row), m.AssetNumber)
		_ = f.SetCellValue(equipmentSheet, fmt.Sprintf("B%d", row), m.Description)
		_ = f.SetCellValue(equipmentSheet, fmt.Sprintf("C%d", row), m.DepartmentCode)
		_ = f.SetCellValue(equipmentSheet, fmt.Sprintf("D%d", row), m.EventCount)
		_ = f.SetCellValue(equipmentSheet, fmt.Sprintf("E%d", row), m.DowntimeDays)
		_ = f.SetCellValue(equipmentSheet, fmt.Sprintf("F%d", row), m.AvailabilityPct)
		_ = f.SetCellValue(equipmentSheet, fmt.Sprintf("G%d", row), m.MTTRHours)
		_ = f.SetCellValue(equipmentSheet, fmt.Sprintf("H%d", row), m.MTBFHours)
	}

	_ = f.SetCellValue(paretoSheet, "A1", "Asset")
	_ = f.SetCellValue(paretoSheet, "B1", "Downtime (days)")
	_ = f.SetCellValue(paretoSheet, "C1", "Events")
	_ = f.SetCellValue(paretoSheet, "D1", "Cumulative (%)")
	for i, e := range res.Pareto {
		row := i + 2
		_ = f.SetCellValue(paretoSheet, fmt.Sprintf("A%d", row), e.AssetNumber)
		_ = f.SetCellValue(paretoSheet, fmt.Sprintf("B%d", row), e.DowntimeDays)
		_ = f.SetCellValue(paretoSheet, fmt.Sprintf("C%d", row), e.EventCount)
		_ = f.SetCellValue(paretoSheet, fmt.Sprintf("D%d", row), e.CumulativePct)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildReportPDF renders a minimal PDF version of a report.
func BuildReportPDF(res *report.Result) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Downtime Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Window: %s - %s",
		res.WindowStart.Format("2006-01-02"), res.WindowEnd.Format("2006-01-02")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Category: %s", categoryLabel(res.Category)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", res.GeneratedAt.Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.Cell(0, 6, fmt.Sprintf("Equipment: %d  Events: %d  Downtime: %.3f days",
		res.Summary.EquipmentCount, res.Summary.EventCount, res.Summary.DowntimeDays))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Availability: %.2f%%  MTTR: %.2fh  MTBF: %.2fh",
		res.Summary.AvailabilityPct, res.Summary.MTTRHours, res.Summary.MTBFHours))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(35, 6, "Asset", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Events", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Downtime (d)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Avail (%)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "MTTR (h)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "MTBF (h)", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, m := range res.Equipment {
		pdf.CellFormat(35, 6, m.AssetNumber, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, strconv.Itoa(m.EventCount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.3f", m.DowntimeDays), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.2f", m.AvailabilityPct), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", m.MTTRHours), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", m.MTBFHours), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildReportCSV renders the per-equipment rows as CSV.
func BuildReportCSV(res *report.Result) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"asset_number", "description", "department", "event_count",
		"downtime_days", "downtime_hours", "availability_pct", "mttr_hours", "mtbf_hours"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, m := range res.Equipment {
		rec := []string{
			m.AssetNumber,
			m.Description,
			m.DepartmentCode,
			strconv.Itoa(m.EventCount),
			strconv.FormatFloat(m.DowntimeDays, 'f', 3, 64),
			strconv.FormatFloat(m.DowntimeHours, 'f', 2, 64),
			strconv.FormatFloat(m.AvailabilityPct, 'f', 2, 64),
			strconv.FormatFloat(m.MTTRHours, 'f', 2, 64),
			strconv.FormatFloat(m.MTBFHours, 'f', 2, 64),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func categoryLabel(c string) string {
	if c == "" {
		return "ALL"
	}
	return c
}
