package export

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docbatch/constants"
	"github.com/joseph-ayodele/docbatch/internal/entity"
	"github.com/joseph-ayodele/docbatch/internal/report"
)

const (
	sheetSummary = "Summary"
	sheetResults = "Results"
	sheetData    = "Data"
	sheetErrors  = "Errors"

	// excel rejects cells longer than 32767 characters
	maxCellChars    = 32000
	maxContentChars = 500
)

// ExcelAdapter writes a workbook with Summary, Results, Data and Errors sheets.
type ExcelAdapter struct{}

func (ExcelAdapter) Format() constants.ExportFormat { return constants.FormatExcel }
func (ExcelAdapter) Extension() string              { return "xlsx" }
func (ExcelAdapter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (ExcelAdapter) Serialize(r *entity.Report) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, err
	}
	for _, name := range []string{sheetResults, sheetData, sheetErrors} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	writeSummary(f, r, bold)
	writeResults(f, r, bold)
	writeData(f, r, bold)
	writeErrors(f, r, bold)

	idx, _ := f.GetSheetIndex(sheetSummary)
	f.SetActiveSheet(idx)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func write(f *excelize.File, sheet string, col, row int, v any) {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	_ = f.SetCellValue(sheet, cell, v)
}

func writeHeader(f *excelize.File, sheet string, style int, headers ...string) {
	for i, h := range headers {
		write(f, sheet, i+1, 1, h)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	_ = f.SetCellStyle(sheet, "A1", last, style)
}

func writeSummary(f *excelize.File, r *entity.Report, bold int) {
	s := report.Summarize(r)
	rows := [][2]any{
		{"Report ID", s.ReportID},
		{"Outcome", string(s.Outcome)},
		{"Prompt", truncate(r.Prompt, maxCellChars)},
		{"Template", r.Template},
		{"Total Files", s.TotalSelected},
		{"Processed Files", s.Processed},
		{"Succeeded", s.Succeeded},
		{"Failed", s.Failed},
		{"Success Rate", fmt.Sprintf("%.1f%%", s.SuccessRate)},
		{"Generated At", formatTime(s.GeneratedAt)},
	}
	for i, kv := range rows {
		write(f, sheetSummary, 1, i+1, kv[0])
		write(f, sheetSummary, 2, i+1, kv[1])
	}
	last, _ := excelize.CoordinatesToCellName(1, len(rows))
	_ = f.SetCellStyle(sheetSummary, "A1", last, bold)
	_ = f.SetColWidth(sheetSummary, "A", "A", 18)
	_ = f.SetColWidth(sheetSummary, "B", "B", 60)
}

func writeResults(f *excelize.File, r *entity.Report, bold int) {
	writeHeader(f, sheetResults, bold, "Filename", "Summary", "Content", "Extracted_Data", "Confidence", "Processed_At")
	row := 2
	for _, it := range r.Items {
		if it.Result == nil {
			continue
		}
		write(f, sheetResults, 1, row, it.File.Name)
		write(f, sheetResults, 2, row, truncate(it.Result.Summary, maxCellChars))
		write(f, sheetResults, 3, row, truncate(it.Result.Content, maxContentChars))
		write(f, sheetResults, 4, row, truncate(dataJSON(it.Result.Data), maxCellChars))
		write(f, sheetResults, 5, row, it.Result.Confidence)
		write(f, sheetResults, 6, row, formatTime(it.Result.ProcessedAt))
		row++
	}
	_ = f.SetColWidth(sheetResults, "A", "A", 28)
	_ = f.SetColWidth(sheetResults, "B", "C", 48)
	_ = f.SetColWidth(sheetResults, "D", "D", 60)
	_ = f.SetColWidth(sheetResults, "E", "F", 20)
}

// writeData flattens every extracted row into one table; columns are the sorted union of keys.
func writeData(f *excelize.File, r *entity.Report, bold int) {
	keySet := map[string]struct{}{}
	for _, it := range r.Items {
		if it.Result == nil {
			continue
		}
		for _, d := range it.Result.Data {
			for k := range d {
				keySet[k] = struct{}{}
			}
		}
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	writeHeader(f, sheetData, bold, append([]string{"Filename"}, keys...)...)
	row := 2
	for _, it := range r.Items {
		if it.Result == nil {
			continue
		}
		for _, d := range it.Result.Data {
			write(f, sheetData, 1, row, it.File.Name)
			for i, k := range keys {
				v, ok := d[k]
				if !ok || v == nil {
					continue
				}
				write(f, sheetData, i+2, row, cellValue(v))
			}
			row++
		}
	}
	_ = f.SetColWidth(sheetData, "A", "A", 28)
}

func writeErrors(f *excelize.File, r *entity.Report, bold int) {
	writeHeader(f, sheetErrors, bold, "Filename", "Error", "Timestamp")
	row := 2
	for _, it := range r.Items {
		if it.Error == nil {
			continue
		}
		write(f, sheetErrors, 1, row, it.File.Name)
		write(f, sheetErrors, 2, row, truncate(it.Error.Message, maxCellChars))
		write(f, sheetErrors, 3, row, formatTime(it.Error.Timestamp))
		row++
	}
	_ = f.SetColWidth(sheetErrors, "A", "A", 28)
	_ = f.SetColWidth(sheetErrors, "B", "B", 80)
	_ = f.SetColWidth(sheetErrors, "C", "C", 22)
}

// cellValue keeps scalars as-is and encodes nested values as JSON.
func cellValue(v any) any {
	switch t := v.(type) {
	case string:
		return truncate(t, maxCellChars)
	case float64, bool, int, int64:
		return t
	default:
		return truncate(dataJSONValue(t), maxCellChars)
	}
}
