package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/joseph-ayodele/docbatch/constants"
	"github.com/joseph-ayodele/docbatch/internal/entity"
	"github.com/joseph-ayodele/docbatch/internal/report"
)

const pdfDetailChars = 600

// PDFAdapter renders a printable report with the summary block followed by one section per item.
type PDFAdapter struct{}

func (PDFAdapter) Format() constants.ExportFormat { return constants.FormatPDF }
func (PDFAdapter) Extension() string              { return "pdf" }
func (PDFAdapter) ContentType() string            { return "application/pdf" }

func (PDFAdapter) Serialize(r *entity.Report) ([]byte, error) {
	s := report.Summarize(r)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("File Processing Report", true)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "File Processing Report", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 10)
	kv := [][2]string{
		{"Report ID", s.ReportID},
		{"Generated", formatTime(s.GeneratedAt)},
		{"Outcome", string(s.Outcome)},
		{"Total Files", fmt.Sprint(s.TotalSelected)},
		{"Processed Files", fmt.Sprint(s.Processed)},
		{"Succeeded", fmt.Sprint(s.Succeeded)},
		{"Failed", fmt.Sprint(s.Failed)},
		{"Success Rate", fmt.Sprintf("%.1f%%", s.SuccessRate)},
	}
	if r.Template != "" {
		kv = append(kv, [2]string{"Template", r.Template})
	}
	for _, p := range kv {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, p[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, tr(p[1]), "", 1, "L", false, 0, "")
	}
	if r.Prompt != "" {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 6, "Prompt", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(truncate(r.Prompt, pdfDetailChars)), "", "L", false)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Items", "B", 1, "L", false, 0, "")
	pdf.Ln(2)

	for i, it := range r.Items {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("%d. %s [%s]", i+1, it.File.Name, it.Status)), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		switch {
		case it.Error != nil:
			pdf.SetTextColor(170, 0, 0)
			pdf.MultiCell(0, 5, tr("Error: "+truncate(it.Error.Message, pdfDetailChars)), "", "L", false)
			pdf.SetTextColor(0, 0, 0)
		case it.Result != nil:
			if it.Result.Summary != "" {
				pdf.MultiCell(0, 5, tr("Summary: "+truncate(it.Result.Summary, pdfDetailChars)), "", "L", false)
			}
			pdf.MultiCell(0, 5, tr("Data: "+truncate(dataJSON(it.Result.Data), pdfDetailChars)), "", "L", false)
			if it.Result.Confidence > 0 {
				pdf.CellFormat(0, 5, fmt.Sprintf("Confidence: %.2f", it.Result.Confidence), "", 1, "L", false, 0, "")
			}
		}
		pdf.Ln(2)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf render: %w", err)
	}
	return buf.Bytes(), nil
}
