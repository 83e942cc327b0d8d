package constants

import "strings"

// ExportFormat names an export adapter.
type ExportFormat string

const (
	FormatExcel ExportFormat = "excel"
	FormatCSV   ExportFormat = "csv"
	FormatPDF   ExportFormat = "pdf"
	FormatJSON  ExportFormat = "json"
	FormatText  ExportFormat = "text"
)

// ExportFormats lists the supported formats in display order.
var ExportFormats = []ExportFormat{FormatExcel, FormatCSV, FormatPDF, FormatJSON, FormatText}

// ParseExportFormat accepts a couple of common aliases ("xlsx", "txt").
func ParseExportFormat(s string) ExportFormat {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "excel", "xlsx":
		return FormatExcel
	case "csv":
		return FormatCSV
	case "pdf":
		return FormatPDF
	case "json":
		return FormatJSON
	case "text", "txt":
		return FormatText
	default:
		return ExportFormat(s)
	}
}

// ProcessingMode is kept in the state store for UIs.
type ProcessingMode string

const (
	ModeIndividual ProcessingMode = "individual"
	ModeCombined   ProcessingMode = "combined"
)

// DefaultProcessingMode and DefaultOutputFormat are the store defaults.
const (
	DefaultProcessingMode = ModeIndividual
	DefaultOutputFormat   = FormatText
)
