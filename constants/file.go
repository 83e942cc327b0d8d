package constants

import "strings"

// DefaultMaxFileSizeMB is the per-file upload ceiling applied by the validator.
const DefaultMaxFileSizeMB = 50

// File type groups used by text extraction.
const (
	PDF         = "PDF"
	SPREADSHEET = "SPREADSHEET"
	DELIMITED   = "DELIMITED"
	TEXT        = "TEXT"
	WORD        = "WORD"
)

// AllowedExtensions is the canonical allow-list for batch selection.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"xlsx": {},
	"xls":  {},
	"csv":  {},
	"txt":  {},
	"doc":  {},
	"docx": {},
}

// ExtMimeTypes maps each allowed extension to its canonical MIME type.
var ExtMimeTypes = map[string]string{
	"pdf":  "application/pdf",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"xls":  "application/vnd.ms-excel",
	"csv":  "text/csv",
	"txt":  "text/plain",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// ExtFromName returns the lowercased substring after the last '.', or "" when there is none.
func ExtFromName(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 || i == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// NormalizeMime strips parameters (e.g. "; charset=utf-8") and lowercases a MIME type.
func NormalizeMime(mt string) string {
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// MapExtToFormat groups an extension into the text extraction strategy that handles it.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "xlsx", "xls":
		return SPREADSHEET
	case "csv":
		return DELIMITED
	case "txt":
		return TEXT
	case "doc", "docx":
		return WORD
	default:
		return ""
	}
}
