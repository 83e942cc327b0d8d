package server

import (
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docbatch/constants"
	"github.com/joseph-ayodele/docbatch/internal/entity"
)

// SelectRequest lists files or directories on the server host.
type SelectRequest struct {
	Paths []string `json:"paths"`
}

// SelectResponse reports what was accepted.
type SelectResponse struct {
	Selected int                        `json:"selected"`
	Verdicts []entity.ValidationVerdict `json:"verdicts"`
}

// OptionsRequest updates processing mode and output format. Empty fields are left as they are.
type OptionsRequest struct {
	Mode   string `json:"mode,omitempty"`
	Format string `json:"format,omitempty"`
}

// ProgressView mirrors the engine's progress updates.
type ProgressView struct {
	Index    int     `json:"index"`
	Total    int     `json:"total"`
	Percent  float64 `json:"percent"`
	Label    string  `json:"label"`
	FileName string  `json:"file_name,omitempty"`
}

// StateView is a read-only snapshot for remote clients. File contents are never sent.
type StateView struct {
	Files           []entity.FileRef         `json:"files"`
	Template        *entity.Template         `json:"template,omitempty"`
	ProcessingMode  constants.ProcessingMode `json:"processing_mode"`
	OutputFormat    constants.ExportFormat   `json:"output_format"`
	IsProcessing    bool                     `json:"is_processing"`
	RunState        constants.RunState       `json:"run_state"`
	RunID           uuid.UUID                `json:"run_id"`
	Progress        ProgressView             `json:"progress"`
	ResultCount     int                      `json:"result_count"`
	Errors          []entity.ErrorRecord     `json:"errors"`
	PendingApproval *entity.ApprovalRequest  `json:"pending_approval,omitempty"`
	LastReportID    *uuid.UUID               `json:"last_report_id,omitempty"`
}

// ExportRequest picks a report and format. An empty ID means the latest run; Save writes through the sink.
type ExportRequest struct {
	ReportID string `json:"report_id,omitempty"`
	Format   string    `json:"format,omitempty"`
	Save     bool      `json:"save,omitempty"`
}

// ExportResponse carries the artifact bytes (base64 on the wire).
type ExportResponse struct {
	Format      constants.ExportFormat `json:"format"`
	ContentType string                 `json:"content_type"`
	Filename    string                 `json:"filename"`
	Data        []byte                 `json:"data"`
	Location    string                 `json:"location,omitempty"`
}

// ReportList is the ListReports payload.
type ReportList struct {
	Reports []entity.ReportSummary `json:"reports"`
}
