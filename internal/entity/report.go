package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docbatch/constants"
)

// Report is the aggregated outcome of one run. Items only contains items that reached a terminal status.
type Report struct {
	ID            uuid.UUID          `json:"id"`
	Prompt        string             `json:"prompt"`
	Template      string             `json:"template,omitempty"`
	Outcome       constants.RunState `json:"outcome"`
	Items         []ProcessingItem   `json:"items"`
	SuccessCount  int                `json:"success_count"`
	ErrorCount    int                `json:"error_count"`
	TotalSelected int                `json:"total_selected"`
	GeneratedAt   time.Time          `json:"generated_at"`
}

// ExportArtifact is a serialized report ready for download.
type ExportArtifact struct {
	Format      constants.ExportFormat `json:"format"`
	ContentType string                 `json:"content_type"`
	Filename    string                 `json:"filename"`
	Data        []byte                 `json:"-"`
}

// ReportSummary is a listing row for stored reports.
type ReportSummary struct {
	ID            uuid.UUID          `json:"id"`
	Prompt        string             `json:"prompt"`
	Template      string             `json:"template,omitempty"`
	Outcome       constants.RunState `json:"outcome"`
	SuccessCount  int                `json:"success_count"`
	ErrorCount    int                `json:"error_count"`
	TotalSelected int                `json:"total_selected"`
	GeneratedAt   time.Time          `json:"generated_at"`
}

// Clone returns a deep copy of r.
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	out := *r
	if r.Items != nil {
		out.Items = make([]ProcessingItem, len(r.Items))
		for i, it := range r.Items {
			out.Items[i] = it.Clone()
		}
	}
	return &out
}

// Summary returns the listing row for r.
func (r *Report) Summary() ReportSummary {
	return ReportSummary{
		ID:            r.ID,
		Prompt:        r.Prompt,
		Template:      r.Template,
		Outcome:       r.Outcome,
		SuccessCount:  r.SuccessCount,
		ErrorCount:    r.ErrorCount,
		TotalSelected: r.TotalSelected,
		GeneratedAt:   r.GeneratedAt,
	}
}
