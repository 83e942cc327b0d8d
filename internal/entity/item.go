package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docbatch/constants"
)

// ErrorRecord captures one per-file failure.
type ErrorRecord struct {
	FileName  string    `json:"file_name"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ExtractionResult is what the extraction collaborator returns for a file.
// Data rows hold JSON-decoded values (string, float64, bool, nil, []any, map[string]any).
type ExtractionResult struct {
	FileName    string           `json:"file_name"`
	Content     string           `json:"content"`
	Data        []map[string]any `json:"data"`
	Summary     string           `json:"summary"`
	Confidence  float64          `json:"confidence"`
	Notes       string           `json:"notes,omitempty"`
	Model       string           `json:"model,omitempty"`
	ProcessedAt time.Time        `json:"processed_at"`
}

// ProcessingItem is one file's record within a run.
type ProcessingItem struct {
	ID     uuid.UUID            `json:"id"`
	File   FileRef              `json:"file"`
	Status constants.ItemStatus `json:"status"`
	Result *ExtractionResult    `json:"result,omitempty"`
	Error  *ErrorRecord         `json:"error,omitempty"`
}

// ApprovalRequest asks the user whether the run should continue after a failed item.
type ApprovalRequest struct {
	ItemID       uuid.UUID `json:"item_id"`
	FileName     string    `json:"file_name"`
	ErrorMessage string    `json:"error_message"`
	RequestedAt  time.Time `json:"requested_at"`
}

// Clone returns a deep copy of r.
func (r ExtractionResult) Clone() ExtractionResult {
	out := r
	if r.Data != nil {
		out.Data = make([]map[string]any, len(r.Data))
		for i, row := range r.Data {
			out.Data[i] = cloneMap(row)
		}
	}
	return out
}

// Clone returns a deep copy of it.
func (it ProcessingItem) Clone() ProcessingItem {
	out := it
	if it.Result != nil {
		r := it.Result.Clone()
		out.Result = &r
	}
	if it.Error != nil {
		e := *it.Error
		out.Error = &e
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}
