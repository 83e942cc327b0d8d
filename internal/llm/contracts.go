package llm

import "context"

// ExtractRequest is everything the model sees for one file.
type ExtractRequest struct {
	Prompt   string
	FileName string
	Content  string
	// Template is the rendered template format; empty when no template is active.
	Template       string
	TemplateFields []string
}

// ExtractedData is the normalized reply shape.
type ExtractedData struct {
	Data       []map[string]any `json:"data"`
	Summary    string           `json:"summary"`
	Confidence float64          `json:"confidence"`
	Notes      string           `json:"notes,omitempty"`
}

// DataExtractor is the interface the extraction adapter depends on.
type DataExtractor interface {
	ExtractData(ctx context.Context, req ExtractRequest) (ExtractedData, []byte /*raw reply*/, error)
	Model() string
}
