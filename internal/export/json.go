package export

import (
	"encoding/json"
	"fmt"

	"github.com/joseph-ayodele/docbatch/constants"
	"github.com/joseph-ayodele/docbatch/internal/entity"
)

// JSONAdapter is the canonical round-trip format.
type JSONAdapter struct{}

func (JSONAdapter) Format() constants.ExportFormat { return constants.FormatJSON }
func (JSONAdapter) Extension() string              { return "json" }
func (JSONAdapter) ContentType() string            { return "application/json" }

func (JSONAdapter) Serialize(r *entity.Report) ([]byte, error) {
	return EncodeJSON(r)
}

// EncodeJSON writes r as indented JSON.
func EncodeJSON(r *entity.Report) ([]byte, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return b, nil
}

// DecodeJSON is the inverse of EncodeJSON.
func DecodeJSON(b []byte) (*entity.Report, error) {
	var r entity.Report
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}
