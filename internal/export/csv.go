package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"

	"github.com/joseph-ayodele/docbatch/constants"
	"github.com/joseph-ayodele/docbatch/internal/entity"
)

var csvHeader = []string{"Status", "Filename", "Content", "Extracted_Data", "Processed_At", "Error"}

// CSVAdapter writes one row per processed item. Quoting is left to encoding/csv so embedded commas,
// quotes and newlines stay inside their field.
type CSVAdapter struct{}

func (CSVAdapter) Format() constants.ExportFormat { return constants.FormatCSV }
func (CSVAdapter) Extension() string              { return "csv" }
func (CSVAdapter) ContentType() string            { return "text/csv" }

func (CSVAdapter) Serialize(r *entity.Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, it := range r.Items {
		row := []string{string(it.Status), it.File.Name, "", "", "", ""}
		if it.Result != nil {
			row[2] = it.Result.Content
			row[3] = dataJSON(it.Result.Data)
			row[4] = formatTime(it.Result.ProcessedAt)
		}
		if it.Error != nil {
			row[4] = formatTime(it.Error.Timestamp)
			row[5] = it.Error.Message
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func dataJSON(rows []map[string]any) string {
	if len(rows) == 0 {
		return "[]"
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return ""
	}
	return string(b)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func dataJSONValue(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
