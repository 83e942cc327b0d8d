package export

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/docbatch/constants"
	"github.com/joseph-ayodele/docbatch/internal/entity"
	"github.com/joseph-ayodele/docbatch/internal/report"
)

// TextAdapter writes the plain-text summary followed by the extracted data of each success.
type TextAdapter struct{}

func (TextAdapter) Format() constants.ExportFormat { return constants.FormatText }
func (TextAdapter) Extension() string              { return "txt" }
func (TextAdapter) ContentType() string            { return "text/plain; charset=utf-8" }

func (TextAdapter) Serialize(r *entity.Report) ([]byte, error) {
	var b strings.Builder
	b.WriteString(report.Summarize(r).Text())

	var details []entity.ProcessingItem
	for _, it := range r.Items {
		if it.Result != nil {
			details = append(details, it)
		}
	}
	if len(details) > 0 {
		b.WriteString("\nResults:\n")
		for _, it := range details {
			fmt.Fprintf(&b, "\n== %s ==\n", it.File.Name)
			if it.Result.Summary != "" {
				fmt.Fprintf(&b, "Summary: %s\n", it.Result.Summary)
			}
			fmt.Fprintf(&b, "Data: %s\n", dataJSON(it.Result.Data))
			if it.Result.Notes != "" {
				fmt.Fprintf(&b, "Notes: %s\n", it.Result.Notes)
			}
		}
	}
	return []byte(b.String()), nil
}
