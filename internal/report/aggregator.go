// Package report folds per-file outcomes of a run into an immutable Report.
package report

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docbatch/constants"
	"github.com/joseph-ayodele/docbatch/internal/entity"
)

// Input is everything Aggregate needs; it reads nothing else.
type Input struct {
	RunID         uuid.UUID
	Prompt        string
	Template      string
	Outcome       constants.RunState
	Items         []entity.ProcessingItem
	TotalSelected int
	GeneratedAt   time.Time
}

// Aggregate keeps terminal items in order and derives the counts from them.
// Items that never left pending or in_flight are not part of the report.
func Aggregate(in Input) *entity.Report {
	r := &entity.Report{
		ID:            in.RunID,
		Prompt:        validUTF8(in.Prompt),
		Template:      validUTF8(in.Template),
		Outcome:       in.Outcome,
		Items:         make([]entity.ProcessingItem, 0, len(in.Items)),
		TotalSelected: in.TotalSelected,
		GeneratedAt:   in.GeneratedAt.UTC(),
	}
	for _, it := range in.Items {
		switch it.Status {
		case constants.ItemStatusSucceeded:
			r.SuccessCount++
		case constants.ItemStatusFailed:
			r.ErrorCount++
		default:
			continue
		}
		r.Items = append(r.Items, normalizeItem(it.Clone()))
	}
	if r.TotalSelected < len(r.Items) {
		r.TotalSelected = len(r.Items)
	}
	return r
}

// normalizeItem puts times in UTC, strings in valid UTF-8 and extracted rows in their JSON-decoded
// form so that a report survives a JSON round trip unchanged. File names come straight from the
// filesystem and may carry arbitrary bytes.
func normalizeItem(it entity.ProcessingItem) entity.ProcessingItem {
	it.File.Name = validUTF8(it.File.Name)
	it.File.Path = validUTF8(it.File.Path)
	it.File.MimeType = validUTF8(it.File.MimeType)
	if r := it.Result; r != nil {
		r.FileName = validUTF8(r.FileName)
		r.Content = validUTF8(r.Content)
		r.Summary = validUTF8(r.Summary)
		r.Notes = validUTF8(r.Notes)
		r.Model = validUTF8(r.Model)
		r.ProcessedAt = r.ProcessedAt.UTC()
		r.Data = canonicalRows(r.Data)
	}
	if e := it.Error; e != nil {
		e.FileName = validUTF8(e.FileName)
		e.Message = validUTF8(e.Message)
		e.Timestamp = e.Timestamp.UTC()
	}
	return it
}

func validUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

func canonicalRows(rows []map[string]any) []map[string]any {
	if rows == nil {
		return nil
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return rows
	}
	var out []map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return rows
	}
	return out
}
