package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/docbatch/constants"
	"github.com/joseph-ayodele/docbatch/internal/entity"
)

// Summary is the presentation view of a report. It is derived, never stored.
type Summary struct {
	ReportID      string
	Outcome       constants.RunState
	Processed     int
	TotalSelected int
	Succeeded     int
	Failed        int
	// SuccessRate is Succeeded/Processed in percent; 0 for an empty report.
	SuccessRate float64
	GeneratedAt time.Time
	Lines       []SummaryLine
}

// SummaryLine is one row of the per-item listing.
type SummaryLine struct {
	FileName string
	Status   constants.ItemStatus
	Detail   string
}

// Summarize builds the view for r.
func Summarize(r *entity.Report) Summary {
	s := Summary{
		ReportID:      r.ID.String(),
		Outcome:       r.Outcome,
		Processed:     len(r.Items),
		TotalSelected: r.TotalSelected,
		Succeeded:     r.SuccessCount,
		Failed:        r.ErrorCount,
		GeneratedAt:   r.GeneratedAt,
		Lines:         make([]SummaryLine, 0, len(r.Items)),
	}
	if s.Processed > 0 {
		s.SuccessRate = float64(s.Succeeded) / float64(s.Processed) * 100
	}
	for _, it := range r.Items {
		line := SummaryLine{FileName: it.File.Name, Status: it.Status}
		switch {
		case it.Error != nil:
			line.Detail = it.Error.Message
		case it.Result != nil:
			line.Detail = firstNonEmpty(it.Result.Summary, fmt.Sprintf("%d rows extracted", len(it.Result.Data)))
		}
		s.Lines = append(s.Lines, line)
	}
	return s
}

// Text renders s as plain text.
func (s Summary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "File Processing Report\n")
	fmt.Fprintf(&b, "Report: %s\n", s.ReportID)
	fmt.Fprintf(&b, "Generated: %s\n", s.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Outcome: %s\n\n", s.Outcome)
	fmt.Fprintf(&b, "Total Files: %d\n", s.TotalSelected)
	fmt.Fprintf(&b, "Processed Files: %d\n", s.Processed)
	fmt.Fprintf(&b, "Succeeded: %d\n", s.Succeeded)
	fmt.Fprintf(&b, "Failed: %d\n", s.Failed)
	fmt.Fprintf(&b, "Success Rate: %.1f%%\n", s.SuccessRate)
	if len(s.Lines) > 0 {
		b.WriteString("\nItems:\n")
		for i, l := range s.Lines {
			fmt.Fprintf(&b, "%d. [%s] %s", i+1, l.Status, l.FileName)
			if l.Detail != "" {
				fmt.Fprintf(&b, ": %s", oneLine(l.Detail))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
