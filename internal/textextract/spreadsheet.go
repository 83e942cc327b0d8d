package textextract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// spreadsheetText renders every sheet as a "Sheet: <name>" header followed by its rows as CSV lines.
func spreadsheetText(raw []byte) (Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return Result{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	var b strings.Builder
	sheets := f.GetSheetList()
	for i, name := range sheets {
		rows, err := f.GetRows(name)
		if err != nil {
			return Result{}, fmt.Errorf("read sheet %q: %w", name, err)
		}
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Sheet: %s\n", name)
		w := csv.NewWriter(&b)
		for _, row := range rows {
			if err := w.Write(row); err != nil {
				return Result{}, err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return Result{}, err
		}
	}
	return Result{Text: b.String(), Method: "xlsx", Pages: len(sheets)}, nil
}
