package core

// table.go holds the logical table model shared by every engine in this
// package: an ordered header list plus row-major cell data. Row numbering is
// 1-based over data rows (the header is not a row) and stays stable across
// re-validation so cell errors remain addressable after a fix pass.

import (
	"fmt"
	"strconv"
	"strings"
)

// Table is an in-memory tabular dataset. Every row has exactly
// len(Headers) cells; missing trailing cells are filled with "".
type Table struct {
	Headers []string
	Rows    [][]string
}

// NewTable builds a Table from parsed spreadsheet data, padding or
// truncating each row to the header width.
func NewTable(headers []string, rows [][]string) *Table {
	t := &Table{Headers: make([]string, len(headers))}
	for i, h := range headers {
		t.Headers[i] = strings.TrimSpace(h)
	}

	t.Rows = make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(headers))
		for i := range cells {
			if i < len(row) {
				cells[i] = row[i]
			}
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

// Clone returns a deep copy. Engines that rewrite cells operate on a clone
// so the caller decides whether to keep the corrected table.
func (t *Table) Clone() *Table {
	out := &Table{
		Headers: append([]string(nil), t.Headers...),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

// StandardizedRow maps canonical field names to cell values for one row.
type StandardizedRow map[string]string

// Record is one data row with its stable 1-based number and
// header-standardized field view.
type Record struct {
	Num    int
	Fields StandardizedRow
}

// HeaderIndex maps canonical field names to column positions (0-based).
// When a header standardizes to a name already present, the first column
// wins, matching how duplicate headers behave in the source files.
type HeaderIndex map[string]int

// Index returns the header index for the table.
func (t *Table) Index() HeaderIndex {
	idx := make(HeaderIndex, len(t.Headers))
	for i, h := range t.Headers {
		std := StandardizeHeader(h)
		if _, seen := idx[std]; !seen {
			idx[std] = i
		}
	}
	return idx
}

// Records materializes every data row as a Record. The standardization is
// done once here; all engines downstream key by canonical field name.
func (t *Table) Records() []Record {
	idx := t.Index()
	records := make([]Record, 0, len(t.Rows))
	for i, row := range t.Rows {
		fields := make(StandardizedRow, len(idx))
		for field, col := range idx {
			fields[field] = row[col]
		}
		records = append(records, Record{Num: i + 1, Fields: fields})
	}
	return records
}

// RequireColumns verifies that every named canonical column is present,
// failing fast with a single error listing all missing columns.
func (t *Table) RequireColumns(fields ...string) error {
	idx := t.Index()
	var missing []string
	for _, f := range fields {
		if _, ok := idx[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ColumnTotals sums every column that parses as numeric, keyed by the
// original header text. Non-numeric cells are skipped.
func (t *Table) ColumnTotals() map[string]float64 {
	totals := make(map[string]float64, len(t.Headers))
	for col, header := range t.Headers {
		sum := 0.0
		for _, row := range t.Rows {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
			if err == nil {
				sum += v
			}
		}
		totals[header] = sum
	}
	return totals
}

// IsEmptyRow reports whether every cell is blank after trimming.
func IsEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
