package core

// export.go is the export composer. It merges original row data with
// registry-cleaned field values and derives the IsInvalid and
// ValidationRemarks columns. Composition is a pure function of its inputs:
// the same table, validation result and cleaned map always produce
// byte-identical output rows.

import "strings"

// ExportKind selects which partition of rows an export carries.
type ExportKind string

const (
	// ExportValid carries rows with no validation errors.
	ExportValid ExportKind = "valid"
	// ExportInvalid carries rows with at least one error, remarks populated.
	ExportInvalid ExportKind = "invalid"
	// ExportCleaned carries every row with the registry overlay applied.
	ExportCleaned ExportKind = "cleaned"
)

// ParseExportKind validates a kind string from a request path.
func ParseExportKind(s string) (ExportKind, bool) {
	switch ExportKind(strings.ToLower(s)) {
	case ExportValid:
		return ExportValid, true
	case ExportInvalid:
		return ExportInvalid, true
	case ExportCleaned:
		return ExportCleaned, true
	default:
		return "", false
	}
}

// Derived columns appended to every export.
const (
	ColumnIsInvalid         = "IsInvalid"
	ColumnValidationRemarks = "ValidationRemarks"
)

// ComposeExport builds the export table for one partition. cleaned maps a
// confirmed identifier to registry-authoritative field values; on key
// collision the registry value wins. Rows keep their source order.
func ComposeExport(t *Table, result *ValidationResult, cleaned map[string]StandardizedRow, kind ExportKind) *Table {
	errorsByRow := make(map[int][]string)
	if result != nil {
		for _, issue := range result.Errors {
			errorsByRow[issue.Row] = append(errorsByRow[issue.Row], issue.Message)
		}
	}

	idx := t.Index()
	idCol, hasID := idx[FieldIdentifier]

	out := &Table{
		Headers: append(append([]string(nil), t.Headers...), ColumnIsInvalid, ColumnValidationRemarks),
	}

	for i, row := range t.Rows {
		rowNum := i + 1
		messages := errorsByRow[rowNum]
		invalid := len(messages) > 0

		switch kind {
		case ExportValid:
			if invalid {
				continue
			}
		case ExportInvalid:
			if !invalid {
				continue
			}
		}

		cells := append([]string(nil), row...)

		if hasID {
			id := strings.TrimSpace(row[idCol])
			if registryRow, ok := cleaned[id]; ok && id != "" {
				overlay(cells, t.Headers, registryRow)
			}
		}

		remarks := ""
		if invalid {
			remarks = strings.Join(messages, " | ")
		}
		cells = append(cells, boolCell(invalid), remarks)
		out.Rows = append(out.Rows, cells)
	}

	return out
}

// overlay replaces cell values with registry-cleaned values for every
// column whose canonical field the registry record carries.
func overlay(cells []string, headers []string, registryRow StandardizedRow) {
	for colIdx, header := range headers {
		if v, ok := registryRow[StandardizeHeader(header)]; ok {
			cells[colIdx] = v
		}
	}
}

func boolCell(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
