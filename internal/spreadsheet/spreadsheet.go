// Package spreadsheet parses and writes the CSV files the validator
// exchanges with its users. Parsing is first-sheet semantics only: one
// header row followed by data rows. Invalid UTF-8 is replaced, never
// rejected, because field exports routinely arrive in mixed encodings.
package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxFileSize is the largest upload accepted, in bytes.
const MaxFileSize = 50 << 20

// ErrFileTooLarge is returned for uploads over MaxFileSize.
var ErrFileTooLarge = errors.New("file too large")

// ErrNoData is returned when the file has no header row.
var ErrNoData = errors.New("file has no data rows")

// Parse reads a CSV payload into a header row and data rows. A UTF-8
// BOM is stripped and invalid byte sequences are replaced with U+FFFD.
// Rows may be ragged; the caller pads them to header width.
func Parse(data []byte) (headers []string, rows [][]string, err error) {
	if len(data) > MaxFileSize {
		return nil, nil, ErrFileTooLarge
	}

	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	data = sanitizeUTF8(data)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, ErrNoData
	}

	headers = make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}
	return headers, records[1:], nil
}

// Write renders headers and rows as a CSV payload. Headers are
// upper-cased so exports always carry canonical column names.
func Write(headers []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	upper := make([]string, len(headers))
	for i, h := range headers {
		upper[i] = strings.ToUpper(strings.TrimSpace(h))
	}
	if err := w.Write(upper); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\uFFFD')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
