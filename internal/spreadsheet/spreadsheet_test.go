package spreadsheet

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestParse(t *testing.T) {
	data := []byte("FIRSTNAME,LASTNAME,SEX\nJUAN,DELA CRUZ,MALE\nMARIA,SANTOS,FEMALE\n")

	headers, rows, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(headers) != 3 || headers[0] != "FIRSTNAME" {
		t.Errorf("headers = %v", headers)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[1][1] != "SANTOS" {
		t.Errorf("rows[1][1] = %q", rows[1][1])
	}
}

func TestParseStripsBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("FIRSTNAME\nJUAN\n")...)

	headers, _, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if headers[0] != "FIRSTNAME" {
		t.Errorf("headers[0] = %q, BOM not stripped", headers[0])
	}
}

func TestParseTrimsHeaderWhitespace(t *testing.T) {
	headers, _, err := Parse([]byte(" FIRSTNAME , LASTNAME \nJUAN,DELA CRUZ\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if headers[0] != "FIRSTNAME" || headers[1] != "LASTNAME" {
		t.Errorf("headers = %v", headers)
	}
}

func TestParseReplacesInvalidUTF8(t *testing.T) {
	// 0xFF is not valid UTF-8 in any position.
	data := []byte("FIRSTNAME\nJU\xFFAN\n")

	_, rows, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !utf8.ValidString(rows[0][0]) {
		t.Errorf("cell still carries invalid UTF-8: %q", rows[0][0])
	}
	if !strings.Contains(rows[0][0], "�") {
		t.Errorf("invalid byte not replaced: %q", rows[0][0])
	}
}

func TestParseRaggedRows(t *testing.T) {
	data := []byte("A,B,C\n1\n1,2,3,4\n")

	_, rows, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(rows[0]) != 1 || len(rows[1]) != 4 {
		t.Errorf("ragged widths = %d, %d; parser must not pad", len(rows[0]), len(rows[1]))
	}
}

func TestParseEmptyFile(t *testing.T) {
	_, _, err := Parse(nil)
	if !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestParseHeaderOnly(t *testing.T) {
	headers, rows, err := Parse([]byte("FIRSTNAME,LASTNAME\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(headers) != 2 || len(rows) != 0 {
		t.Errorf("headers = %v, rows = %v", headers, rows)
	}
}

func TestParseFileTooLarge(t *testing.T) {
	data := bytes.Repeat([]byte{'a'}, MaxFileSize+1)
	_, _, err := Parse(data)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	headers := []string{"firstname", "lastname"}
	rows := [][]string{
		{"JUAN", "DELA CRUZ"},
		{"value, with comma", `quoted "value"`},
	}

	data, err := Write(headers, rows)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	gotHeaders, gotRows, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse of written data failed: %v", err)
	}
	// Written headers come out canonical upper-case.
	if gotHeaders[0] != "FIRSTNAME" || gotHeaders[1] != "LASTNAME" {
		t.Errorf("headers = %v", gotHeaders)
	}
	if gotRows[1][0] != "value, with comma" || gotRows[1][1] != `quoted "value"` {
		t.Errorf("rows = %v", gotRows)
	}
}
