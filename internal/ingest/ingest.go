// Package ingest reads spreadsheet exports into rows.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pavelanni/wrongnote/internal/sheet"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported file format")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Read parses data according to the extension of name. sheetName selects the
// worksheet of an XLSX file; empty means the first one.
func Read(name string, data []byte, sheetName string) ([]sheet.Row, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return ReadCSV(bytes.NewReader(data))
	case ".xlsx", ".xlsm":
		return ReadXLSX(bytes.NewReader(data), sheetName)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
}

// ReadCSV parses a CSV export. Rows may have different lengths; a leading UTF-8
// byte order mark is dropped.
func ReadCSV(r io.Reader) ([]sheet.Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	cr := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return toRows(records), nil
}

// ReadXLSX reads one worksheet of a workbook.
func ReadXLSX(r io.Reader, sheetName string) ([]sheet.Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheetName = sheets[0]
	}
	records, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	return toRows(records), nil
}

// toRows converts string records to rows, dropping trailing blank rows.
func toRows(records [][]string) []sheet.Row {
	end := len(records)
	for end > 0 && blank(records[end-1]) {
		end--
	}
	rows := make([]sheet.Row, 0, end)
	for _, rec := range records[:end] {
		row := make(sheet.Row, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		rows = append(rows, row)
	}
	return rows
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
