package ingest

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"

	"github.com/pavelanni/wrongnote/internal/sheet"
)

// Target is a table store that remembers what it imported.
type Target interface {
	ReplaceTable(name string, rows []sheet.Row) error
	GetImportedFileHash(source string) (string, error)
	SetImportedFileHash(source, hash string) error
}

// Result reports the outcome of an Import.
type Result struct {
	Table   string `json:"table"`
	Rows    int    `json:"rows"`
	Skipped bool   `json:"skipped"`
}

// Import parses a CSV or XLSX file and replaces table with its rows. A file whose
// content hash matches the previous import into the same table is skipped unless
// force is set.
func Import(t Target, table, filename string, data []byte, sheetName string, force bool) (Result, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	source := table + ":" + filename

	if !force {
		stored, err := t.GetImportedFileHash(source)
		if err != nil {
			return Result{}, fmt.Errorf("check import status: %w", err)
		}
		if stored == hash {
			slog.Info("file unchanged, skipping import", "table", table, "file", filename)
			return Result{Table: table, Skipped: true}, nil
		}
	}

	rows, err := Read(filename, data, sheetName)
	if err != nil {
		return Result{}, err
	}
	if err := t.ReplaceTable(table, rows); err != nil {
		return Result{}, fmt.Errorf("replace table %s: %w", table, err)
	}
	if err := t.SetImportedFileHash(source, hash); err != nil {
		slog.Error("failed to record import", "table", table, "error", err)
	}

	slog.Info("imported table", "table", table, "file", filename, "rows", len(rows))
	return Result{Table: table, Rows: len(rows)}, nil
}

// WriteCSV writes rows as CSV, one record per row, using the cell text.
func WriteCSV(w io.Writer, rows []sheet.Row) error {
	cw := csv.NewWriter(w)
	for _, row := range rows {
		rec := make([]string, len(row))
		for i := range row {
			rec[i] = row.Text(sheet.Column(i))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
