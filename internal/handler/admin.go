package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pavelanni/wrongnote/internal/ingest"
	"github.com/pavelanni/wrongnote/internal/summary"
)

// maxUploadBytes caps spreadsheet uploads.
const maxUploadBytes = 10 << 20

var tableNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

func (h *Handler) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.ListTables()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

// handleUploadTable replaces a table with the rows of an uploaded CSV or XLSX file.
// Re-uploading identical content is a no-op unless force=true.
func (h *Handler) handleUploadTable(w http.ResponseWriter, r *http.Request) {
	table := strings.ToUpper(chi.URLParam(r, "table"))
	if !tableNamePattern.MatchString(table) {
		h.writeError(w, r, fmt.Errorf("%w: bad table name %q", summary.ErrInvalidInput, table))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: file too large or malformed form", summary.ErrInvalidInput))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: no file uploaded", summary.ErrInvalidInput))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}

	res, err := ingest.Import(h.store, table, header.Filename, data, r.FormValue("sheet"), r.FormValue("force") == "true")
	if errors.Is(err, ingest.ErrUnsupportedFormat) {
		h.writeError(w, r, fmt.Errorf("%w: %v", summary.ErrInvalidInput, err))
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	slog.Info("uploaded table via API", "table", table, "filename", header.Filename, "rows", res.Rows, "skipped", res.Skipped)
	writeJSON(w, http.StatusOK, res)
}
