package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pavelanni/wrongnote/internal/diagnosis"
	appI18n "github.com/pavelanni/wrongnote/internal/i18n"
	"github.com/pavelanni/wrongnote/internal/llm"
	"github.com/pavelanni/wrongnote/internal/model"
	"github.com/pavelanni/wrongnote/internal/sheet"
	"github.com/pavelanni/wrongnote/internal/store"
	"github.com/pavelanni/wrongnote/internal/summary"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store   *store.Store
	svc     *summary.Service
	coach   *llm.Client
	version string
}

// New creates a new Handler. coach may be nil, in which case insight requests
// never carry a coach note.
func New(s *store.Store, coach *llm.Client, loc *time.Location, version string) *Handler {
	return &Handler{
		store:   s,
		svc:     summary.NewService(s, loc),
		coach:   coach,
		version: version,
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/ping", h.handlePing)
	r.Route("/api", func(r chi.Router) {
		r.Get("/summary", h.handleSummary)
		r.Get("/insight", h.handleInsight)
		r.Get("/blueprint", h.handleBlueprint)
		r.Post("/answers", h.handleRecord)
		r.Get("/wrong-list", h.handleWrongList)
		r.Get("/analysis", h.handleAnalysis)
		r.Get("/students", h.handleStudents)
		r.Get("/books", h.handleBooks)
		r.Get("/tables", h.handleListTables)
		r.Post("/tables/{table}", h.handleUploadTable)
	})
}

func (h *Handler) handlePing(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "version": h.version})
}

// summaryRequest reads the student and week range shared by summary and insight.
func summaryRequest(r *http.Request) (string, int, int, string, error) {
	from, to, err := summary.ParseWeekRange(param(r, "from", "from_week"), param(r, "to", "to_week"))
	if err != nil {
		return "", 0, 0, "", err
	}
	return param(r, "student_id"), from, to, param(r, "book"), nil
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	student, from, to, book, err := summaryRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp, err := h.svc.GetSummary(student, from, to, book)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleInsight(w http.ResponseWriter, r *http.Request) {
	student, from, to, book, err := summaryRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp, err := h.svc.GetSummary(student, from, to, book)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	insight := model.Insight{
		Summary:   resp,
		Diagnosis: diagnosis.Diagnose(resp.ByQType, resp.ByArea, appI18n.GuideFromContext(ctx)),
	}
	if h.coach != nil && r.URL.Query().Get("narrate") == "true" {
		note, err := h.coach.CoachNote(ctx, appI18n.T(ctx, "CoachLanguage"), resp, insight.Diagnosis)
		if err != nil {
			slog.Warn("coach note failed", "student", student, "error", err)
		} else {
			insight.CoachNote = note
		}
	}
	writeJSON(w, http.StatusOK, insight)
}

func (h *Handler) handleBlueprint(w http.ResponseWriter, r *http.Request) {
	week, err := summary.ParseWeek("week", param(r, "week"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	bp, err := h.svc.SessionBlueprint(week, param(r, "session"), param(r, "book"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bp)
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	var req model.RecordRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: decode body: %v", summary.ErrInvalidInput, err))
		return
	}
	res, err := h.svc.RecordWrongAnswers(req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleWrongList(w http.ResponseWriter, r *http.Request) {
	week, err := summary.ParseWeek("week", param(r, "week"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	slots, err := h.svc.WrongList(param(r, "student_id"), week, param(r, "session"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"wrong_list": slots})
}

func (h *Handler) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	week, err := summary.ParseWeek("week", param(r, "week"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	stats, err := h.svc.Analysis(week, param(r, "session"), param(r, "student_id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.svc.Students()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, students)
}

func (h *Handler) handleBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.svc.Books()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

// param returns the first non-empty query value among names.
func param(r *http.Request, names ...string) string {
	q := r.URL.Query()
	for _, n := range names {
		if v := strings.TrimSpace(q.Get(n)); v != "" {
			return v
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// writeError maps domain errors to status codes. Details of internal errors stay
// in the log.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, summary.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: appI18n.T(ctx, "ErrInvalidInput"), Detail: err.Error()})
	case errors.Is(err, sheet.ErrSchema):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: appI18n.T(ctx, "ErrSchema"), Detail: err.Error()})
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: appI18n.T(ctx, "ErrInternal")})
	}
}
