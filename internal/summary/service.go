// Package summary computes per-student wrong-answer analytics over named tables.
package summary

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pavelanni/wrongnote/internal/catalog"
	"github.com/pavelanni/wrongnote/internal/model"
	"github.com/pavelanni/wrongnote/internal/sheet"
	"github.com/samber/lo"
)

// TableSource exposes named tables as rows of cells; the first row is the header.
type TableSource interface {
	GetTable(name string) ([]sheet.Row, error)
	AppendRow(name string, row sheet.Row) error
}

// DateLayout is how recorded answers are time-stamped.
const DateLayout = "2006-01-02 15:04:05"

// Service answers analytics requests. It holds no per-request state.
type Service struct {
	src TableSource
	loc *time.Location
	now func() time.Time
}

// NewService creates a service reading from src. Recorded dates use loc; a nil loc
// means UTC.
func NewService(src TableSource, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{src: src, loc: loc, now: time.Now}
}

type table struct {
	name string
	idx  sheet.FieldIndex
	body []sheet.Row
}

func (s *Service) load(name string, required ...sheet.Role) (*table, error) {
	rows, err := s.src.GetTable(name)
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", name, err)
	}
	header, body := sheet.Split(rows)
	if header == nil {
		return nil, &sheet.SchemaError{Table: name, Missing: required}
	}
	idx := sheet.Resolve(header, sheet.DefaultRoles)
	if err := idx.Require(name, required...); err != nil {
		return nil, err
	}
	return &table{name: name, idx: idx, body: body}, nil
}

func (s *Service) loadLog() (*table, error) {
	return s.load(model.TableAnswerLog,
		sheet.RoleStudentID, sheet.RoleWeek, sheet.RoleSession, sheet.RoleSlot, sheet.RoleWrongFlag)
}

func (s *Service) loadQuestions() (*table, error) {
	return s.load(model.TableQuestionDB, sheet.RoleWeek, sheet.RoleSession, sheet.RoleSlot)
}

func (s *Service) loadGenres(book string) (*catalog.GenreLookup, error) {
	t, err := s.load(model.TablePassageDB, sheet.RoleGenre)
	if err != nil {
		return nil, err
	}
	if !t.idx.Has(sheet.RolePassageGroup) && !(t.idx.Has(sheet.RoleWeek) && t.idx.Has(sheet.RoleSession)) {
		return nil, &sheet.SchemaError{Table: t.name, Missing: []sheet.Role{sheet.RolePassageGroup}}
	}
	return catalog.BuildGenreLookup(t.body, t.idx, book), nil
}

// GetSummary aggregates one student's wrong answers over an inclusive week range,
// optionally restricted to one book.
func (s *Service) GetSummary(studentID string, fromWeek, toWeek int, book string) (*model.SummaryResponse, error) {
	studentID = strings.TrimSpace(studentID)
	book = strings.TrimSpace(book)
	if studentID == "" {
		return nil, invalidf("student id is required")
	}
	if fromWeek < 1 || toWeek < fromWeek {
		return nil, invalidf("bad week range %d..%d", fromWeek, toWeek)
	}

	genres, err := s.loadGenres(book)
	if err != nil {
		return nil, err
	}
	questions, err := s.loadQuestions()
	if err != nil {
		return nil, err
	}
	log, err := s.loadLog()
	if err != nil {
		return nil, err
	}

	cat := catalog.Normalize(questions.body, questions.idx, genres,
		catalog.Options{Book: book, FromWeek: fromWeek, ToWeek: toWeek})
	resp := Aggregate(log.body, log.idx, cat, Request{
		StudentID: studentID,
		FromWeek:  fromWeek,
		ToWeek:    toWeek,
		Book:      book,
	})
	slog.Info("summary computed",
		"student", studentID, "from", fromWeek, "to", toWeek, "book", book,
		"questions", resp.TotalQuestions, "wrong", resp.TotalWrong)
	return resp, nil
}

// SessionBlueprint lists the question slots of a session in display order.
func (s *Service) SessionBlueprint(week int, session, book string) (*model.Blueprint, error) {
	if week < 1 {
		return nil, invalidf("week must be positive, got %d", week)
	}
	n, ok := sheet.ParseInt(session)
	if !ok {
		return nil, invalidf("session must be a number, got %q", session)
	}
	questions, err := s.loadQuestions()
	if err != nil {
		return nil, err
	}
	cat := catalog.Normalize(questions.body, questions.idx, nil, catalog.Options{Book: strings.TrimSpace(book)})
	return &model.Blueprint{
		Week:      week,
		Session:   strings.TrimSpace(session),
		Book:      strings.TrimSpace(book),
		Questions: cat.Slots(week, n),
	}, nil
}

// RecordWrongAnswers appends one log row per wrong slot. Repeated submissions add
// more rows; nothing is deduplicated.
func (s *Service) RecordWrongAnswers(req model.RecordRequest) (*model.RecordResult, error) {
	studentID := strings.TrimSpace(req.StudentID)
	session := strings.TrimSpace(req.Session)
	switch {
	case studentID == "":
		return nil, invalidf("student id is required")
	case session == "":
		return nil, invalidf("session is required")
	case req.Week < 1:
		return nil, invalidf("week must be positive, got %d", req.Week)
	}

	rows, err := s.src.GetTable(model.TableAnswerLog)
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", model.TableAnswerLog, err)
	}
	header, _ := sheet.Split(rows)
	idx := sheet.Resolve(header, sheet.DefaultRoles)
	if err := idx.Require(model.TableAnswerLog,
		sheet.RoleStudentID, sheet.RoleWeek, sheet.RoleSession, sheet.RoleSlot, sheet.RoleWrongFlag); err != nil {
		return nil, err
	}

	date := s.now().In(s.loc).Format(DateLayout)
	count := 0
	for _, slot := range req.WrongSlots {
		slot = catalog.NormalizeSlot(slot)
		if slot == "" {
			continue
		}
		row := make(sheet.Row, len(header))
		for i := range row {
			row[i] = ""
		}
		set := func(r sheet.Role, v any) {
			if c := idx.Col(r); c.Present() {
				row[c] = v
			}
		}
		set(sheet.RoleLogID, "LOG_"+uuid.NewString())
		set(sheet.RoleDate, date)
		set(sheet.RoleStudentID, studentID)
		set(sheet.RoleWeek, req.Week)
		set(sheet.RoleSession, session)
		set(sheet.RoleSlot, slot)
		set(sheet.RoleWrongFlag, true)
		set(sheet.RoleArea, catalog.InferArea(slot))
		if b := strings.TrimSpace(req.Book); b != "" {
			set(sheet.RoleBook, b)
		}
		if err := s.src.AppendRow(model.TableAnswerLog, row); err != nil {
			return nil, fmt.Errorf("append wrong answer %s: %w", slot, err)
		}
		count++
	}
	slog.Info("recorded wrong answers", "student", studentID, "week", req.Week, "session", session, "count", count)
	return &model.RecordResult{Success: true, Count: count}, nil
}

// WrongList returns the slots a student marked wrong in one session, in log order.
func (s *Service) WrongList(studentID string, week int, session string) ([]string, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" || week < 1 || strings.TrimSpace(session) == "" {
		return nil, invalidf("student id, week and session are required")
	}
	log, err := s.loadLog()
	if err != nil {
		return nil, err
	}
	slots := []string{}
	for _, row := range log.body {
		if !inSession(log.idx, row, week, session) ||
			!sheet.SameText(row.Text(log.idx.Col(sheet.RoleStudentID)), studentID) ||
			!row.Truthy(log.idx.Col(sheet.RoleWrongFlag)) {
			continue
		}
		if slot := catalog.NormalizeSlot(row.Text(log.idx.Col(sheet.RoleSlot))); slot != "" {
			slots = append(slots, slot)
		}
	}
	return lo.Uniq(slots), nil
}

func inSession(idx sheet.FieldIndex, row sheet.Row, week int, session string) bool {
	w, ok := row.Int(idx.Col(sheet.RoleWeek))
	return ok && w == week && catalog.SameSession(week, row.Text(idx.Col(sheet.RoleSession)), session)
}

// Analysis counts wrong answers per slot for one session across all students, or
// for one student when studentID is set. Slots are ordered by count, then by slot.
func (s *Service) Analysis(week int, session, studentID string) ([]model.SlotStat, error) {
	if week < 1 || strings.TrimSpace(session) == "" {
		return nil, invalidf("week and session are required")
	}
	questions, err := s.loadQuestions()
	if err != nil {
		return nil, err
	}
	log, err := s.loadLog()
	if err != nil {
		return nil, err
	}
	cat := catalog.Normalize(questions.body, questions.idx, nil, catalog.Options{})
	n, _ := sheet.ParseInt(session)

	stats := map[string]*model.SlotStat{}
	for _, row := range log.body {
		if !inSession(log.idx, row, week, session) || !row.Truthy(log.idx.Col(sheet.RoleWrongFlag)) {
			continue
		}
		if studentID != "" && !sheet.SameText(row.Text(log.idx.Col(sheet.RoleStudentID)), studentID) {
			continue
		}
		slot := catalog.NormalizeSlot(row.Text(log.idx.Col(sheet.RoleSlot)))
		if slot == "" {
			continue
		}
		st, ok := stats[slot]
		if !ok {
			st = &model.SlotStat{
				Slot: slot,
				Type: row.Text(log.idx.Col(sheet.RoleType)),
				Area: catalog.ResolveArea(slot, row.Text(log.idx.Col(sheet.RoleArea))),
			}
			if meta, found := cat.Lookup(catalog.NewKey(week, n, slot)); found {
				st.Type, st.Area = meta.Type, meta.Area
			}
			stats[slot] = st
		}
		st.Count++
	}

	slots := lo.Keys(stats)
	catalog.SortSlots(slots)
	out := lo.Map(slots, func(slot string, _ int) model.SlotStat { return *stats[slot] })
	slices.SortStableFunc(out, func(a, b model.SlotStat) int { return cmp.Compare(b.Count, a.Count) })
	return out, nil
}

// Students returns roster entries that have both a name and an id.
func (s *Service) Students() ([]model.Student, error) {
	t, err := s.load(model.TableStudentDB, sheet.RoleName, sheet.RoleStudentID)
	if err != nil {
		return nil, err
	}
	return lo.FilterMap(t.body, func(row sheet.Row, _ int) (model.Student, bool) {
		st := model.Student{
			Name: row.Text(t.idx.Col(sheet.RoleName)),
			ID:   row.Text(t.idx.Col(sheet.RoleStudentID)),
		}
		return st, st.Name != "" && st.ID != ""
	}), nil
}

// Books returns the books named in the question catalog.
func (s *Service) Books() ([]string, error) {
	questions, err := s.loadQuestions()
	if err != nil {
		return nil, err
	}
	if !questions.idx.Has(sheet.RoleBook) {
		return []string{}, nil
	}
	return catalog.Normalize(questions.body, questions.idx, nil, catalog.Options{}).Books(), nil
}
