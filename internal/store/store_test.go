package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pavelanni/wrongnote/internal/model"
	"github.com/pavelanni/wrongnote/internal/sheet"
	"github.com/pavelanni/wrongnote/internal/summary"
)

var _ summary.TableSource = (*Store)(nil)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetTableCreatesCanonicalHeader(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		table string
		want  []string
	}{
		{model.TableAnswerLog, model.CanonicalHeader(model.TableAnswerLog)},
		{model.TableQuestionDB, []string{"Week", "Session", "Q_Slot", "Type", "Area", "PassageGroup", "Book"}},
		{model.TablePassageDB, []string{"Book", "Week", "Session", "PassageGroup", "Genre"}},
		{model.TableStudentDB, []string{"Name", "ID"}},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			rows, err := s.GetTable(tt.table)
			if err != nil {
				t.Fatalf("GetTable: %v", err)
			}
			if len(rows) != 1 {
				t.Fatalf("expected header row only, got %d rows", len(rows))
			}
			if len(rows[0]) != len(tt.want) {
				t.Fatalf("expected %d columns, got %d", len(tt.want), len(rows[0]))
			}
			for i, w := range tt.want {
				if got := rows[0].Text(sheet.Column(i)); got != w {
					t.Errorf("column %d: expected %q, got %q", i, w, got)
				}
			}
		})
	}

	// A second read must not add another header.
	rows, _ := s.GetTable(model.TableStudentDB)
	if len(rows) != 1 {
		t.Errorf("expected 1 row after second read, got %d", len(rows))
	}
}

func TestGetTableWithoutLayout(t *testing.T) {
	s := newTestStore(t)
	rows, err := s.GetTable("NOTES")
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected empty table, got %d rows", len(rows))
	}
}

func TestAppendRowPreservesCells(t *testing.T) {
	s := newTestStore(t)

	if err := s.AppendRow(model.TableStudentDB, sheet.Row{"Kim", "s1"}); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	if err := s.AppendRow(model.TableStudentDB, sheet.Row{"Lee", 42, true, nil}); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}

	rows, err := s.GetTable(model.TableStudentDB)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	last := rows[2]
	if n, ok := last.Int(1); !ok || n != 42 {
		t.Errorf("expected numeric cell 42, got %v", last[1])
	}
	if !last.Truthy(2) {
		t.Errorf("expected boolean cell to survive, got %v", last[2])
	}
	if last[3] != nil {
		t.Errorf("expected nil cell, got %v", last[3])
	}
}

func TestReplaceTable(t *testing.T) {
	s := newTestStore(t)
	if err := s.AppendRow(model.TableQuestionDB, sheet.Row{1, 1, "R1"}); err != nil {
		t.Fatal(err)
	}

	replacement := []sheet.Row{
		{"주차", "회차", "문항"},
		{1, 1, "R1"},
		{"", "", "R2"},
	}
	if err := s.ReplaceTable(model.TableQuestionDB, replacement); err != nil {
		t.Fatalf("ReplaceTable: %v", err)
	}

	n, err := s.RowCount(model.TableQuestionDB)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("expected 3 rows, got %d", n)
	}
	rows, _ := s.GetTable(model.TableQuestionDB)
	if got := rows[0].Text(0); got != "주차" {
		t.Errorf("expected imported header, got %q", got)
	}

	tables, err := s.ListTables()
	if err != nil {
		t.Fatal(err)
	}
	if len(tables) != 1 || tables[0].Name != model.TableQuestionDB || tables[0].Rows != 3 {
		t.Errorf("unexpected tables: %+v", tables)
	}
}

func TestStoreBacksSummaryService(t *testing.T) {
	s := newTestStore(t)
	if err := s.ReplaceTable(model.TableQuestionDB, []sheet.Row{
		{"Week", "Session", "Q_Slot", "Type"},
		{1, 1, "R1", "Inference"},
		{"", "", "V1", "Vocabulary"},
	}); err != nil {
		t.Fatal(err)
	}

	svc := summary.NewService(s, nil)
	if _, err := svc.RecordWrongAnswers(model.RecordRequest{
		StudentID: "S1", Week: 1, Session: "1", WrongSlots: []string{"R1"},
	}); err != nil {
		t.Fatalf("RecordWrongAnswers: %v", err)
	}

	resp, err := svc.GetSummary("S1", 1, 1, "")
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if resp.TotalQuestions != 2 || resp.TotalWrong != 1 || resp.Overall.Accuracy != 50 {
		t.Errorf("unexpected summary: %+v", resp)
	}
}

func TestImportedFileHash(t *testing.T) {
	s := newTestStore(t)

	hash, err := s.GetImportedFileHash("/some/path.csv")
	if err != nil {
		t.Fatalf("GetImportedFileHash: %v", err)
	}
	if hash != "" {
		t.Errorf("expected empty hash, got %q", hash)
	}

	if err := s.SetImportedFileHash("/some/path.csv", "abc123"); err != nil {
		t.Fatalf("SetImportedFileHash: %v", err)
	}
	hash, _ = s.GetImportedFileHash("/some/path.csv")
	if hash != "abc123" {
		t.Errorf("expected 'abc123', got %q", hash)
	}

	if err := s.SetImportedFileHash("/some/path.csv", "def456"); err != nil {
		t.Fatalf("SetImportedFileHash update: %v", err)
	}
	hash, _ = s.GetImportedFileHash("/some/path.csv")
	if hash != "def456" {
		t.Errorf("expected 'def456', got %q", hash)
	}
}

func TestFileDatabasePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wrongnote.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.AppendRow(model.TableStudentDB, sheet.Row{"Kim", "s1"}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	n, err := s.RowCount(model.TableStudentDB)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 rows after reopen, got %d", n)
	}
}

func TestMetadataTimestamps(t *testing.T) {
	s := newTestStore(t)

	value, at, err := s.GetMetadata("missing")
	if err != nil || value != "" || !at.IsZero() {
		t.Errorf("expected empty result for missing key, got %q %v %v", value, at, err)
	}

	before := time.Now().Add(-time.Minute)
	if err := s.SetMetadata("k", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetMetadata("k", "v2"); err != nil {
		t.Fatal(err)
	}
	value, at, err = s.GetMetadata("k")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if value != "v2" {
		t.Errorf("expected v2, got %q", value)
	}
	if at.Before(before) {
		t.Errorf("expected a recent timestamp, got %v", at)
	}
}
