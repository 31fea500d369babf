package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	appI18n "github.com/pavelanni/wrongnote/internal/i18n"
	"github.com/pavelanni/wrongnote/internal/llm"
	"github.com/pavelanni/wrongnote/internal/model"
	"github.com/pavelanni/wrongnote/internal/sheet"
	"github.com/pavelanni/wrongnote/internal/store"
)

func TestMain(m *testing.M) {
	if err := appI18n.Init("ko"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newTestServer(t *testing.T, coach *llm.Client) (*httptest.Server, *store.Store) {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	seed := map[string][]sheet.Row{
		model.TableQuestionDB: {
			{"Week", "Session", "Q_Slot", "Type", "Area", "PassageGroup", "Book"},
			{1, 1, "R1", "Inference", "", "", "B1"},
			{"", "", "R2", "Inference", "", "", ""},
			{"", "", "R3", "Detail", "", "", ""},
			{"", "", "V1", "Vocabulary", "", "", ""},
		},
		model.TableStudentDB: {
			{"Name", "ID"},
			{"Kim", "S1"},
			{"", "S2"},
		},
	}
	for name, rows := range seed {
		if err := s.ReplaceTable(name, rows); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}

	h := New(s, coach, time.UTC, "test")
	srv := httptest.NewServer(h.Router("ko", nil))
	t.Cleanup(srv.Close)
	return srv, s
}

func getJSON(t *testing.T, url string, wantStatus int, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s: expected status %d, got %d", url, wantStatus, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
}

func postAnswers(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/answers", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST answers: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestPing(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	var got struct {
		OK      bool   `json:"ok"`
		Version string `json:"version"`
	}
	getJSON(t, srv.URL+"/ping", http.StatusOK, &got)
	if !got.OK || got.Version != "test" {
		t.Errorf("unexpected ping response: %+v", got)
	}
}

func TestRecordThenSummarize(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp := postAnswers(t, srv, `{"student_id":"S1","week":1,"session":"1","wrong_list":["R1","r2"]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var rec model.RecordResult
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatal(err)
	}
	if !rec.Success || rec.Count != 2 {
		t.Errorf("unexpected record result: %+v", rec)
	}

	var sum model.SummaryResponse
	getJSON(t, srv.URL+"/api/summary?student_id=S1&from=1&to=1", http.StatusOK, &sum)
	if sum.TotalQuestions != 4 || sum.TotalWrong != 2 {
		t.Errorf("expected 4 questions and 2 wrong, got %d and %d", sum.TotalQuestions, sum.TotalWrong)
	}
	if sum.Overall.Accuracy != 50 {
		t.Errorf("expected accuracy 50, got %v", sum.Overall.Accuracy)
	}

	var alt model.SummaryResponse
	getJSON(t, srv.URL+"/api/summary?student_id=s1&from_week=1&to_week=1", http.StatusOK, &alt)
	if alt.TotalWrong != 2 {
		t.Errorf("expected alternate parameter names to work, got %d wrong", alt.TotalWrong)
	}

	var wl struct {
		WrongList []string `json:"wrong_list"`
	}
	getJSON(t, srv.URL+"/api/wrong-list?student_id=S1&week=1&session=1", http.StatusOK, &wl)
	if strings.Join(wl.WrongList, ",") != "R1,R2" {
		t.Errorf("expected R1,R2, got %v", wl.WrongList)
	}

	var stats []model.SlotStat
	getJSON(t, srv.URL+"/api/analysis?week=1&session=1", http.StatusOK, &stats)
	if len(stats) != 2 || stats[0].Slot != "R1" || stats[0].Type != "Inference" {
		t.Errorf("unexpected analysis: %+v", stats)
	}
}

func TestInsight(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	postAnswers(t, srv, `{"student_id":"S1","week":1,"session":"1","wrong_list":["R1","R2"]}`)

	var got model.Insight
	getJSON(t, srv.URL+"/api/insight?student_id=S1&from=1&to=1&lang=en&narrate=true", http.StatusOK, &got)
	if got.Diagnosis == nil {
		t.Fatal("expected a diagnosis")
	}
	if got.Diagnosis.Weakness.Name != "Inference" {
		t.Errorf("expected weakness Inference, got %q", got.Diagnosis.Weakness.Name)
	}
	if len(got.Diagnosis.Causes) == 0 || !strings.Contains(got.Diagnosis.Causes[0], "between the lines") {
		t.Errorf("expected English causes, got %v", got.Diagnosis.Causes)
	}
	if got.CoachNote != "" {
		t.Errorf("expected no coach note without a client, got %q", got.CoachNote)
	}
}

func TestInsightCoachNote(t *testing.T) {
	llmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "1",
			"object": "chat.completion",
			"choices": []map[string]any{{
				"index":   0,
				"message": map[string]any{"role": "assistant", "content": `{"note":"화이팅"}`},
			}},
		})
	}))
	defer llmSrv.Close()

	srv, _ := newTestServer(t, llm.New(llmSrv.URL+"/v1", "key", "m"))
	postAnswers(t, srv, `{"student_id":"S1","week":1,"session":"1","wrong_list":["R1"]}`)

	var plain model.Insight
	getJSON(t, srv.URL+"/api/insight?student_id=S1&from=1&to=1", http.StatusOK, &plain)
	if plain.CoachNote != "" {
		t.Errorf("expected no note without narrate, got %q", plain.CoachNote)
	}

	var narrated model.Insight
	getJSON(t, srv.URL+"/api/insight?student_id=S1&from=1&to=1&narrate=true", http.StatusOK, &narrated)
	if narrated.CoachNote != "화이팅" {
		t.Errorf("expected coach note, got %q", narrated.CoachNote)
	}
}

func TestErrorMapping(t *testing.T) {
	srv, s := newTestServer(t, nil)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"missing range", "/api/summary?student_id=S1", http.StatusBadRequest},
		{"reversed range", "/api/summary?student_id=S1&from=3&to=1", http.StatusBadRequest},
		{"missing student", "/api/summary?from=1&to=2", http.StatusBadRequest},
		{"bad week", "/api/blueprint?week=x&session=1", http.StatusBadRequest},
		{"missing session", "/api/wrong-list?student_id=S1&week=1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body errorBody
			getJSON(t, srv.URL+tt.path, tt.status, &body)
			if body.Error != "요청 값이 올바르지 않습니다." {
				t.Errorf("expected localized error, got %q", body.Error)
			}
		})
	}

	resp := postAnswers(t, srv, `{"student_id":`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed JSON, got %d", resp.StatusCode)
	}

	if err := s.ReplaceTable(model.TableQuestionDB, []sheet.Row{{"Week", "Type"}, {1, "Inference"}}); err != nil {
		t.Fatal(err)
	}
	var body errorBody
	getJSON(t, srv.URL+"/api/blueprint?week=1&session=1&lang=en", http.StatusUnprocessableEntity, &body)
	if body.Error != "A table header could not be interpreted." {
		t.Errorf("expected schema error, got %q", body.Error)
	}
	if !strings.Contains(body.Detail, model.TableQuestionDB) {
		t.Errorf("expected detail to name the table, got %q", body.Detail)
	}
}

func TestBlueprintStudentsBooks(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var bp model.Blueprint
	getJSON(t, srv.URL+"/api/blueprint?week=1&session=1", http.StatusOK, &bp)
	if len(bp.Questions) != 4 || bp.Questions[0] != "R1" || bp.Questions[3] != "V1" {
		t.Errorf("unexpected blueprint: %+v", bp)
	}

	var students []model.Student
	getJSON(t, srv.URL+"/api/students", http.StatusOK, &students)
	if len(students) != 1 || students[0].ID != "S1" {
		t.Errorf("expected only the complete roster entry, got %+v", students)
	}

	var books []string
	getJSON(t, srv.URL+"/api/books", http.StatusOK, &books)
	if len(books) != 1 || books[0] != "B1" {
		t.Errorf("expected [B1], got %v", books)
	}
}

func uploadCSV(t *testing.T, url, filename, content string) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	resp, err := http.Post(url, mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestUploadTable(t *testing.T) {
	srv, s := newTestServer(t, nil)
	csv := "이름,아이디\nPark,S3\nChoi,S4\n"

	status, out := uploadCSV(t, srv.URL+"/api/tables/student_db", "roster.csv", csv)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", status, out)
	}
	if out["table"] != model.TableStudentDB || out["rows"] != float64(3) {
		t.Errorf("unexpected upload result: %v", out)
	}

	status, out = uploadCSV(t, srv.URL+"/api/tables/student_db", "roster.csv", csv)
	if status != http.StatusOK || out["skipped"] != true {
		t.Errorf("expected unchanged upload to be skipped, got %d %v", status, out)
	}

	var students []model.Student
	getJSON(t, srv.URL+"/api/students", http.StatusOK, &students)
	if len(students) != 2 || students[0].Name != "Park" {
		t.Errorf("expected uploaded roster, got %+v", students)
	}

	if status, _ := uploadCSV(t, srv.URL+"/api/tables/student_db", "roster.pdf", csv); status != http.StatusBadRequest {
		t.Errorf("expected 400 for unsupported format, got %d", status)
	}
	if status, _ := uploadCSV(t, srv.URL+"/api/tables/1bad", "roster.csv", csv); status != http.StatusBadRequest {
		t.Errorf("expected 400 for bad table name, got %d", status)
	}

	var tables []store.TableInfo
	getJSON(t, srv.URL+"/api/tables", http.StatusOK, &tables)
	n, err := s.RowCount(model.TableStudentDB)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, ti := range tables {
		if ti.Name == model.TableStudentDB {
			found = true
			if ti.Rows != n {
				t.Errorf("expected %d rows, got %d", n, ti.Rows)
			}
		}
	}
	if !found {
		t.Errorf("expected %s in table list %+v", model.TableStudentDB, tables)
	}
}
