package summary

import (
	"cmp"
	"log/slog"
	"math"
	"slices"
	"strconv"

	"github.com/pavelanni/wrongnote/internal/catalog"
	"github.com/pavelanni/wrongnote/internal/model"
	"github.com/pavelanni/wrongnote/internal/sheet"
	"github.com/samber/lo"
)

// Request selects the log rows to aggregate.
type Request struct {
	StudentID string
	FromWeek  int
	ToWeek    int
	Book      string
}

var unknownMeta = &model.QuestionMeta{Type: model.Unknown, Area: model.Unknown, Passage: model.Unknown}

// Accuracy returns the percentage of correct answers rounded to one decimal and
// clamped to [0, 100]. An empty bucket has accuracy 0.
func Accuracy(total, wrong int) float64 {
	if total <= 0 {
		return 0
	}
	a := (1 - float64(wrong)/float64(total)) * 100
	a = math.Max(0, math.Min(100, a))
	return math.Round(a*10) / 10
}

type wrongTallies struct {
	byType, byArea, byPassage, byWeek *catalog.Tally
	literature, nonLiterature         int
}

// Aggregate computes the summary for one student from the answer log body, using
// the catalog for question metadata and for the denominators.
func Aggregate(rows []sheet.Row, idx sheet.FieldIndex, cat *catalog.Catalog, req Request) *model.SummaryResponse {
	w := wrongTallies{
		byType:    catalog.NewTally(),
		byArea:    catalog.NewTally(),
		byPassage: catalog.NewTally(),
		byWeek:    catalog.NewTally(),
	}
	var (
		bookCol    = idx.Col(sheet.RoleBook)
		studentCol = idx.Col(sheet.RoleStudentID)
		weekCol    = idx.Col(sheet.RoleWeek)
		sessionCol = idx.Col(sheet.RoleSession)
		slotCol    = idx.Col(sheet.RoleSlot)
		wrongCol   = idx.Col(sheet.RoleWrongFlag)
		dateCol    = idx.Col(sheet.RoleDate)
	)

	resp := &model.SummaryResponse{
		StudentID: req.StudentID,
		FromWeek:  req.FromWeek,
		ToWeek:    req.ToWeek,
		Book:      req.Book,
		WrongList: []model.WrongAnswer{},
	}
	misses := 0
	for _, row := range rows {
		if req.Book != "" {
			if b := row.Text(bookCol); b != "" && !sheet.SameText(b, req.Book) {
				continue
			}
		}
		if !sheet.SameText(row.Text(studentCol), req.StudentID) {
			continue
		}
		week, ok := row.Int(weekCol)
		if !ok || week < req.FromWeek || week > req.ToWeek {
			continue
		}
		resp.MatchedRows++
		if !row.Truthy(wrongCol) {
			continue
		}
		resp.TotalWrong++

		session := row.Text(sessionCol)
		slot := row.Text(slotCol)
		meta := unknownMeta
		if n, ok := sheet.ParseInt(session); ok {
			if m, found := cat.Lookup(catalog.NewKey(week, n, slot)); found {
				meta = m
			}
		}
		if meta == unknownMeta {
			misses++
			slog.Debug("log row not in catalog", "week", week, "session", session, "slot", slot)
		}

		w.byType.Add(meta.Type, 1)
		w.byArea.Add(meta.Area, 1)
		w.byPassage.Add(meta.Passage, 1)
		w.byWeek.Add(strconv.Itoa(week), 1)
		if meta.Area == model.AreaReading {
			switch catalog.Classify(meta.Passage) {
			case catalog.Literature:
				w.literature++
			case catalog.NonLiterature:
				w.nonLiterature++
			}
		}
		resp.WrongList = append(resp.WrongList, model.WrongAnswer{
			Week:    week,
			Session: session,
			Slot:    catalog.NormalizeSlot(slot),
			Type:    meta.Type,
			Area:    meta.Area,
			Passage: meta.Passage,
			Date:    row.Text(dateCol),
		})
	}

	totals := cat.Totals
	resp.TotalQuestions = totals.Questions
	resp.ByQType = buckets(totals.ByType, w.byType)
	resp.ByArea = buckets(totals.ByArea, w.byArea)
	resp.ByPassageGroup = buckets(totals.ByPassage, w.byPassage)
	resp.ByWeek = buckets(totals.ByWeek, w.byWeek)

	slices.SortStableFunc(resp.ByQType, func(a, b model.MetricBucket) int { return cmp.Compare(a.Accuracy, b.Accuracy) })
	slices.SortStableFunc(resp.ByArea, func(a, b model.MetricBucket) int { return cmp.Compare(b.Accuracy, a.Accuracy) })
	slices.SortStableFunc(resp.ByPassageGroup, func(a, b model.MetricBucket) int { return cmp.Compare(b.Accuracy, a.Accuracy) })
	slices.SortStableFunc(resp.ByWeek, func(a, b model.MetricBucket) int { return cmp.Compare(weekNumber(a.Name), weekNumber(b.Name)) })

	resp.Overall = model.Overall{
		Accuracy:        Accuracy(totals.Questions, resp.TotalWrong),
		ReadingAccuracy: bucketAccuracy(resp.ByArea, model.AreaReading),
		VocabAccuracy:   bucketAccuracy(resp.ByArea, model.AreaVocabulary),
	}
	resp.Comparison = model.Comparison{
		Literature:    newBucket("Literature", totals.Literature, w.literature),
		NonLiterature: newBucket("NonLiterature", totals.NonLiterature, w.nonLiterature),
	}

	slog.Debug("summary aggregated",
		"student", req.StudentID, "matched", resp.MatchedRows, "wrong", resp.TotalWrong, "uncatalogued", misses)
	return resp
}

func newBucket(name string, total, wrong int) model.MetricBucket {
	return model.MetricBucket{Name: name, Total: total, Wrong: wrong, Accuracy: Accuracy(total, wrong)}
}

// buckets merges catalog totals with wrong counts. Keys appear in catalog order,
// followed by keys that only occur among wrong answers.
func buckets(totals, wrongs *catalog.Tally) []model.MetricBucket {
	keys := lo.Uniq(append(totals.Keys(), wrongs.Keys()...))
	return lo.Map(keys, func(k string, _ int) model.MetricBucket {
		return newBucket(k, totals.Get(k), wrongs.Get(k))
	})
}

func bucketAccuracy(bs []model.MetricBucket, name string) float64 {
	b, ok := lo.Find(bs, func(b model.MetricBucket) bool { return b.Name == name })
	if !ok {
		return 0
	}
	return b.Accuracy
}

func weekNumber(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return math.MaxInt
	}
	return n
}
