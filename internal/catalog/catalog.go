// Package catalog normalizes the question and passage reference tables.
package catalog

import (
	"log/slog"
	"slices"
	"strconv"

	"github.com/pavelanni/wrongnote/internal/model"
	"github.com/pavelanni/wrongnote/internal/sheet"
	"github.com/samber/lo"
)

// carry holds the last non-blank week, session and book seen while scanning a
// sparse table. Each row produces a new value; nothing is mutated in place.
type carry struct {
	week    string
	session string
	book    string
}

func (c carry) advance(row sheet.Row, idx sheet.FieldIndex) carry {
	return carry{
		week:    orElse(row.Text(idx.Col(sheet.RoleWeek)), c.week),
		session: orElse(row.Text(idx.Col(sheet.RoleSession)), c.session),
		book:    orElse(row.Text(idx.Col(sheet.RoleBook)), c.book),
	}
}

func orElse(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

// Options restricts normalization.
type Options struct {
	// Book keeps only rows of this book. Rows whose book is unknown are kept.
	Book string
	// FromWeek and ToWeek bound the rows counted into Totals. Rows outside the
	// range are still indexed.
	FromWeek int
	ToWeek   int
}

// Question is one catalog row after fill-down.
type Question struct {
	Key  Key
	Book string
	Meta *model.QuestionMeta
}

// Totals counts catalog questions inside the requested week range.
type Totals struct {
	Questions     int
	ByType        *Tally
	ByArea        *Tally
	ByPassage     *Tally
	ByWeek        *Tally
	Literature    int
	NonLiterature int
}

func newTotals() Totals {
	return Totals{ByType: NewTally(), ByArea: NewTally(), ByPassage: NewTally(), ByWeek: NewTally()}
}

func (t *Totals) count(week int, meta *model.QuestionMeta) {
	t.Questions++
	t.ByType.Add(meta.Type, 1)
	t.ByArea.Add(meta.Area, 1)
	t.ByPassage.Add(meta.Passage, 1)
	t.ByWeek.Add(strconv.Itoa(week), 1)
	if meta.Area != model.AreaReading {
		return
	}
	switch Classify(meta.Passage) {
	case Literature:
		t.Literature++
	case NonLiterature:
		t.NonLiterature++
	}
}

// Catalog is the normalized question table.
type Catalog struct {
	entries   map[Key]*model.QuestionMeta
	questions []Question
	Totals    Totals
}

// Normalize builds the catalog from the question table body. genres may be nil, in
// which case passages resolve to their raw group label.
func Normalize(rows []sheet.Row, idx sheet.FieldIndex, genres *GenreLookup, opts Options) *Catalog {
	cat := &Catalog{
		entries: make(map[Key]*model.QuestionMeta),
		Totals:  newTotals(),
	}
	var c carry
	skipped := 0
	for _, row := range rows {
		c = c.advance(row, idx)
		if opts.Book != "" && c.book != "" && !sheet.SameText(c.book, opts.Book) {
			continue
		}
		week, okW := sheet.ParseInt(c.week)
		session, okS := sheet.ParseInt(c.session)
		slot := row.Text(idx.Col(sheet.RoleSlot))
		if !okW || !okS || slot == "" {
			skipped++
			continue
		}
		group := row.Text(idx.Col(sheet.RolePassageGroup))
		meta := &model.QuestionMeta{
			Type:            orElse(row.Text(idx.Col(sheet.RoleType)), model.Unknown),
			Area:            ResolveArea(slot, row.Text(idx.Col(sheet.RoleArea))),
			Passage:         resolvePassage(genres, c.book, group, week, session),
			RawPassageGroup: group,
		}
		cat.add(week, session, slot, c.book, meta)
		if week >= opts.FromWeek && week <= opts.ToWeek {
			cat.Totals.count(week, meta)
		}
	}
	slog.Debug("catalog normalized", "questions", len(cat.questions), "keys", len(cat.entries), "skipped", skipped)
	return cat
}

// add indexes meta under the literal key, replacing any earlier row, and under the
// alternate session key only if nothing claimed it yet.
func (c *Catalog) add(week, session int, slot, book string, meta *model.QuestionMeta) {
	keys := AlternateKeys(week, session, slot)
	c.entries[keys[0]] = meta
	for _, k := range keys[1:] {
		if _, ok := c.entries[k]; !ok {
			c.entries[k] = meta
		}
	}
	c.questions = append(c.questions, Question{Key: keys[0], Book: book, Meta: meta})
}

// resolvePassage returns the genre of the passage, trying the book-qualified group,
// the bare group, then the session under both numbering conventions. Without a
// genre it falls back to the raw group label, then to Unknown.
func resolvePassage(genres *GenreLookup, book, group string, week, session int) string {
	if genre, ok := genres.Lookup(book, group); ok {
		return genre
	}
	for _, s := range SessionAliases(week, session) {
		if genre, ok := genres.ForSession(week, s, book); ok {
			return genre
		}
	}
	if group != "" {
		return group
	}
	return model.Unknown
}

// Lookup returns the metadata for key.
func (c *Catalog) Lookup(k Key) (*model.QuestionMeta, bool) {
	m, ok := c.entries[k]
	return m, ok
}

// Slots returns the sorted, distinct slots of one session. The session may use
// either numbering convention.
func (c *Catalog) Slots(week, session int) []string {
	var slots []string
	for k := range c.entries {
		if k.Week == week && k.Session == session {
			slots = append(slots, k.Slot)
		}
	}
	slots = lo.Uniq(slots)
	SortSlots(slots)
	if slots == nil {
		slots = []string{}
	}
	return slots
}

// Questions returns the catalog rows in table order.
func (c *Catalog) Questions() []Question { return c.questions }

// Books returns the distinct books named in the catalog, sorted. Spelling variants
// that differ only in case or spacing are merged under the first spelling seen.
func (c *Catalog) Books() []string {
	books := lo.UniqBy(
		lo.FilterMap(c.questions, func(q Question, _ int) (string, bool) { return q.Book, q.Book != "" }),
		sheet.Fold,
	)
	slices.Sort(books)
	if books == nil {
		books = []string{}
	}
	return books
}
