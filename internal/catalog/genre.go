package catalog

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/pavelanni/wrongnote/internal/sheet"
	"github.com/samber/lo"
)

// Category is the literature split of a genre label.
type Category int

const (
	Unclassified Category = iota
	Literature
	NonLiterature
)

func (c Category) String() string {
	switch c {
	case Literature:
		return "Literature"
	case NonLiterature:
		return "NonLiterature"
	}
	return "Unclassified"
}

var literatureKeywords = []string{
	"novel", "poem", "poetry", "essay", "drama",
	"소설", "현대시", "고전시", "시가", "시조", "수필", "희곡", "시나리오", "고전산문",
}

var nonLiteratureKeywords = []string{
	"humanities", "science", "technology", "society", "art", "editorial", "expository", "nonfiction",
	"비문학", "독서", "인문", "과학", "기술", "사회", "예술", "논설", "설명", "철학", "경제",
}

// Classify buckets a genre label. Blank labels, "-" and "unknown" are unclassified.
// Literature keywords are tried first; none of them occurs inside "비문학".
func Classify(genre string) Category {
	g := sheet.Fold(genre)
	switch g {
	case "", "-", "unknown":
		return Unclassified
	}
	if strings.Contains(g, "비문학") {
		return NonLiterature
	}
	for _, kw := range literatureKeywords {
		if strings.Contains(g, kw) {
			return Literature
		}
	}
	for _, kw := range nonLiteratureKeywords {
		if strings.Contains(g, kw) {
			return NonLiterature
		}
	}
	return Unclassified
}

type genreCandidate struct {
	book   string
	genre  string
	tokens []string
}

type sessionKey struct {
	week    int
	session int
}

// GenreLookup resolves passage groups to genre labels.
type GenreLookup struct {
	byBookGroup map[string]string
	byGroup     map[string]string
	bySession   map[sessionKey][]genreCandidate
}

// BuildGenreLookup indexes the passage catalog body. Rows of another book than
// targetBook are skipped when both are known. The first row for a key wins.
func BuildGenreLookup(rows []sheet.Row, idx sheet.FieldIndex, targetBook string) *GenreLookup {
	g := &GenreLookup{
		byBookGroup: make(map[string]string),
		byGroup:     make(map[string]string),
		bySession:   make(map[sessionKey][]genreCandidate),
	}
	var c carry
	for _, row := range rows {
		c = c.advance(row, idx)
		if targetBook != "" && c.book != "" && !sheet.SameText(c.book, targetBook) {
			continue
		}
		genre := row.Text(idx.Col(sheet.RoleGenre))
		if genre == "" {
			continue
		}
		if group := row.Text(idx.Col(sheet.RolePassageGroup)); group != "" {
			gk := sheet.Fold(group)
			if c.book != "" {
				setOnce(g.byBookGroup, bookGroupKey(c.book, group), genre)
			}
			setOnce(g.byGroup, gk, genre)
		}
		week, okW := sheet.ParseInt(c.week)
		session, okS := sheet.ParseInt(c.session)
		if okW && okS {
			k := sessionKey{week, session}
			g.bySession[k] = append(g.bySession[k], genreCandidate{book: c.book, genre: genre, tokens: tokens(c.book)})
		}
	}
	slog.Debug("genre lookup built", "groups", len(g.byGroup), "sessions", len(g.bySession))
	return g
}

// Lookup resolves a passage group, first qualified by book, then on its own.
func (g *GenreLookup) Lookup(book, group string) (string, bool) {
	if g == nil || strings.TrimSpace(group) == "" {
		return "", false
	}
	if book != "" {
		if v, ok := g.byBookGroup[bookGroupKey(book, group)]; ok {
			return v, true
		}
	}
	v, ok := g.byGroup[sheet.Fold(group)]
	return v, ok
}

// ForSession resolves the genre of a session when the passage group is unknown.
// A single candidate is returned as is; among several, the one whose book shares
// the most tokens with book wins, and no overlap at all is no match.
func (g *GenreLookup) ForSession(week, session int, book string) (string, bool) {
	if g == nil {
		return "", false
	}
	cands := g.bySession[sessionKey{week, session}]
	switch len(cands) {
	case 0:
		return "", false
	case 1:
		return cands[0].genre, true
	}
	target := tokens(book)
	best, bestScore := -1, 0
	for i, c := range cands {
		if s := len(lo.Intersect(target, c.tokens)); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return "", false
	}
	return cands[best].genre, true
}

func bookGroupKey(book, group string) string {
	return sheet.Fold(book) + "\x00" + sheet.Fold(group)
}

func setOnce(m map[string]string, k, v string) {
	if _, ok := m[k]; !ok {
		m[k] = v
	}
}

// tokens splits text on anything that is not a letter or digit.
func tokens(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return lo.Uniq(fields)
}
