package catalog

import (
	"testing"

	"github.com/pavelanni/wrongnote/internal/sheet"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		genre string
		want  Category
	}{
		{"현대소설", Literature},
		{"고전 시가", Literature},
		{"Modern Poetry", Literature},
		{"비문학", NonLiterature},
		{"인문", NonLiterature},
		{"Science", NonLiterature},
		{"-", Unclassified},
		{"", Unclassified},
		{"Unknown", Unclassified},
		{"P3", Unclassified},
	}
	for _, tt := range tests {
		t.Run(tt.genre, func(t *testing.T) {
			if got := Classify(tt.genre); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestGenreLookup(t *testing.T) {
	rows := []sheet.Row{
		{"Book A", 1.0, 1.0, "P1", "소설"},
		{"", "", "", "P1", "ignored duplicate"},
		{"Book B", 1.0, 1.0, "P1", "과학"},
		{"Book B", 1.0, 2.0, "", "수필"},
		{"", "", "", "P2", ""},
	}
	g := BuildGenreLookup(rows, resolve(passageHeader), "")

	tests := []struct {
		name        string
		book, group string
		want        string
		ok          bool
	}{
		{"book and group", "book a", "P1", "소설", true},
		{"other book same group", "Book B", "p1", "과학", true},
		{"group only falls back to first row", "", "P1", "소설", true},
		{"unknown book falls back to group", "Book Z", "P1", "소설", true},
		{"blank genre is not indexed", "Book B", "P2", "", false},
		{"empty group", "Book A", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := g.Lookup(tt.book, tt.group)
			if ok != tt.ok || got != tt.want {
				t.Errorf("expected (%q, %v), got (%q, %v)", tt.want, tt.ok, got, ok)
			}
		})
	}
}

func TestGenreForSession(t *testing.T) {
	rows := []sheet.Row{
		{"Korean Reading Basic", 1.0, 1.0, "", "소설"},
		{"Korean Vocab Master", 1.0, 1.0, "", "인문"},
		{"Solo", 2.0, 1.0, "", "희곡"},
	}
	g := BuildGenreLookup(rows, resolve(passageHeader), "")

	tests := []struct {
		name          string
		week, session int
		book          string
		want          string
		ok            bool
	}{
		{"single candidate", 2, 1, "anything", "희곡", true},
		{"best token overlap", 1, 1, "vocab master", "인문", true},
		{"tie goes to first candidate", 1, 1, "korean", "소설", true},
		{"no overlap is no match", 1, 1, "math", "", false},
		{"no candidates", 9, 9, "Solo", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := g.ForSession(tt.week, tt.session, tt.book)
			if ok != tt.ok || got != tt.want {
				t.Errorf("expected (%q, %v), got (%q, %v)", tt.want, tt.ok, got, ok)
			}
		})
	}
}

func TestGenreLookupTargetBook(t *testing.T) {
	rows := []sheet.Row{
		{"Book A", 1.0, 1.0, "P1", "소설"},
		{"Book B", 1.0, 1.0, "P1", "과학"},
	}
	g := BuildGenreLookup(rows, resolve(passageHeader), "Book B")
	if got, _ := g.Lookup("", "P1"); got != "과학" {
		t.Errorf("expected other books to be skipped, got %q", got)
	}
}
