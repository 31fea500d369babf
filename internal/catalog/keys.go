package catalog

import (
	"cmp"
	"slices"
	"strings"

	"github.com/pavelanni/wrongnote/internal/model"
	"github.com/pavelanni/wrongnote/internal/sheet"
	"github.com/samber/lo"
)

// Key identifies one question slot.
type Key struct {
	Week    int
	Session int
	Slot    string
}

// NewKey builds a key with the slot upper-cased and stripped of whitespace.
func NewKey(week, session int, slot string) Key {
	return Key{Week: week, Session: session, Slot: NormalizeSlot(slot)}
}

// NormalizeSlot canonicalizes a slot code such as " r 1" to "R1".
func NormalizeSlot(slot string) string {
	return strings.ToUpper(strings.Join(strings.Fields(slot), ""))
}

// GlobalSession converts a within-week session number to the course-wide number.
func GlobalSession(week, session int) int {
	return (week-1)*model.SessionsPerWeek + session
}

// RelativeSession converts a course-wide session number to its within-week number.
func RelativeSession(week, session int) int {
	return session - (week-1)*model.SessionsPerWeek
}

// SessionAliases returns session followed by the same session under the other
// numbering convention, when that differs and is meaningful.
func SessionAliases(week, session int) []int {
	out := []int{session}
	var alt int
	if session <= model.SessionsPerWeek {
		alt = GlobalSession(week, session)
	} else {
		alt = RelativeSession(week, session)
		if alt < 1 || alt > model.SessionsPerWeek {
			return out
		}
	}
	if alt != session {
		out = append(out, alt)
	}
	return out
}

// AlternateKeys returns the literal key first, then the key under the other
// session numbering convention.
func AlternateKeys(week, session int, slot string) []Key {
	return lo.Map(SessionAliases(week, session), func(s int, _ int) Key {
		return NewKey(week, s, slot)
	})
}

// SameSession reports whether two session labels name the same session of week
// under either numbering convention.
func SameSession(week int, a, b string) bool {
	na, okA := sheet.ParseInt(a)
	nb, okB := sheet.ParseInt(b)
	if !okA || !okB {
		return sheet.SameText(a, b)
	}
	return lo.Contains(SessionAliases(week, na), nb)
}

// InferArea derives the area from the slot prefix: R is Reading, V is Vocabulary.
func InferArea(slot string) string {
	s := NormalizeSlot(slot)
	switch {
	case strings.HasPrefix(s, "R"):
		return model.AreaReading
	case strings.HasPrefix(s, "V"):
		return model.AreaVocabulary
	}
	return model.Unknown
}

// areaFromLabel maps a free-text area cell onto the known areas.
func areaFromLabel(label string) string {
	l := sheet.Fold(label)
	switch {
	case l == "":
		return model.Unknown
	case strings.Contains(l, "read"), strings.Contains(l, "독해"), strings.Contains(l, "독서"):
		return model.AreaReading
	case strings.Contains(l, "voc"), strings.Contains(l, "어휘"):
		return model.AreaVocabulary
	}
	return model.Unknown
}

// ResolveArea prefers the slot prefix and falls back to the area column.
func ResolveArea(slot, areaCell string) string {
	if a := InferArea(slot); a != model.Unknown {
		return a
	}
	return areaFromLabel(areaCell)
}

// SortSlots orders slot codes by letter prefix, then by numeric suffix, so R2 comes
// before R10 and every R slot before V slots.
func SortSlots(slots []string) {
	slices.SortStableFunc(slots, compareSlots)
}

func compareSlots(a, b string) int {
	pa, na := splitSlot(a)
	pb, nb := splitSlot(b)
	if c := cmp.Compare(pa, pb); c != 0 {
		return c
	}
	if c := cmp.Compare(na, nb); c != 0 {
		return c
	}
	return cmp.Compare(a, b)
}

func splitSlot(slot string) (string, int) {
	s := NormalizeSlot(slot)
	i := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
	if i < 0 {
		return s, -1
	}
	n, ok := sheet.ParseInt(s[i:])
	if !ok {
		n = -1
	}
	return s[:i], n
}
