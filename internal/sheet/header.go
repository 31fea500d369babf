package sheet

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Role is the logical meaning of a column.
type Role int

const (
	RoleLogID Role = iota
	RoleBook
	RoleName
	RoleStudentID
	RoleWeek
	RoleSession
	RoleGenre
	RoleType
	RoleArea
	RolePassageGroup
	RoleSlot
	RoleWrongFlag
	RoleDate
	roleCount
)

var roleNames = [roleCount]string{
	"log_id", "book", "name", "student_id", "week", "session", "genre",
	"type", "area", "passage_group", "slot", "wrong_flag", "date",
}

func (r Role) String() string {
	if r < 0 || r >= roleCount {
		return fmt.Sprintf("role(%d)", int(r))
	}
	return roleNames[r]
}

// Column is a zero-based column position, or Absent.
type Column int

// Absent marks a role that no header label matched.
const Absent Column = -1

// Present reports whether the column exists.
func (c Column) Present() bool { return c >= 0 }

// RoleSpec describes which normalized header labels map to a role.
type RoleSpec struct {
	Role Role
	// Contains matches when the normalized label contains any keyword.
	Contains []string
	// Exact matches only when the normalized label equals the keyword. Short,
	// ambiguous keywords such as "id" belong here.
	Exact []string
	// Exclude vetoes a match when the normalized label contains any keyword.
	Exclude []string
}

func (s RoleSpec) matches(label string) bool {
	for _, ex := range s.Exclude {
		if strings.Contains(label, ex) {
			return false
		}
	}
	for _, kw := range s.Exact {
		if label == kw {
			return true
		}
	}
	for _, kw := range s.Contains {
		if strings.Contains(label, kw) {
			return true
		}
	}
	return false
}

// DefaultRoles is checked in order for every column; specific roles come before
// generic ones so that "문항유형" resolves to the type and not to the slot.
var DefaultRoles = []RoleSpec{
	{Role: RoleLogID, Contains: []string{"logid", "로그"}},
	{Role: RoleBook, Contains: []string{"book", "교재"}},
	{Role: RoleName, Contains: []string{"name", "이름", "성명", "학생명"}},
	{
		Role:     RoleStudentID,
		Contains: []string{"studentid", "student", "stuid", "학생", "학번"},
		Exact:    []string{"id", "아이디"},
		Exclude:  []string{"log"},
	},
	{Role: RoleWeek, Contains: []string{"week", "주차"}},
	{Role: RoleSession, Contains: []string{"session", "회차", "차시"}},
	{Role: RoleGenre, Contains: []string{"genre", "갈래", "장르"}},
	{Role: RoleType, Contains: []string{"type", "유형"}},
	{Role: RoleArea, Contains: []string{"area", "영역"}},
	{Role: RolePassageGroup, Contains: []string{"passage", "지문"}},
	{Role: RoleSlot, Contains: []string{"slot", "문항", "문제번호"}},
	{Role: RoleWrongFlag, Contains: []string{"wrong", "incorrect", "오답"}},
	{Role: RoleDate, Contains: []string{"date", "timestamp", "날짜", "일자"}},
}

// FieldIndex maps every role to its column.
type FieldIndex struct {
	cols [roleCount]Column
}

// Col returns the column for role, or Absent.
func (f FieldIndex) Col(r Role) Column {
	if r < 0 || r >= roleCount {
		return Absent
	}
	return f.cols[r]
}

// Has reports whether role resolved to a column.
func (f FieldIndex) Has(r Role) bool { return f.Col(r).Present() }

// NormalizeLabel prepares a header label for keyword matching.
func NormalizeLabel(s string) string {
	s = strings.ToLower(norm.NFC.String(s))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '_', '-', '\u00a0':
			return -1
		}
		return r
	}, s)
}

// Resolve scans header left to right. Each column is claimed by the first spec that
// matches it; a role that already holds a column keeps it, and the later column is
// left unassigned.
func Resolve(header Row, specs []RoleSpec) FieldIndex {
	var idx FieldIndex
	for i := range idx.cols {
		idx.cols[i] = Absent
	}
	for col, cell := range header {
		label := NormalizeLabel(CellText(cell))
		if label == "" {
			continue
		}
		for _, spec := range specs {
			if !spec.matches(label) {
				continue
			}
			if !idx.cols[spec.Role].Present() {
				idx.cols[spec.Role] = Column(col)
			}
			break
		}
	}
	return idx
}

// ErrSchema is returned when a table lacks a column a computation depends on.
var ErrSchema = errors.New("schema resolution failed")

// SchemaError names the table and the roles that could not be resolved.
type SchemaError struct {
	Table   string
	Missing []Role
}

func (e *SchemaError) Error() string {
	names := make([]string, len(e.Missing))
	for i, r := range e.Missing {
		names[i] = r.String()
	}
	return fmt.Sprintf("table %s: no column for %s", e.Table, strings.Join(names, ", "))
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// Require returns a *SchemaError listing every role in roles that is absent.
func (f FieldIndex) Require(table string, roles ...Role) error {
	var missing []Role
	for _, r := range roles {
		if !f.Has(r) {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Table: table, Missing: missing}
	}
	return nil
}
