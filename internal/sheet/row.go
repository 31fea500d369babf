// Package sheet turns loosely maintained spreadsheet tables into typed access.
//
// A table is a slice of rows; the first row holds header labels. Header labels are
// mapped to logical roles once per table by Resolve, and every later cell access goes
// through the resulting FieldIndex so that absent columns are handled explicitly.
package sheet

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Row is one table row. Cells hold string, float64, bool or nil values.
type Row []any

// At returns the raw cell in column c. ok is false when the column is absent or
// the row is shorter than the header.
func (r Row) At(c Column) (any, bool) {
	if !c.Present() || int(c) >= len(r) {
		return nil, false
	}
	return r[c], true
}

// Text returns the trimmed textual form of the cell, or "" when it is missing.
func (r Row) Text(c Column) string {
	v, ok := r.At(c)
	if !ok {
		return ""
	}
	return CellText(v)
}

// Int extracts a number from the cell. See CellInt.
func (r Row) Int(c Column) (int, bool) {
	v, ok := r.At(c)
	if !ok {
		return 0, false
	}
	return CellInt(v)
}

// Truthy reports whether the cell is boolean true or the string "true" in any case.
func (r Row) Truthy(c Column) bool {
	v, ok := r.At(c)
	if !ok {
		return false
	}
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return strings.EqualFold(strings.TrimSpace(x), "true")
	}
	return false
}

// Split separates the header row from the data rows.
func Split(table []Row) (Row, []Row) {
	if len(table) == 0 {
		return nil, nil
	}
	return table[0], table[1:]
}

// CellText renders a cell value as trimmed text. Integral numbers lose their
// fractional part so that 3.0 reads as "3".
func CellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// CellInt extracts an integer from a cell. Numeric cells are truncated; text cells
// keep only their ASCII digits, so "1회" and "W2" parse as 1 and 2.
func CellInt(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return int(x), true
	case int:
		return x, true
	case int64:
		return int(x), true
	}
	return ParseInt(CellText(v))
}

// ParseInt keeps the ASCII digits of s and parses them.
func ParseInt(s string) (int, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Fold canonicalizes free text for comparison: NFC, lower case, no whitespace.
func Fold(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(norm.NFC.String(s)), ""))
}

// SameText compares two identifiers ignoring case and whitespace.
func SameText(a, b string) bool {
	return Fold(a) == Fold(b)
}
