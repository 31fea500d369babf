package summary

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidInput marks a request with missing or malformed parameters.
var ErrInvalidInput = errors.New("invalid input")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// ParseWeek parses a required week parameter.
func ParseWeek(name, value string) (int, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, invalidf("%s is required", name)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, invalidf("%s must be a number, got %q", name, value)
	}
	if n < 1 {
		return 0, invalidf("%s must be positive, got %d", name, n)
	}
	return n, nil
}

// ParseWeekRange parses and checks an inclusive week range.
func ParseWeekRange(from, to string) (int, int, error) {
	f, err := ParseWeek("from", from)
	if err != nil {
		return 0, 0, err
	}
	t, err := ParseWeek("to", to)
	if err != nil {
		return 0, 0, err
	}
	if f > t {
		return 0, 0, invalidf("from (%d) is after to (%d)", f, t)
	}
	return f, t, nil
}
