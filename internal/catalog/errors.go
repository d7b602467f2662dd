package catalog

import (
	"errors"
	"fmt"
)

// ErrMissingTitle is returned when the title field is empty after cleaning.
var ErrMissingTitle = errors.New("missing title")

// MalformedLineError reports a line that split into too few fields
// for its layout.
type MalformedLineError struct {
	Fields int // fields found
	Need   int // fields required by the layout
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("malformed line: got %d fields, need at least %d", e.Fields, e.Need)
}

// InvalidYearError reports a release year that is missing, not four
// digits, or outside the plausible range.
type InvalidYearError struct {
	Value string
}

func (e *InvalidYearError) Error() string {
	if e.Value == "" {
		return "invalid release year: empty"
	}
	return fmt.Sprintf("invalid release year: %q", e.Value)
}
