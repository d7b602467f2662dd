package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultDirectorPlaceholder is stored as the director when a layout has
// no director column.
const DefaultDirectorPlaceholder = "N/A"

// Layout maps logical fields to zero-based column indices for one export format.
type Layout struct {
	Name      string
	MediaType MediaType
	Columns   map[Field]int

	// YearFromPrefix takes the release year from the first four characters
	// of the column (e.g. an "aired from" date) instead of requiring the
	// whole column to be a year.
	YearFromPrefix bool

	// DirectorPlaceholder replaces the director when the layout has no
	// director column. Defaults to DefaultDirectorPlaceholder.
	DirectorPlaceholder string
}

// Column returns the index of f and whether the layout maps it.
func (l Layout) Column(f Field) (int, bool) {
	idx, ok := l.Columns[f]
	return idx, ok
}

// MinFields is the smallest number of fields a line must split into.
func (l Layout) MinFields() int {
	highest := -1
	for _, idx := range l.Columns {
		if idx > highest {
			highest = idx
		}
	}
	return highest + 1
}

// Placeholder returns the director placeholder for this layout.
func (l Layout) Placeholder() string {
	if l.DirectorPlaceholder == "" {
		return DefaultDirectorPlaceholder
	}
	return l.DirectorPlaceholder
}

// Validate reports every problem with the layout.
func (l Layout) Validate() error {
	var errs []string

	if strings.TrimSpace(l.Name) == "" {
		errs = append(errs, "name is required")
	}
	if _, err := ParseMediaType(string(l.MediaType)); err != nil {
		errs = append(errs, err.Error())
	}
	for _, f := range []Field{FieldTitle, FieldReleaseYear} {
		if _, ok := l.Columns[f]; !ok {
			errs = append(errs, fmt.Sprintf("column %q is required", f))
		}
	}
	for f, idx := range l.Columns {
		if _, ok := KindOf(f); !ok {
			errs = append(errs, fmt.Sprintf("unknown field %q", f))
		}
		if idx < 0 {
			errs = append(errs, fmt.Sprintf("column %q has negative index %d", f, idx))
		}
	}

	if len(errs) > 0 {
		return errors.New("invalid layout " + quoteName(l.Name) + ": " + strings.Join(errs, "; "))
	}
	return nil
}

func quoteName(name string) string {
	if name == "" {
		return "(unnamed)"
	}
	return fmt.Sprintf("%q", name)
}
