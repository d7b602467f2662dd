package catalog

// normalize.go coerces cleaned fields to their record types.
//
// Only three things reject a line: too few fields, an unusable release
// year, and an empty title. Everything else falls back to a default:
//   - counts (episodes) that are not all digits or exceed an INTEGER column become 0
//   - scores that are empty, "unknown", garbage, or outside [0, 10] become 0.0
//   - free text passes through; an empty poster link means "no poster"

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	MinReleaseYear = 1870
	MaxReleaseYear = 2100

	MaxExternalScore = 10.0
)

var (
	yearRegex   = regexp.MustCompile(`^\d{4}$`)
	digitsRegex = regexp.MustCompile(`^\d+$`)

	// numericRegex accepts plain decimals with an optional exponent.
	// Locale formats such as "7,5" and hex floats are rejected.
	numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)
)

// ParseYear extracts a release year. With prefix set only the first four
// characters are considered, so "1998-04-03" yields 1998.
func ParseYear(s string, prefix bool) (int, error) {
	candidate := s
	if prefix && len(candidate) >= 4 {
		candidate = candidate[:4]
	}
	if !yearRegex.MatchString(candidate) {
		return 0, &InvalidYearError{Value: s}
	}

	year, err := strconv.Atoi(candidate)
	if err != nil || year < MinReleaseYear || year > MaxReleaseYear {
		return 0, &InvalidYearError{Value: s}
	}
	return year, nil
}

// ParseCount returns the non-negative integer in s, or 0 if s is not all
// digits or is larger than math.MaxInt32, the range of both store columns.
func ParseCount(s string) int {
	if !digitsRegex.MatchString(s) {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0
	}
	return int(n)
}

// ParseScore returns the external score in s. Empty text, "unknown" in
// any case, unparseable text, and values outside [0, 10] all return 0.0.
func ParseScore(s string) float64 {
	if s == "" || strings.EqualFold(s, "unknown") || !numericRegex.MatchString(s) {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f < 0 || f > MaxExternalScore {
		return 0
	}
	return f
}

// SplitGenres splits a comma-separated genre list, dropping empty tags.
func SplitGenres(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Decode parses and normalizes one data line with the given layout.
func Decode(line string, layout Layout) (Record, error) {
	raw := SplitLine(line)
	if need := layout.MinFields(); len(raw) < need {
		return Record{}, &MalformedLineError{Fields: len(raw), Need: need}
	}
	return Normalize(raw, layout)
}

// Normalize builds a record from raw fields already checked against
// layout.MinFields.
func Normalize(raw []string, layout Layout) (Record, error) {
	cell := func(f Field) string {
		idx, ok := layout.Column(f)
		if !ok || idx >= len(raw) {
			return ""
		}
		return CleanField(raw[idx])
	}

	rec := Record{
		Title:     cell(FieldTitle),
		MediaType: layout.MediaType,
	}
	if strings.TrimSpace(rec.Title) == "" {
		return Record{}, ErrMissingTitle
	}

	year, err := ParseYear(cell(FieldReleaseYear), layout.YearFromPrefix)
	if err != nil {
		return Record{}, err
	}
	rec.ReleaseYear = year

	if _, ok := layout.Column(FieldDirector); ok {
		rec.Director = cell(FieldDirector)
	} else {
		rec.Director = layout.Placeholder()
	}

	rec.PosterLink = cell(FieldPosterLink)
	rec.Genres = SplitGenres(cell(FieldGenres))
	rec.Synopsis = cell(FieldSynopsis)
	rec.Runtime = cell(FieldRuntime)
	rec.AgeRating = cell(FieldAgeRating)
	rec.Studios = cell(FieldStudios)
	rec.Producers = cell(FieldProducers)
	rec.ExternalScore = ParseScore(cell(FieldExternalScore))
	rec.Episodes = ParseCount(cell(FieldEpisodes))
	rec.Status = cell(FieldStatus)

	return rec, nil
}
