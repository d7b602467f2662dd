package catalog

import (
	"fmt"
	"strings"
)

// MediaType is the kind of catalog entry.
type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaAnime MediaType = "anime"
)

// ParseMediaType accepts "movie" or "anime" in any case.
func ParseMediaType(s string) (MediaType, error) {
	switch MediaType(strings.ToLower(strings.TrimSpace(s))) {
	case MediaMovie:
		return MediaMovie, nil
	case MediaAnime:
		return MediaAnime, nil
	default:
		return "", fmt.Errorf("unknown media type %q (want movie or anime)", s)
	}
}

// Field names a logical catalog column.
type Field string

const (
	FieldTitle         Field = "title"
	FieldReleaseYear   Field = "release_year"
	FieldDirector      Field = "director"
	FieldPosterLink    Field = "poster_link"
	FieldGenres        Field = "genres"
	FieldSynopsis      Field = "synopsis"
	FieldRuntime       Field = "runtime"
	FieldAgeRating     Field = "age_rating"
	FieldStudios       Field = "studios"
	FieldProducers     Field = "producers"
	FieldExternalScore Field = "external_score"
	FieldEpisodes      Field = "episodes"
	FieldStatus        Field = "status"
)

// FieldKind is the coercion rule applied to a field.
type FieldKind int

const (
	KindText FieldKind = iota
	KindOptionalText
	KindYear
	KindInteger
	KindFloat
	KindList
)

// fieldKinds lists every known field with its coercion rule.
var fieldKinds = map[Field]FieldKind{
	FieldTitle:         KindText,
	FieldReleaseYear:   KindYear,
	FieldDirector:      KindText,
	FieldPosterLink:    KindOptionalText,
	FieldGenres:        KindList,
	FieldSynopsis:      KindText,
	FieldRuntime:       KindText,
	FieldAgeRating:     KindText,
	FieldStudios:       KindText,
	FieldProducers:     KindText,
	FieldExternalScore: KindFloat,
	FieldEpisodes:      KindInteger,
	FieldStatus:        KindText,
}

// KindOf returns the coercion rule for f and whether f is a known field.
func KindOf(f Field) (FieldKind, bool) {
	k, ok := fieldKinds[f]
	return k, ok
}

// Record is one normalized catalog entry awaiting insertion.
// Its persistent identity is assigned by the store.
type Record struct {
	Title         string
	ReleaseYear   int
	Director      string
	PosterLink    string // empty means absent
	MediaType     MediaType
	Genres        []string
	Synopsis      string
	Runtime       string
	AgeRating     string
	Studios       string
	Producers     string
	ExternalScore float64 // 0.0 when missing or unparseable
	Episodes      int
	Status        string
}

// GenresText returns the genres in their persisted form.
func (r Record) GenresText() string {
	return strings.Join(r.Genres, ", ")
}

// StoredRecord is a Record read back from a store.
type StoredRecord struct {
	ID int64
	Record
}
