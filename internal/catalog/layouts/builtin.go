// Package layouts registers the built-in export layouts with the catalog
// registry. Import this package to ensure they are registered.
package layouts

import "github.com/JonMunkholm/filmfolio/internal/catalog"

const (
	TopMovies    = "movies"
	AnimeDataset = "anime"
)

func init() {
	registerTopMovies()
	registerAnimeDataset()
}

// Header: Poster_Link,Series_Title,Released_Year,Certificate,Runtime,Genre,
// IMDB_Rating,Overview,Meta_score,Director,Star1,Star2,Star3,Star4,No_of_Votes,Gross
func registerTopMovies() {
	catalog.RegisterLayout(catalog.Layout{
		Name:      TopMovies,
		MediaType: catalog.MediaMovie,
		Columns: map[catalog.Field]int{
			catalog.FieldPosterLink:    0,
			catalog.FieldTitle:         1,
			catalog.FieldReleaseYear:   2,
			catalog.FieldAgeRating:     3,
			catalog.FieldRuntime:       4,
			catalog.FieldGenres:        5,
			catalog.FieldExternalScore: 6,
			catalog.FieldSynopsis:      7,
			catalog.FieldDirector:      9,
		},
	})
}

// Header: id,name,genres,type,episodes,status,aired_from,aired_to,duration_per_ep,
// score,scored_by,rank,rating,studios,producers,image,trailer,synopsis
func registerAnimeDataset() {
	catalog.RegisterLayout(catalog.Layout{
		Name:      AnimeDataset,
		MediaType: catalog.MediaAnime,
		Columns: map[catalog.Field]int{
			catalog.FieldTitle:         1,
			catalog.FieldGenres:        2,
			catalog.FieldEpisodes:      4,
			catalog.FieldStatus:        5,
			catalog.FieldReleaseYear:   6,
			catalog.FieldRuntime:       8,
			catalog.FieldExternalScore: 9,
			catalog.FieldAgeRating:     12,
			catalog.FieldStudios:       13,
			catalog.FieldProducers:     14,
			catalog.FieldPosterLink:    15,
			catalog.FieldSynopsis:      17,
		},
		YearFromPrefix:      true,
		DirectorPlaceholder: catalog.DefaultDirectorPlaceholder,
	})
}
