package catalog

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var testMovieLayout = Layout{
	Name:      "test_movies",
	MediaType: MediaMovie,
	Columns: map[Field]int{
		FieldPosterLink:    0,
		FieldTitle:         1,
		FieldReleaseYear:   2,
		FieldAgeRating:     3,
		FieldRuntime:       4,
		FieldGenres:        5,
		FieldExternalScore: 6,
		FieldSynopsis:      7,
		FieldDirector:      9,
	},
}

var testAnimeLayout = Layout{
	Name:      "test_anime",
	MediaType: MediaAnime,
	Columns: map[Field]int{
		FieldTitle:         1,
		FieldGenres:        2,
		FieldEpisodes:      4,
		FieldStatus:        5,
		FieldReleaseYear:   6,
		FieldExternalScore: 9,
	},
	YearFromPrefix: true,
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		prefix  bool
		want    int
		wantErr bool
	}{
		{name: "four digits", input: "1994", want: 1994},
		{name: "letters", input: "abcd", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "two digits", input: "94", wantErr: true},
		{name: "trailing text without prefix", input: "1994 PG", wantErr: true},
		{name: "too early", input: "1869", wantErr: true},
		{name: "too late", input: "2101", wantErr: true},
		{name: "lower bound", input: "1870", want: 1870},
		{name: "upper bound", input: "2100", want: 2100},
		{name: "date prefix", input: "1998-04-03", prefix: true, want: 1998},
		{name: "prefix on bare year", input: "2001", prefix: true, want: 2001},
		{name: "prefix too short", input: "199", prefix: true, wantErr: true},
		{name: "prefix not digits", input: "Apr 3, 1998", prefix: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseYear(tt.input, tt.prefix)
			if tt.wantErr {
				var yerr *InvalidYearError
				if !errors.As(err, &yerr) {
					t.Fatalf("ParseYear(%q) error = %v, want *InvalidYearError", tt.input, err)
				}
				if yerr.Value != tt.input {
					t.Errorf("InvalidYearError.Value = %q, want %q", yerr.Value, tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseYear(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseYear(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"7.5", 7.5},
		{"9", 9},
		{"0", 0},
		{"10", 10},
		{"UNKNOWN", 0},
		{"unknown", 0},
		{"Unknown", 0},
		{"", 0},
		{"n/a", 0},
		{"7,5", 0},
		{"0x1p-2", 0},
		{"NaN", 0},
		{"Inf", 0},
		{"11.2", 0},
		{"-1", 0},
		{".5", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseScore(tt.input); got != tt.want {
				t.Errorf("ParseScore(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"26", 26},
		{"0", 0},
		{"", 0},
		{"Unknown", 0},
		{"-3", 0},
		{"12.0", 0},
		{"99999999999999999999999", 0},
		{"2147483647", 2147483647},
		{"3000000000", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseCount(tt.input); got != tt.want {
				t.Errorf("ParseCount(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestSplitGenres(t *testing.T) {
	got := SplitGenres(" Crime, Drama,, Thriller ")
	want := []string{"Crime", "Drama", "Thriller"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SplitGenres mismatch (-want +got):\n%s", diff)
	}

	if got := SplitGenres(""); len(got) != 0 {
		t.Errorf("SplitGenres(\"\") = %q, want empty", got)
	}
}

func TestDecode_Movie(t *testing.T) {
	line := `"https://example.com/p.jpg",The Godfather,1972,A,175 min,"Crime, Drama",9.2,"An organized crime dynasty's aging patriarch transfers control, reluctantly.",100,Francis Ford Coppola,Marlon Brando`

	got, err := Decode(line, testMovieLayout)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	want := Record{
		Title:         "The Godfather",
		ReleaseYear:   1972,
		Director:      "Francis Ford Coppola",
		PosterLink:    "https://example.com/p.jpg",
		MediaType:     MediaMovie,
		Genres:        []string{"Crime", "Drama"},
		Synopsis:      "An organized crime dynasty's aging patriarch transfers control, reluctantly.",
		Runtime:       "175 min",
		AgeRating:     "A",
		ExternalScore: 9.2,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decode mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_AnimeUsesPlaceholderDirector(t *testing.T) {
	line := `1,Cowboy Bebop,"Action, Sci-Fi",TV,26,Finished Airing,1998-04-03,1999-04-24,24 min,UNKNOWN`

	got, err := Decode(line, testAnimeLayout)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Director != DefaultDirectorPlaceholder {
		t.Errorf("Director = %q, want %q", got.Director, DefaultDirectorPlaceholder)
	}
	if got.ReleaseYear != 1998 {
		t.Errorf("ReleaseYear = %d, want 1998", got.ReleaseYear)
	}
	if got.Episodes != 26 {
		t.Errorf("Episodes = %d, want 26", got.Episodes)
	}
	if got.ExternalScore != 0 {
		t.Errorf("ExternalScore = %v, want 0", got.ExternalScore)
	}
	if got.MediaType != MediaAnime {
		t.Errorf("MediaType = %q, want %q", got.MediaType, MediaAnime)
	}
	if got.PosterLink != "" {
		t.Errorf("PosterLink = %q, want empty", got.PosterLink)
	}
}

func TestDecode_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		check func(t *testing.T, err error)
	}{
		{
			name: "too few fields",
			line: "poster,Title,1999",
			check: func(t *testing.T, err error) {
				var merr *MalformedLineError
				if !errors.As(err, &merr) {
					t.Fatalf("error = %v, want *MalformedLineError", err)
				}
				if merr.Fields != 3 || merr.Need != 10 {
					t.Errorf("MalformedLineError = %+v, want Fields=3 Need=10", merr)
				}
			},
		},
		{
			name: "letters for year",
			line: "p,Title,abcd,A,90 min,Drama,7.0,Plot,50,Someone",
			check: func(t *testing.T, err error) {
				var yerr *InvalidYearError
				if !errors.As(err, &yerr) {
					t.Fatalf("error = %v, want *InvalidYearError", err)
				}
			},
		},
		{
			name: "empty year",
			line: "p,Title,,A,90 min,Drama,7.0,Plot,50,Someone",
			check: func(t *testing.T, err error) {
				var yerr *InvalidYearError
				if !errors.As(err, &yerr) {
					t.Fatalf("error = %v, want *InvalidYearError", err)
				}
			},
		},
		{
			name: "empty title",
			line: `p,"  ",1999,A,90 min,Drama,7.0,Plot,50,Someone`,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrMissingTitle) {
					t.Fatalf("error = %v, want ErrMissingTitle", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.line, testMovieLayout)
			tt.check(t, err)
		})
	}
}

func TestDecode_DefaultsDoNotReject(t *testing.T) {
	line := ",Title,2001,,,,garbage,,,"

	got, err := Decode(line, testMovieLayout)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.ExternalScore != 0 {
		t.Errorf("ExternalScore = %v, want 0", got.ExternalScore)
	}
	if got.PosterLink != "" || got.Director != "" || got.Synopsis != "" {
		t.Errorf("free text should stay empty, got %+v", got)
	}
	if len(got.Genres) != 0 {
		t.Errorf("Genres = %q, want empty", got.Genres)
	}
}

func TestLayoutValidate(t *testing.T) {
	if err := testMovieLayout.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	bad := Layout{
		MediaType: "series",
		Columns:   map[Field]int{FieldTitle: -1, "rating": 3},
	}
	err := bad.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	for _, want := range []string{"name is required", "unknown media type", "release_year", "unknown field", "negative index"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %q", err.Error(), want)
		}
	}
}

func TestLayoutMinFields(t *testing.T) {
	if got := testMovieLayout.MinFields(); got != 10 {
		t.Errorf("MinFields() = %d, want 10", got)
	}
	if got := (Layout{}).MinFields(); got != 0 {
		t.Errorf("empty MinFields() = %d, want 0", got)
	}
}

func TestRegistry(t *testing.T) {
	ClearLayouts()
	defer ClearLayouts()

	RegisterLayout(testAnimeLayout)
	RegisterLayout(testMovieLayout)

	if _, ok := LookupLayout("test_movies"); !ok {
		t.Error("LookupLayout(test_movies) not found")
	}
	if _, ok := LookupLayout("missing"); ok {
		t.Error("LookupLayout(missing) should not be found")
	}

	all := Layouts()
	if len(all) != 2 || all[0].Name != "test_anime" || all[1].Name != "test_movies" {
		t.Errorf("Layouts() = %v, want sorted [test_anime test_movies]", all)
	}

	defer func() {
		if recover() == nil {
			t.Error("RegisterLayout should panic on duplicate name")
		}
	}()
	RegisterLayout(testMovieLayout)
}

func TestRegisterLayouts(t *testing.T) {
	renamed := func(l Layout, name string) Layout {
		l.Name = name
		return l
	}

	tests := []struct {
		name string
		ls   []Layout
	}{
		{"taken", []Layout{renamed(testMovieLayout, "fresh"), testAnimeLayout}},
		{"duplicate in batch", []Layout{renamed(testMovieLayout, "fresh"), renamed(testAnimeLayout, "fresh")}},
		{"invalid", []Layout{renamed(testMovieLayout, "fresh"), {Name: "broken"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ClearLayouts()
			defer ClearLayouts()
			RegisterLayout(testAnimeLayout)

			if err := RegisterLayouts(tt.ls...); err == nil {
				t.Fatal("RegisterLayouts() expected error")
			}
			if _, ok := LookupLayout("fresh"); ok {
				t.Error("a failed RegisterLayouts should register nothing")
			}
		})
	}
}

func TestRegisterLayouts_ConcurrentSameName(t *testing.T) {
	ClearLayouts()
	defer ClearLayouts()

	const n = 16
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		oks int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := RegisterLayouts(testMovieLayout); err == nil {
				mu.Lock()
				oks++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if oks != 1 {
		t.Errorf("%d concurrent registrations succeeded, want 1", oks)
	}
}

func TestParseMediaType(t *testing.T) {
	tests := []struct {
		in      string
		want    MediaType
		wantErr bool
	}{
		{"movie", MediaMovie, false},
		{" Anime ", MediaAnime, false},
		{"MOVIE", MediaMovie, false},
		{"series", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMediaType(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMediaType(%q) = %q, %v; want %q, wantErr %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}
