package importer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/JonMunkholm/filmfolio/internal/catalog"
	"github.com/JonMunkholm/filmfolio/internal/catalog/layouts"
	"github.com/google/go-cmp/cmp"
)

const moviesHeader = "Poster_Link,Series_Title,Released_Year,Certificate,Runtime,Genre,IMDB_Rating,Overview,Meta_score,Director"

const godfatherLine = `https://example.com/gf.jpg,The Godfather,1972,A,175 min,"Crime, Drama",9.2,"An organized crime dynasty's aging patriarch transfers control.",100,Francis Ford Coppola`

func moviesLayout(t *testing.T) catalog.Layout {
	t.Helper()
	l, ok := catalog.LookupLayout(layouts.TopMovies)
	if !ok {
		t.Fatal("movies layout not registered")
	}
	return l
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoad_AcceptsAndSkips(t *testing.T) {
	store := newMemStore()
	var logs bytes.Buffer
	loader := &Loader{
		Writer: store,
		Logger: slog.New(slog.NewTextHandler(&logs, nil)),
	}

	src := strings.Join([]string{
		moviesHeader,
		godfatherLine,
		"p2,Broken,1999",
	}, "\n")

	sum, err := loader.Load(context.Background(), strings.NewReader(src), moviesLayout(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if sum.Accepted != 1 || sum.Skipped != 1 {
		t.Errorf("accepted=%d skipped=%d, want 1/1", sum.Accepted, sum.Skipped)
	}
	if sum.Phase != PhaseCommitted {
		t.Errorf("Phase = %q, want %q", sum.Phase, PhaseCommitted)
	}
	if sum.Layout != layouts.TopMovies {
		t.Errorf("Layout = %q, want %q", sum.Layout, layouts.TopMovies)
	}

	wantRejections := []Rejection{{
		Line:    3,
		Content: "p2,Broken,1999",
		Reason:  "malformed line: got 3 fields, need at least 10",
	}}
	if diff := cmp.Diff(wantRejections, sum.Rejections); diff != "" {
		t.Errorf("Rejections mismatch (-want +got):\n%s", diff)
	}

	items, _ := store.ListItems(context.Background(), sum.RunID, 0)
	if len(items) != 1 {
		t.Fatalf("stored %d records, want 1", len(items))
	}
	if items[0].Title != "The Godfather" || items[0].ReleaseYear != 1972 {
		t.Errorf("stored record = %+v", items[0].Record)
	}

	out := logs.String()
	if !strings.Contains(out, "skipping line") || !strings.Contains(out, "line=3") {
		t.Errorf("expected a warn line for the skipped row, got:\n%s", out)
	}
}

func TestLoad_EveryLineAccountedFor(t *testing.T) {
	store := newMemStore()
	loader := &Loader{Writer: store, Logger: quietLogger()}

	lines := []string{
		moviesHeader,
		godfatherLine,
		"",
		"p,No Year,,A,90 min,Drama,7.0,Plot,50,Someone",
		`p,"",2001,A,90 min,Drama,7.0,Plot,50,Someone`,
		"p,Score Garbage,2001,A,90 min,Drama,n/a,Plot,50,Someone",
	}
	sum, err := loader.Load(context.Background(), strings.NewReader(strings.Join(lines, "\n")+"\n"), moviesLayout(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got, want := sum.Accepted+sum.Skipped, len(lines)-1; got != want {
		t.Errorf("accepted+skipped = %d, want %d", got, want)
	}
	if sum.Accepted != 2 || sum.Skipped != 3 {
		t.Errorf("accepted=%d skipped=%d, want 2/3", sum.Accepted, sum.Skipped)
	}
	if store.totalItems() != sum.Accepted {
		t.Errorf("stored %d records, want %d", store.totalItems(), sum.Accepted)
	}
}

func TestLoad_HeaderOnlyAndEmpty(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty source", ""},
		{"header only", moviesHeader + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			loader := &Loader{Writer: store, Logger: quietLogger()}

			sum, err := loader.Load(context.Background(), strings.NewReader(tt.src), moviesLayout(t))
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if sum.Accepted != 0 || sum.Skipped != 0 {
				t.Errorf("accepted=%d skipped=%d, want 0/0", sum.Accepted, sum.Skipped)
			}
			if store.insertCalls != 0 {
				t.Errorf("InsertRecords called %d times, want 0", store.insertCalls)
			}
		})
	}
}

func TestLoad_CRLF(t *testing.T) {
	store := newMemStore()
	loader := &Loader{Writer: store, Logger: quietLogger()}

	src := moviesHeader + "\r\n" + godfatherLine + "\r\n"
	sum, err := loader.Load(context.Background(), strings.NewReader(src), moviesLayout(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if sum.Accepted != 1 {
		t.Fatalf("Accepted = %d, want 1", sum.Accepted)
	}
	items, _ := store.ListItems(context.Background(), sum.RunID, 0)
	if got := items[0].Director; got != "Francis Ford Coppola" {
		t.Errorf("Director = %q, want no trailing carriage return", got)
	}
}

func TestLoad_CommitFailure(t *testing.T) {
	errDown := errors.New("connection reset by peer")
	store := newMemStore()
	store.insertErr = errDown

	loader := &Loader{Writer: store, Logger: quietLogger()}
	src := moviesHeader + "\n" + godfatherLine + "\n"

	sum, err := loader.Load(context.Background(), strings.NewReader(src), moviesLayout(t))

	var commitErr *StoreCommitError
	if !errors.As(err, &commitErr) {
		t.Fatalf("error = %v, want *StoreCommitError", err)
	}
	if commitErr.Records != 1 {
		t.Errorf("Records = %d, want 1", commitErr.Records)
	}
	if !errors.Is(err, errDown) {
		t.Error("StoreCommitError should unwrap to the store error")
	}
	if sum.Phase != PhaseFailed {
		t.Errorf("Phase = %q, want %q", sum.Phase, PhaseFailed)
	}
	if store.totalItems() != 0 {
		t.Errorf("stored %d records after failed commit, want 0", store.totalItems())
	}
}

func TestLoad_SourceFailure(t *testing.T) {
	errDisk := errors.New("disk on fire")
	store := newMemStore()
	loader := &Loader{Writer: store, Logger: quietLogger()}

	src := io.MultiReader(
		strings.NewReader(moviesHeader+"\n"+godfatherLine+"\n"),
		iotest.ErrReader(errDisk),
	)

	sum, err := loader.Load(context.Background(), src, moviesLayout(t))

	var srcErr *SourceReadError
	if !errors.As(err, &srcErr) {
		t.Fatalf("error = %v, want *SourceReadError", err)
	}
	if !errors.Is(err, errDisk) {
		t.Error("SourceReadError should unwrap to the reader error")
	}
	if srcErr.Line != 3 {
		t.Errorf("Line = %d, want 3", srcErr.Line)
	}
	if sum.Phase != PhaseFailed {
		t.Errorf("Phase = %q, want %q", sum.Phase, PhaseFailed)
	}
	if store.insertCalls != 0 {
		t.Error("nothing should be written after a source failure")
	}
}

func TestLoad_LineTooLong(t *testing.T) {
	store := newMemStore()
	loader := &Loader{Writer: store, Logger: quietLogger(), MaxLineBytes: 256}

	src := moviesHeader + "\n" + strings.Repeat("x", 1024) + "\n"

	_, err := loader.Load(context.Background(), strings.NewReader(src), moviesLayout(t))
	if !errors.Is(err, bufio.ErrTooLong) {
		t.Fatalf("error = %v, want bufio.ErrTooLong", err)
	}
	if got := MapError(err).Code; got != "SRC002" {
		t.Errorf("MapError code = %q, want SRC002", got)
	}
}

func TestLoad_CancelledBeforeCommit(t *testing.T) {
	store := newMemStore()
	loader := &Loader{Writer: store, Logger: quietLogger()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := moviesHeader + "\n" + godfatherLine + "\n"
	sum, err := loader.Load(ctx, strings.NewReader(src), moviesLayout(t))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if sum.Phase != PhaseFailed {
		t.Errorf("Phase = %q, want %q", sum.Phase, PhaseFailed)
	}
	if store.insertCalls != 0 {
		t.Error("nothing should be written after cancellation")
	}
}

func TestLoad_PhaseTransitions(t *testing.T) {
	var phases []Phase
	loader := &Loader{
		Writer:  newMemStore(),
		Logger:  quietLogger(),
		OnPhase: func(p Phase) { phases = append(phases, p) },
	}

	src := moviesHeader + "\n" + godfatherLine + "\n"
	if _, err := loader.Load(context.Background(), strings.NewReader(src), moviesLayout(t)); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []Phase{PhaseReading, PhaseStaged, PhaseCommitted}
	if diff := cmp.Diff(want, phases); diff != "" {
		t.Errorf("phases mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_DistinctRunIDs(t *testing.T) {
	store := newMemStore()
	loader := &Loader{Writer: store, Logger: quietLogger()}
	src := moviesHeader + "\n" + godfatherLine + "\n"

	first, err := loader.Load(context.Background(), strings.NewReader(src), moviesLayout(t))
	if err != nil {
		t.Fatal(err)
	}
	second, err := loader.Load(context.Background(), strings.NewReader(src), moviesLayout(t))
	if err != nil {
		t.Fatal(err)
	}

	if first.RunID == second.RunID {
		t.Error("two loads should get distinct run ids")
	}
	if store.totalItems() != 2 {
		t.Errorf("stored %d records after two loads, want 2", store.totalItems())
	}
}

func TestLoad_ReportsProgress(t *testing.T) {
	var logs bytes.Buffer
	loader := &Loader{
		Writer:               newMemStore(),
		Logger:               slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		ContextCheckInterval: 2,
	}

	raw := moviesHeader + "\n" + godfatherLine + "\n" + godfatherLine + "\n"
	sum, err := loader.Load(context.Background(), WrapSource(strings.NewReader(raw), int64(len(raw))), moviesLayout(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if sum.BytesRead != int64(len(raw)) {
		t.Errorf("BytesRead = %d, want %d", sum.BytesRead, len(raw))
	}
	if out := logs.String(); !strings.Contains(out, "import progress") || !strings.Contains(out, "line=2") {
		t.Errorf("expected a progress line at the check interval, got:\n%s", out)
	}
}

func TestLoad_PlainReaderHasNoByteCount(t *testing.T) {
	loader := &Loader{Writer: newMemStore(), Logger: quietLogger()}
	sum, err := loader.Load(context.Background(), strings.NewReader(moviesHeader+"\n"+godfatherLine+"\n"), moviesLayout(t))
	if err != nil {
		t.Fatal(err)
	}
	if sum.BytesRead != 0 {
		t.Errorf("BytesRead = %d, want 0 for an unwrapped reader", sum.BytesRead)
	}
}
