// Command catalog-import loads one catalog export into the configured store,
// or inspects and rolls back earlier runs.
//
//	catalog-import -layout movies -file imdb_top_1000.csv
//	catalog-import -layout anime -file - -report rejected.csv < anime.csv
//	catalog-import -layout movies -file imdb_top_1000.csv -dry-run
//	catalog-import -runs 10
//	catalog-import -rollback 0f8c2d8e-...
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/JonMunkholm/filmfolio/internal/catalog"
	"github.com/JonMunkholm/filmfolio/internal/catalog/layouts"
	"github.com/JonMunkholm/filmfolio/internal/config"
	"github.com/JonMunkholm/filmfolio/internal/importer"
	"github.com/JonMunkholm/filmfolio/internal/logging"
	"github.com/JonMunkholm/filmfolio/internal/store"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

// maxPrintRej caps the rejections printed in the summary.
const maxPrintRej = 10

func main() {
	_ = godotenv.Overload()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	layout   string
	file     string
	report   string
	rollback string
	runs     int
	dryRun   bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("catalog-import", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.layout, "layout", "", "export layout (movies, anime, or one from IMPORT_LAYOUTS_FILE)")
	fs.StringVar(&o.file, "file", "", "CSV export to import, - for stdin")
	fs.StringVar(&o.report, "report", "", "write rejected lines to this CSV file")
	fs.StringVar(&o.rollback, "rollback", "", "roll back the run with this id")
	fs.IntVar(&o.runs, "runs", 0, "list the most recent N runs")
	fs.BoolVar(&o.dryRun, "dry-run", false, "decode the file and report without writing")

	if err := fs.Parse(args); err != nil {
		return o, err
	}

	modes := 0
	if o.file != "" || o.layout != "" {
		modes++
	}
	if o.rollback != "" {
		modes++
	}
	if o.runs > 0 {
		modes++
	}
	switch {
	case modes != 1:
		return o, errors.New("choose exactly one of -layout/-file, -rollback or -runs")
	case o.rollback == "" && o.runs == 0 && (o.layout == "" || o.file == ""):
		return o, errors.New("-layout and -file are both required for an import")
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, "catalog-import:", err)
		}
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "catalog-import:", err)
		return exitUsage
	}
	logger := logging.New(stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)
	ctx = logging.NewContext(ctx, logger.With("cmd", "catalog-import"))

	if cfg.Import.LayoutsFile != "" {
		if _, err := layouts.LoadFile(cfg.Import.LayoutsFile); err != nil {
			fmt.Fprintln(stderr, "catalog-import:", err)
			return exitUsage
		}
	}

	backend, closeStore, err := store.Open(ctx, cfg.Database)
	if err != nil {
		fmt.Fprintln(stderr, "catalog-import:", err)
		return exitFailed
	}
	defer closeStore()

	if err := backend.Migrate(ctx); err != nil {
		fmt.Fprintln(stderr, "catalog-import:", err)
		return exitFailed
	}

	svc := importer.NewService(backend,
		importer.NewLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
		importer.ServiceConfig{
			MaxLineBytes:     cfg.Import.MaxLineBytes,
			Timeout:          cfg.Import.Timeout,
			ReportDir:        cfg.Import.ReportDir,
			RejectionPreview: maxPrintRej,
		})

	switch {
	case opts.runs > 0:
		return listRuns(ctx, svc, opts.runs, stdout, stderr)
	case opts.rollback != "":
		return rollback(ctx, svc, opts.rollback, stdout, stderr)
	default:
		return importFile(ctx, svc, opts, stdin, stdout, stderr)
	}
}

func importFile(ctx context.Context, svc *importer.Service, opts options, stdin io.Reader, stdout, stderr io.Writer) int {
	if _, ok := catalog.LookupLayout(opts.layout); !ok {
		printError(stderr, fmt.Errorf("%w: %q", importer.ErrUnknownLayout, opts.layout))
		return exitUsage
	}

	req := importer.Request{Layout: opts.layout, ReportPath: opts.report}
	if opts.file == "-" {
		req.Source, req.FileName = stdin, "stdin"
	} else {
		f, err := os.Open(opts.file)
		if err != nil {
			fmt.Fprintf(stderr, "catalog-import: %s: %s\n", opts.file, importer.FormatUserError(&importer.SourceReadError{Err: err}))
			return exitFailed
		}
		defer f.Close()

		req.Source, req.FileName = f, filepath.Base(opts.file)
		if info, err := f.Stat(); err == nil {
			req.Size = info.Size()
		}
	}

	if opts.dryRun {
		res, err := svc.Preview(ctx, req)
		if err != nil {
			printError(stderr, err)
			return exitFailed
		}
		fmt.Fprintf(stdout, "dry run (%s): nothing written\n  accepted: %d\n  skipped:  %d\n",
			res.Layout, res.Accepted, res.Skipped)
		printRejections(stdout, res.Rejections, res.Skipped)
		return exitOK
	}

	res, err := svc.Import(ctx, req)
	if res.Run.ID != uuid.Nil {
		printSummary(stdout, res)
	}
	if err != nil {
		printError(stderr, err)
		return exitFailed
	}
	return exitOK
}

// printError writes the user-facing message for err. The raw error follows
// when it has no specific code.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "catalog-import: %s\n", importer.FormatUserError(err))
	if !importer.IsUserFacing(err) {
		fmt.Fprintf(w, "  cause: %v\n", err)
	}
}

func printSummary(w io.Writer, res importer.Result) {
	run := res.Run
	fmt.Fprintf(w, "run %s (%s, %s)\n", run.ID, run.Layout, run.Status)
	fmt.Fprintf(w, "  accepted: %d\n  skipped:  %d\n  read:     %d bytes\n  duration: %s\n",
		run.Accepted, run.Skipped, res.BytesRead, run.Duration.Round(time.Millisecond))

	printRejections(w, res.Rejections, run.Skipped)
	if res.ReportPath != "" {
		fmt.Fprintf(w, "  report:   %s\n", res.ReportPath)
	}
}

func printRejections(w io.Writer, rejections []importer.Rejection, skipped int) {
	for _, r := range rejections {
		fmt.Fprintf(w, "  line %d: %s\n", r.Line, r.Reason)
	}
	if skipped > len(rejections) {
		fmt.Fprintf(w, "  ... and %d more\n", skipped-len(rejections))
	}
}

func listRuns(ctx context.Context, svc *importer.Service, n int, stdout, stderr io.Writer) int {
	runs, err := svc.Runs(ctx, n)
	if err != nil {
		printError(stderr, err)
		return exitFailed
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLAYOUT\tSTATUS\tACCEPTED\tSKIPPED\tSTARTED\tFILE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.ID, r.Layout, r.Status, r.Accepted, r.Skipped,
			r.StartedAt.UTC().Format(time.RFC3339), r.FileName)
	}
	_ = tw.Flush()
	return exitOK
}

func rollback(ctx context.Context, svc *importer.Service, rawID string, stdout, stderr io.Writer) int {
	id, err := uuid.Parse(rawID)
	if err != nil {
		fmt.Fprintf(stderr, "catalog-import: invalid run id %q\n", rawID)
		return exitUsage
	}

	res, err := svc.Rollback(ctx, id)
	if err != nil {
		printError(stderr, err)
		return exitFailed
	}
	fmt.Fprintf(stdout, "rolled back run %s: %d records deleted\n", res.RunID, res.RowsDeleted)
	return exitOK
}
