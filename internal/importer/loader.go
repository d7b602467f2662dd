package importer

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/JonMunkholm/filmfolio/internal/catalog"
	"github.com/google/uuid"
)

// DefaultContextCheckInterval is how many lines are read between checks
// for context cancellation.
const DefaultContextCheckInterval = 100

// DefaultMaxLineBytes bounds a single source line.
const DefaultMaxLineBytes = 1 << 20

// Loader reads a catalog export and writes its accepted records in one batch.
type Loader struct {
	Writer RecordWriter
	Logger *slog.Logger

	ContextCheckInterval int
	MaxLineBytes         int

	// OnPhase, if set, is called on every phase transition.
	OnPhase func(Phase)
}

// Load runs one import of src using layout. The first line of src is the
// header and is discarded.
//
// A line that fails to decode is counted as skipped and recorded in the
// summary. The run itself fails only when src cannot be read
// (*SourceReadError), the writer rejects the batch (*StoreCommitError), or
// ctx is done before the batch is written. In all three cases nothing is
// written and the returned summary has PhaseFailed.
func (l *Loader) Load(ctx context.Context, src io.Reader, layout catalog.Layout) (LoadSummary, error) {
	start := time.Now()
	sum := LoadSummary{
		RunID:  uuid.New(),
		Layout: layout.Name,
		Phase:  PhaseIdle,
	}
	logger := l.logger().With("run_id", sum.RunID.String(), "layout", layout.Name)

	counter := sourceCounter(src)

	finish := func(p Phase, err error) (LoadSummary, error) {
		sum.Duration = time.Since(start)
		if counter != nil {
			sum.BytesRead = counter.BytesRead()
		}
		l.transition(&sum, p)
		if err != nil {
			logger.Error("import failed",
				"accepted", sum.Accepted,
				"skipped", sum.Skipped,
				"error", err,
			)
		}
		return sum, err
	}

	l.transition(&sum, PhaseReading)

	maxLine := l.maxLineBytes()
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, min(64*1024, maxLine)), maxLine)

	interval := l.checkInterval()
	var staged []catalog.Record
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		if lineNo%interval == 0 {
			if err := ctx.Err(); err != nil {
				return finish(PhaseFailed, err)
			}
			if counter != nil {
				logger.Debug("import progress",
					"line", lineNo,
					"bytes", counter.BytesRead(),
					"percent", counter.Progress(),
				)
			}
		}
		if lineNo == 1 {
			continue
		}

		line := strings.TrimSuffix(scanner.Text(), "\r")
		rec, err := catalog.Decode(line, layout)
		if err != nil {
			sum.Skipped++
			sum.Rejections = append(sum.Rejections, Rejection{
				Line:    lineNo,
				Content: line,
				Reason:  err.Error(),
			})
			logger.Warn("skipping line",
				"line", lineNo,
				"reason", err.Error(),
				"content", line,
			)
			continue
		}

		staged = append(staged, rec)
		sum.Accepted++
	}
	if err := scanner.Err(); err != nil {
		return finish(PhaseFailed, &SourceReadError{Line: lineNo + 1, Err: err})
	}

	l.transition(&sum, PhaseStaged)

	if err := ctx.Err(); err != nil {
		return finish(PhaseFailed, err)
	}

	if len(staged) > 0 {
		if err := l.Writer.InsertRecords(ctx, sum.RunID, staged); err != nil {
			return finish(PhaseFailed, &StoreCommitError{Records: len(staged), Err: err})
		}
	}

	sum, err := finish(PhaseCommitted, nil)
	logger.Info("import committed",
		"accepted", sum.Accepted,
		"skipped", sum.Skipped,
		"bytes", sum.BytesRead,
		"duration", sum.Duration,
	)
	return sum, err
}

func sourceCounter(src io.Reader) *CountingReader {
	if s, ok := src.(*Source); ok {
		return s.Counter
	}
	return nil
}

func (l *Loader) transition(sum *LoadSummary, p Phase) {
	sum.Phase = p
	if l.OnPhase != nil {
		l.OnPhase(p)
	}
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l *Loader) checkInterval() int {
	if l.ContextCheckInterval > 0 {
		return l.ContextCheckInterval
	}
	return DefaultContextCheckInterval
}

func (l *Loader) maxLineBytes() int {
	if l.MaxLineBytes > 0 {
		return l.MaxLineBytes
	}
	return DefaultMaxLineBytes
}
