package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/filmfolio/internal/catalog"
	"github.com/JonMunkholm/filmfolio/internal/logging"
	"github.com/google/uuid"
)

// DefaultPreviewSamples is how many decoded records a preview returns.
const DefaultPreviewSamples = 10

// PreviewResult reports what an import of the same source would do.
type PreviewResult struct {
	Layout     string
	Accepted   int
	Skipped    int
	Samples    []catalog.Record
	Rejections []Rejection // first RejectionPreview rejections
	Duration   time.Duration
}

// sampleWriter keeps the first few records of a batch and drops the rest.
type sampleWriter struct {
	limit   int
	samples []catalog.Record
}

func (w *sampleWriter) InsertRecords(_ context.Context, _ uuid.UUID, records []catalog.Record) error {
	n := min(len(records), w.limit)
	w.samples = append(w.samples, records[:n]...)
	return nil
}

// Preview decodes req.Source exactly as Import would but writes nothing and
// records no run. It does not take a run slot.
func (s *Service) Preview(ctx context.Context, req Request) (PreviewResult, error) {
	layout, ok := catalog.LookupLayout(req.Layout)
	if !ok {
		return PreviewResult{}, fmt.Errorf("%w: %q", ErrUnknownLayout, req.Layout)
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	w := &sampleWriter{limit: DefaultPreviewSamples}
	loader := &Loader{
		Writer:               w,
		Logger:               slog.New(slog.DiscardHandler),
		ContextCheckInterval: s.cfg.ContextCheckInterval,
		MaxLineBytes:         s.cfg.MaxLineBytes,
	}
	sum, err := loader.Load(ctx, WrapSource(req.Source, req.Size), layout)
	if err != nil {
		return PreviewResult{}, err
	}

	logging.WithFields(ctx, "layout", layout.Name, "file", req.FileName).Info("import previewed",
		"accepted", sum.Accepted,
		"skipped", sum.Skipped,
	)

	return PreviewResult{
		Layout:     layout.Name,
		Accepted:   sum.Accepted,
		Skipped:    sum.Skipped,
		Samples:    w.samples,
		Rejections: preview(sum.Rejections, s.cfg.RejectionPreview),
		Duration:   sum.Duration,
	}, nil
}
