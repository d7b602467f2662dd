package importer

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/filmfolio/internal/catalog"
	"github.com/JonMunkholm/filmfolio/internal/logging"
	"github.com/JonMunkholm/filmfolio/internal/metrics"
	"github.com/google/uuid"
)

// DefaultRejectionPreview is how many rejections a Result carries.
const DefaultRejectionPreview = 20

// ServiceConfig tunes a Service. Zero values use the package defaults.
type ServiceConfig struct {
	MaxLineBytes         int
	ContextCheckInterval int

	// Timeout bounds a whole run. Zero means no limit beyond the caller's ctx.
	Timeout time.Duration

	// ReportDir, if set, receives a rejection report for every run that
	// skipped at least one line.
	ReportDir string

	RejectionPreview int
}

// Service runs imports against a Store and keeps the run audit trail.
type Service struct {
	store   Store
	limiter *Limiter
	cfg     ServiceConfig

	now func() time.Time
}

// NewService creates a Service. A nil limiter allows one run at a time.
func NewService(store Store, limiter *Limiter, cfg ServiceConfig) *Service {
	if limiter == nil {
		limiter = NewLimiter(DefaultMaxConcurrentImports, DefaultMaxWaitTime)
	}
	if cfg.RejectionPreview <= 0 {
		cfg.RejectionPreview = DefaultRejectionPreview
	}
	return &Service{
		store:   store,
		limiter: limiter,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Request describes one import.
type Request struct {
	Layout   string
	FileName string
	Source   io.Reader
	Size     int64 // raw size if known, for progress

	// ReportPath overrides the report location for this run.
	ReportPath string
}

// Result is what a caller sees after an import.
type Result struct {
	Run        Run
	Rejections []Rejection // first RejectionPreview rejections
	ReportPath string      // empty if no report was written
	BytesRead  int64
}

// Import runs one import. The run is recorded whether or not it succeeds;
// on failure the returned Result still carries the failed run.
func (s *Service) Import(ctx context.Context, req Request) (Result, error) {
	layout, ok := catalog.LookupLayout(req.Layout)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownLayout, req.Layout)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return Result{}, err
	}
	defer s.limiter.Release()

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	logger := logging.WithFields(ctx, "layout", layout.Name, "file", req.FileName)
	started := s.now()

	loader := &Loader{
		Writer:               s.store,
		Logger:               logger,
		ContextCheckInterval: s.cfg.ContextCheckInterval,
		MaxLineBytes:         s.cfg.MaxLineBytes,
	}
	sum, loadErr := loader.Load(ctx, WrapSource(req.Source, req.Size), layout)

	run := Run{
		ID:        sum.RunID,
		Layout:    layout.Name,
		FileName:  req.FileName,
		Accepted:  sum.Accepted,
		Skipped:   sum.Skipped,
		Status:    RunCommitted,
		Duration:  sum.Duration,
		StartedAt: started,
	}
	if loadErr != nil {
		run.Status = RunFailed
		run.Error = FormatUserError(loadErr)
	}

	metrics.RecordRun(layout.Name, string(run.Status), run.Accepted, run.Skipped, s.now().Sub(started))

	// The audit entry outlives a cancelled request.
	recordCtx := context.WithoutCancel(ctx)
	if err := s.store.RecordRun(recordCtx, run); err != nil {
		logger.Error("record import run", "run_id", run.ID.String(), "error", err)
		if loadErr == nil {
			return Result{Run: run}, fmt.Errorf("record run %s: %w", run.ID, err)
		}
	}

	res := Result{
		Run:        run,
		Rejections: preview(sum.Rejections, s.cfg.RejectionPreview),
		BytesRead:  sum.BytesRead,
	}

	if path := s.reportPath(req, run.ID); path != "" && len(sum.Rejections) > 0 {
		if err := WriteRejections(path, sum.Rejections); err != nil {
			logger.Warn("write rejection report", "path", path, "error", err)
		} else {
			res.ReportPath = path
		}
	}

	return res, loadErr
}

func (s *Service) reportPath(req Request, runID uuid.UUID) string {
	if req.ReportPath != "" {
		return req.ReportPath
	}
	if s.cfg.ReportDir == "" {
		return ""
	}
	return filepath.Join(s.cfg.ReportDir, runID.String()+"-rejections.csv")
}

func preview(r []Rejection, n int) []Rejection {
	if len(r) <= n {
		return r
	}
	return r[:n]
}

// Runs lists the most recent runs, newest first.
func (s *Service) Runs(ctx context.Context, limit int) ([]Run, error) {
	runs, err := s.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Items lists up to limit records written by a run.
func (s *Service) Items(ctx context.Context, runID uuid.UUID, limit int) ([]catalog.StoredRecord, error) {
	items, err := s.store.ListItems(ctx, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("list items for run %s: %w", runID, err)
	}
	return items, nil
}

// Rollback deletes everything a committed run wrote. It holds a run slot
// so it never interleaves with a load.
func (s *Service) Rollback(ctx context.Context, runID uuid.UUID) (RollbackResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return RollbackResult{}, err
	}
	defer s.limiter.Release()

	n, err := s.store.RollbackRun(ctx, runID)
	if err != nil {
		return RollbackResult{}, fmt.Errorf("rollback run %s: %w", runID, err)
	}

	logging.WithFields(ctx, "run_id", runID.String()).Info("import rolled back", "rows_deleted", n)
	return RollbackResult{RunID: runID, RowsDeleted: n}, nil
}

// Limiter exposes the run gate, e.g. for draining on shutdown.
func (s *Service) Limiter() *Limiter {
	return s.limiter
}
