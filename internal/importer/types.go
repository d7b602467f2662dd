// Package importer loads catalog exports into a record store.
//
// A run reads one source line by line, decodes each data line with a
// catalog layout, and writes every accepted record in a single
// all-or-nothing batch. Lines that cannot become a record are skipped and
// reported; they never abort the run.
package importer

import (
	"context"
	"time"

	"github.com/JonMunkholm/filmfolio/internal/catalog"
	"github.com/google/uuid"
)

// Phase is the stage of a load.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseReading   Phase = "reading"
	PhaseStaged    Phase = "staged"
	PhaseCommitted Phase = "committed"
	PhaseFailed    Phase = "failed"
)

// Rejection is one data line that was skipped.
type Rejection struct {
	Line    int    `json:"line"` // 1-based, header is line 1
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

// LoadSummary is the outcome of one load.
type LoadSummary struct {
	RunID      uuid.UUID
	Layout     string
	Accepted   int
	Skipped    int
	Rejections []Rejection
	Phase      Phase
	Duration   time.Duration
	BytesRead  int64 // raw source bytes; 0 unless the source came from WrapSource
}

// RecordWriter persists a batch of records tagged with the run that
// produced them. Implementations must write all records or none.
type RecordWriter interface {
	InsertRecords(ctx context.Context, runID uuid.UUID, records []catalog.Record) error
}

// RunStatus is the persisted state of an import run.
type RunStatus string

const (
	RunCommitted  RunStatus = "committed"
	RunFailed     RunStatus = "failed"
	RunRolledBack RunStatus = "rolled_back"
)

// Run is the audit entry kept for every import attempt.
type Run struct {
	ID        uuid.UUID
	Layout    string
	FileName  string
	Accepted  int
	Skipped   int
	Status    RunStatus
	Error     string
	Duration  time.Duration
	StartedAt time.Time
}

// Store is everything the import service needs from persistence.
type Store interface {
	RecordWriter

	RecordRun(ctx context.Context, run Run) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// RollbackRun deletes the records written by a committed run and marks
	// it rolled back. Returns ErrRunNotFound or ErrAlreadyRolledBack.
	RollbackRun(ctx context.Context, runID uuid.UUID) (int64, error)

	ListItems(ctx context.Context, runID uuid.UUID, limit int) ([]catalog.StoredRecord, error)
}

// RollbackResult reports a completed rollback.
type RollbackResult struct {
	RunID       uuid.UUID `json:"runId"`
	RowsDeleted int64     `json:"rowsDeleted"`
}
