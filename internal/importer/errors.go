package importer

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownLayout is returned when a request names an unregistered layout.
	ErrUnknownLayout = errors.New("unknown layout")

	// ErrRunNotFound is returned by stores when no run has the given id.
	ErrRunNotFound = errors.New("import run not found")

	// ErrAlreadyRolledBack is returned when rolling back a run twice.
	ErrAlreadyRolledBack = errors.New("import run already rolled back")

	// ErrRunNotCommitted is returned when rolling back a run that never
	// wrote anything.
	ErrRunNotCommitted = errors.New("import run was not committed")
)

// SourceReadError reports that the source could not be opened or read to
// the end. The run is failed and nothing is written.
type SourceReadError struct {
	Line int // line being read when the failure happened; 0 if never opened
	Err  error
}

func (e *SourceReadError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("open source: %v", e.Err)
	}
	return fmt.Sprintf("read source at line %d: %v", e.Line, e.Err)
}

func (e *SourceReadError) Unwrap() error { return e.Err }

// StoreCommitError reports that the staged batch could not be written.
// The store guarantees none of the batch was applied.
type StoreCommitError struct {
	Records int
	Err     error
}

func (e *StoreCommitError) Error() string {
	return fmt.Sprintf("commit %d records: %v", e.Records, e.Err)
}

func (e *StoreCommitError) Unwrap() error { return e.Err }
