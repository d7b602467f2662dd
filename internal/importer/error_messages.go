package importer

// error_messages.go maps import errors to user-facing messages with a code
// that can be quoted to support.
//
// # Line rejections (IMP001-IMP099)
//
//	IMP001 - Malformed line: fewer fields than the layout needs
//	IMP002 - Invalid year: release year missing or not a 4-digit year
//	IMP003 - Missing title: title column is empty
//
// # Source errors (SRC001-SRC099)
//
//	SRC001 - Read failure: the source could not be opened or read to the end
//	SRC002 - Line too long: a single line exceeds IMPORT_MAX_LINE_BYTES
//
// # Store errors (DB001-DB099)
//
//	DB001 - Commit failed: the batch was rejected, nothing was written
//	DB002 - Connection refused: the store is unreachable
//
// # Run errors (RUN001-RUN099)
//
//	RUN001 - System busy: another import is running
//	RUN002 - Unknown layout
//	RUN003 - Run not found
//	RUN004 - Already rolled back
//	RUN005 - Not committed: failed runs have nothing to roll back
//	RUN006 - Cancelled
//
// # Default (ERR000)
//
// Typed errors are matched first with errors.Is/errors.As. Anything else
// falls through to a case-insensitive substring table, first match wins.

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/filmfolio/internal/catalog"
)

// UserMessage is a user-facing description of an error.
type UserMessage struct {
	Message string
	Action  string
	Code    string
}

var (
	msgMalformed = UserMessage{
		Message: "Line has fewer columns than the layout needs",
		Action:  "Check the export was produced for the selected layout",
		Code:    "IMP001",
	}
	msgInvalidYear = UserMessage{
		Message: "Release year is missing or not a 4-digit year",
		Action:  "Fix the year column or remove the line",
		Code:    "IMP002",
	}
	msgMissingTitle = UserMessage{
		Message: "Title is empty",
		Action:  "Fill in the title column or remove the line",
		Code:    "IMP003",
	}
	msgSourceRead = UserMessage{
		Message: "The file could not be opened or read to the end",
		Action:  "Check the file exists and upload it again",
		Code:    "SRC001",
	}
	msgLineTooLong = UserMessage{
		Message: "A line in the file is too long",
		Action:  "Check the file is a line-based CSV export",
		Code:    "SRC002",
	}
	msgCommit = UserMessage{
		Message: "The import could not be saved and nothing was written",
		Action:  "Please try again",
		Code:    "DB001",
	}
	msgConnRefused = UserMessage{
		Message: "Unable to connect to the database",
		Action:  "Please try again in a few moments",
		Code:    "DB002",
	}
	msgBusy = UserMessage{
		Message: "Another import is in progress",
		Action:  "Please wait for it to finish and try again",
		Code:    "RUN001",
	}
	msgUnknownLayout = UserMessage{
		Message: "Unknown layout",
		Action:  "Choose one of the layouts listed at /api/layouts",
		Code:    "RUN002",
	}
	msgRunNotFound = UserMessage{
		Message: "Import run not found",
		Action:  "Check the run id",
		Code:    "RUN003",
	}
	msgRolledBack = UserMessage{
		Message: "This import has already been rolled back",
		Action:  "No action needed",
		Code:    "RUN004",
	}
	msgNotCommitted = UserMessage{
		Message: "This import did not write any records",
		Action:  "Only committed imports can be rolled back",
		Code:    "RUN005",
	}
	msgCancelled = UserMessage{
		Message: "The import was cancelled and nothing was written",
		Action:  "Start the import again when ready",
		Code:    "RUN006",
	}
	defaultMessage = UserMessage{
		Message: "An unexpected error occurred",
		Action:  "Please try again or contact support",
		Code:    "ERR000",
	}
)

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catches errors that arrive without their type, e.g. after
// crossing a driver boundary.
var errorPatterns = []errorPattern{
	{pattern: "connection refused", msg: msgConnRefused},
	{pattern: "malformed line", msg: msgMalformed},
	{pattern: "invalid release year", msg: msgInvalidYear},
	{pattern: "missing title", msg: msgMissingTitle},
	{pattern: "token too long", msg: msgLineTooLong},
	{pattern: "too many imports", msg: msgBusy},
	{pattern: "unknown layout", msg: msgUnknownLayout},
}

// MapError converts an error to a user-facing message. Returns the zero
// UserMessage for nil and ERR000 when nothing matches.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		malformed *catalog.MalformedLineError
		badYear   *catalog.InvalidYearError
		srcErr    *SourceReadError
		commitErr *StoreCommitError
	)

	switch {
	case errors.As(err, &malformed):
		return msgMalformed
	case errors.As(err, &badYear):
		return msgInvalidYear
	case errors.Is(err, catalog.ErrMissingTitle):
		return msgMissingTitle
	case errors.Is(err, bufio.ErrTooLong):
		return msgLineTooLong
	case errors.As(err, &srcErr):
		return msgSourceRead
	case errors.Is(err, ErrTooManyImports):
		return msgBusy
	case errors.Is(err, ErrUnknownLayout):
		return msgUnknownLayout
	case errors.Is(err, ErrRunNotFound):
		return msgRunNotFound
	case errors.Is(err, ErrAlreadyRolledBack):
		return msgRolledBack
	case errors.Is(err, ErrRunNotCommitted):
		return msgNotCommitted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return msgCancelled
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	if errors.As(err, &commitErr) {
		return msgCommit
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
