package web

// errors.go turns errors into JSON responses. The technical error is logged
// with the request id; the client gets the mapped user message and code.

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/filmfolio/internal/importer"
	"github.com/JonMunkholm/filmfolio/internal/logging"
	"github.com/google/uuid"
)

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	RunID   string `json:"runId,omitempty"`
}

// Request-level problems caught before the importer runs.
var (
	errInvalidRunID  = errors.New("invalid run id")
	errNoFile        = errors.New("no file provided")
	errInvalidUpload = errors.New("invalid upload form")
)

var requestMessages = map[error]importer.UserMessage{
	errInvalidRunID: {
		Message: "The run id is not valid",
		Action:  "Use the id returned when the import ran",
		Code:    "REQ001",
	},
	errNoFile: {
		Message: "No file was provided",
		Action:  "Send the CSV as the request body or as a multipart field named file",
		Code:    "REQ002",
	},
	errInvalidUpload: {
		Message: "The upload could not be read",
		Action:  "Check that the request is a valid multipart form",
		Code:    "REQ003",
	},
}

var tooLarge = importer.UserMessage{
	Message: "The file is larger than the import limit",
	Action:  "Split the export into smaller files",
	Code:    "REQ004",
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	var srcErr *importer.SourceReadError

	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errInvalidRunID), errors.Is(err, errNoFile), errors.Is(err, errInvalidUpload):
		return http.StatusBadRequest
	case errors.Is(err, importer.ErrUnknownLayout), errors.Is(err, importer.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, importer.ErrAlreadyRolledBack), errors.Is(err, importer.ErrRunNotCommitted):
		return http.StatusConflict
	case errors.Is(err, importer.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &srcErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func userMessage(err error) importer.UserMessage {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return tooLarge
	}
	for target, msg := range requestMessages {
		if errors.Is(err, target) {
			return msg
		}
	}
	return importer.MapError(err)
}

// respondError logs err and writes the mapped JSON error. runID is set when
// the failure belongs to a recorded run.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, runID uuid.UUID) {
	status := statusFor(err)
	msg := userMessage(err)

	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if runID != uuid.Nil {
		args = append(args, "run_id", runID.String())
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", args...)
	} else {
		logger.Warn("request error", args...)
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "30")
	}

	resp := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	if runID != uuid.Nil {
		resp.RunID = runID.String()
	}
	writeJSON(w, status, resp)
}
