package web

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/filmfolio/internal/catalog"
	"github.com/JonMunkholm/filmfolio/internal/importer"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	defaultRunsLimit  = 50
	maxRunsLimit      = 500
	defaultItemsLimit = 100
	maxItemsLimit     = 5000

	// multipartMemory is how much of a multipart upload is held in memory
	// before spilling to a temp file.
	multipartMemory = 32 << 20
)

type layoutResponse struct {
	Name           string         `json:"name"`
	MediaType      string         `json:"mediaType"`
	MinFields      int            `json:"minFields"`
	YearFromPrefix bool           `json:"yearFromPrefix,omitempty"`
	Columns        map[string]int `json:"columns"`
}

type runResponse struct {
	ID         string    `json:"id"`
	Layout     string    `json:"layout"`
	FileName   string    `json:"fileName,omitempty"`
	Accepted   int       `json:"accepted"`
	Skipped    int       `json:"skipped"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"durationMs"`
	StartedAt  time.Time `json:"startedAt"`
}

type importResponse struct {
	Run        runResponse          `json:"run"`
	Rejections []importer.Rejection `json:"rejections"`
	ReportPath string               `json:"reportPath,omitempty"`
	BytesRead  int64                `json:"bytesRead"`
}

type previewResponse struct {
	Layout     string               `json:"layout"`
	Accepted   int                  `json:"accepted"`
	Skipped    int                  `json:"skipped"`
	Samples    []recordResponse     `json:"samples"`
	Rejections []importer.Rejection `json:"rejections"`
	DurationMs int64                `json:"durationMs"`
}

type recordResponse struct {
	ID            int64    `json:"id,omitempty"`
	Title         string   `json:"title"`
	ReleaseYear   int      `json:"releaseYear"`
	Director      string   `json:"director"`
	PosterLink    string   `json:"posterLink,omitempty"`
	MediaType     string   `json:"mediaType"`
	Genres        []string `json:"genres"`
	Synopsis      string   `json:"synopsis"`
	Runtime       string   `json:"runtime"`
	AgeRating     string   `json:"ageRating"`
	Studios       string   `json:"studios,omitempty"`
	Producers     string   `json:"producers,omitempty"`
	ExternalScore float64  `json:"externalScore"`
	Episodes      int      `json:"episodes"`
	Status        string   `json:"status,omitempty"`
}

func toRunResponse(r importer.Run) runResponse {
	return runResponse{
		ID:         r.ID.String(),
		Layout:     r.Layout,
		FileName:   r.FileName,
		Accepted:   r.Accepted,
		Skipped:    r.Skipped,
		Status:     string(r.Status),
		Error:      r.Error,
		DurationMs: r.Duration.Milliseconds(),
		StartedAt:  r.StartedAt.UTC(),
	}
}

func toRecordResponse(r catalog.StoredRecord) recordResponse {
	genres := r.Genres
	if genres == nil {
		genres = []string{}
	}
	return recordResponse{
		ID:            r.ID,
		Title:         r.Title,
		ReleaseYear:   r.ReleaseYear,
		Director:      r.Director,
		PosterLink:    r.PosterLink,
		MediaType:     string(r.MediaType),
		Genres:        genres,
		Synopsis:      r.Synopsis,
		Runtime:       r.Runtime,
		AgeRating:     r.AgeRating,
		Studios:       r.Studios,
		Producers:     r.Producers,
		ExternalScore: r.ExternalScore,
		Episodes:      r.Episodes,
		Status:        r.Status,
	}
}

// parseIntParam parses a positive integer query parameter, clamped to max.
func parseIntParam(r *http.Request, name string, defaultVal, max int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return min(i, max)
}

func parseRunID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		return uuid.Nil, errInvalidRunID
	}
	return id, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}

	limiter := s.service.Limiter()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"activeImports": limiter.ActiveCount(),
		"maxImports":    limiter.MaxConcurrent(),
	})
}

func (s *Server) handleListLayouts(w http.ResponseWriter, r *http.Request) {
	layouts := catalog.Layouts()
	out := make([]layoutResponse, 0, len(layouts))
	for _, l := range layouts {
		cols := make(map[string]int, len(l.Columns))
		for f, idx := range l.Columns {
			cols[string(f)] = idx
		}
		out = append(out, layoutResponse{
			Name:           l.Name,
			MediaType:      string(l.MediaType),
			MinFields:      l.MinFields(),
			YearFromPrefix: l.YearFromPrefix,
			Columns:        cols,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// readUpload builds an import request from either a multipart form with a
// "file" field or the raw CSV body. Raw uploads may name the file with
// ?name=. On failure the error response has been written. The returned
// func releases any temp files.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (importer.Request, func(), bool) {
	layout := chi.URLParam(r, "layout")
	if _, ok := catalog.LookupLayout(layout); !ok {
		s.respondError(w, r, importer.ErrUnknownLayout, uuid.Nil)
		return importer.Request{}, nil, false
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)
	req := importer.Request{Layout: layout}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if r.ContentLength == 0 {
			s.respondError(w, r, errNoFile, uuid.Nil)
			return req, nil, false
		}
		req.Source, req.FileName, req.Size = r.Body, r.URL.Query().Get("name"), r.ContentLength
		return req, func() {}, true
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if !errors.As(err, &maxErr) {
			err = errInvalidUpload
		}
		s.respondError(w, r, err, uuid.Nil)
		return req, nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		_ = r.MultipartForm.RemoveAll()
		s.respondError(w, r, errNoFile, uuid.Nil)
		return req, nil, false
	}

	req.Source, req.FileName, req.Size = file, header.Filename, header.Size
	return req, func() {
		_ = file.Close()
		_ = r.MultipartForm.RemoveAll()
	}, true
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	req, release, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	defer release()

	res, err := s.service.Import(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err, res.Run.ID)
		return
	}

	rejections := res.Rejections
	if rejections == nil {
		rejections = []importer.Rejection{}
	}
	writeJSON(w, http.StatusCreated, importResponse{
		Run:        toRunResponse(res.Run),
		Rejections: rejections,
		ReportPath: res.ReportPath,
		BytesRead:  res.BytesRead,
	})
}

// handlePreview decodes an upload without writing it.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	req, release, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	defer release()

	res, err := s.service.Preview(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err, uuid.Nil)
		return
	}

	resp := previewResponse{
		Layout:     res.Layout,
		Accepted:   res.Accepted,
		Skipped:    res.Skipped,
		Samples:    make([]recordResponse, 0, len(res.Samples)),
		Rejections: res.Rejections,
		DurationMs: res.Duration.Milliseconds(),
	}
	for _, rec := range res.Samples {
		resp.Samples = append(resp.Samples, toRecordResponse(catalog.StoredRecord{Record: rec}))
	}
	if resp.Rejections == nil {
		resp.Rejections = []importer.Rejection{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", defaultRunsLimit, maxRunsLimit)

	runs, err := s.service.Runs(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, uuid.Nil)
		return
	}

	out := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunResponse(run))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	runID, err := parseRunID(r)
	if err != nil {
		s.respondError(w, r, err, uuid.Nil)
		return
	}
	limit := parseIntParam(r, "limit", defaultItemsLimit, maxItemsLimit)

	items, err := s.service.Items(r.Context(), runID, limit)
	if err != nil {
		s.respondError(w, r, err, runID)
		return
	}

	out := make([]recordResponse, 0, len(items))
	for _, it := range items {
		out = append(out, toRecordResponse(it))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	runID, err := parseRunID(r)
	if err != nil {
		s.respondError(w, r, err, uuid.Nil)
		return
	}

	res, err := s.service.Rollback(r.Context(), runID)
	if err != nil {
		s.respondError(w, r, err, runID)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
