// Package sqlite stores catalog records and import runs in a SQLite file,
// for single-host deployments and tests.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/filmfolio/internal/catalog"
	"github.com/JonMunkholm/filmfolio/internal/importer"
	"github.com/google/uuid"

	_ "modernc.org/sqlite" // pure Go driver
)

//go:embed schema.sql
var schema string

// timeFormat is fixed width so started_at sorts as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Config defines SQLite operational parameters.
type Config struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// DefaultConfig returns the recommended configuration.
func DefaultConfig() Config {
	return Config{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 4,
	}
}

// Store implements importer.Store on database/sql.
type Store struct {
	db *sql.DB
}

var _ importer.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path. WAL mode and the
// busy timeout are set in the DSN so they apply to every pooled connection.
func Open(path string, cfg Config) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const insertMovie = `
INSERT INTO movies (
	title, release_year, director, poster_link, media_type, genres, synopsis,
	runtime, age_rating, external_score, episodes, status, studios, producers, import_run_id
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// InsertRecords inserts records with one prepared statement inside one
// transaction.
func (s *Store) InsertRecords(ctx context.Context, runID uuid.UUID, records []catalog.Record) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertMovie)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	id := runID.String()
	for i, r := range records {
		if _, err = stmt.ExecContext(ctx,
			r.Title, r.ReleaseYear, r.Director, nullString(r.PosterLink), string(r.MediaType),
			r.GenresText(), r.Synopsis, r.Runtime, r.AgeRating, r.ExternalScore,
			r.Episodes, r.Status, r.Studios, r.Producers, id,
		); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RecordRun inserts or replaces the audit entry for a run.
func (s *Store) RecordRun(ctx context.Context, run importer.Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO import_runs (id, layout, file_name, accepted, skipped, status, error, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			accepted = excluded.accepted,
			skipped = excluded.skipped,
			status = excluded.status,
			error = excluded.error,
			duration_ms = excluded.duration_ms`,
		run.ID.String(), run.Layout, run.FileName, run.Accepted, run.Skipped,
		string(run.Status), run.Error, run.Duration.Milliseconds(),
		run.StartedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]importer.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, layout, file_name, accepted, skipped, status, error, duration_ms, started_at
		FROM import_runs
		ORDER BY started_at DESC
		LIMIT ?`, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []importer.Run
	for rows.Next() {
		var (
			run        importer.Run
			id         string
			status     string
			durationMs int64
			startedAt  string
		)
		if err := rows.Scan(&id, &run.Layout, &run.FileName, &run.Accepted, &run.Skipped,
			&status, &run.Error, &durationMs, &startedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("scan run id %q: %w", id, err)
		}
		if run.StartedAt, err = time.Parse(timeFormat, startedAt); err != nil {
			return nil, fmt.Errorf("scan run %s started_at: %w", id, err)
		}
		run.Status = importer.RunStatus(status)
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RollbackRun deletes the records of a committed run and marks it rolled back.
func (s *Store) RollbackRun(ctx context.Context, runID uuid.UUID) (n int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	id := runID.String()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM import_runs WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, importer.ErrRunNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get run: %w", err)
	}

	switch importer.RunStatus(status) {
	case importer.RunCommitted:
	case importer.RunRolledBack:
		return 0, importer.ErrAlreadyRolledBack
	default:
		return 0, importer.ErrRunNotCommitted
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM movies WHERE import_run_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("delete run records: %w", err)
	}
	if n, err = res.RowsAffected(); err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE import_runs SET status = ? WHERE id = ?`, string(importer.RunRolledBack), id); err != nil {
		return 0, fmt.Errorf("mark run rolled back: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// ListItems returns up to limit records written by a run in insertion order.
func (s *Store) ListItems(ctx context.Context, runID uuid.UUID, limit int) ([]catalog.StoredRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT movie_id, title, release_year, director, poster_link, media_type, genres,
		       synopsis, runtime, age_rating, external_score, episodes, status, studios, producers
		FROM movies
		WHERE import_run_id = ?
		ORDER BY movie_id
		LIMIT ?`, runID.String(), sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []catalog.StoredRecord
	for rows.Next() {
		var (
			it        catalog.StoredRecord
			poster    sql.NullString
			mediaType string
			genres    string
		)
		if err := rows.Scan(&it.ID, &it.Title, &it.ReleaseYear, &it.Director, &poster, &mediaType,
			&genres, &it.Synopsis, &it.Runtime, &it.AgeRating, &it.ExternalScore, &it.Episodes,
			&it.Status, &it.Studios, &it.Producers); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.PosterLink = poster.String
		it.MediaType = catalog.MediaType(mediaType)
		it.Genres = catalog.SplitGenres(genres)
		items = append(items, it)
	}
	return items, rows.Err()
}

// CountRecords returns the number of rows in movies.
func (s *Store) CountRecords(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// sqlLimit maps limit <= 0 to SQLite's "no limit".
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
