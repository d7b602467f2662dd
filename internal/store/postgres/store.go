// Package postgres stores catalog records and import runs in PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/JonMunkholm/filmfolio/internal/catalog"
	"github.com/JonMunkholm/filmfolio/internal/importer"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// Config holds connection pool settings.
type Config struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Store implements importer.Store on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ importer.Store = (*Store)(nil)

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return New(pool), nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// copyColumns lists movies columns in the order copyRow returns values.
var copyColumns = []string{
	"title", "release_year", "director", "poster_link", "media_type",
	"genres", "synopsis", "runtime", "age_rating", "external_score",
	"episodes", "status", "studios", "producers", "import_run_id",
}

func copyRow(runID pgtype.UUID, r catalog.Record) []any {
	return []any{
		r.Title,
		int32(r.ReleaseYear),
		r.Director,
		toPgText(r.PosterLink),
		string(r.MediaType),
		r.GenresText(),
		r.Synopsis,
		r.Runtime,
		r.AgeRating,
		r.ExternalScore,
		int32(r.Episodes),
		r.Status,
		r.Studios,
		r.Producers,
		runID,
	}
}

// InsertRecords copies records into movies inside one transaction.
func (s *Store) InsertRecords(ctx context.Context, runID uuid.UUID, records []catalog.Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	pgRunID := toPgUUID(runID)
	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"movies"},
		copyColumns,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			return copyRow(pgRunID, records[i]), nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy movies: %w", err)
	}
	if int(n) != len(records) {
		return fmt.Errorf("copy movies: wrote %d of %d rows", n, len(records))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RecordRun inserts or replaces the audit entry for a run.
func (s *Store) RecordRun(ctx context.Context, run importer.Run) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO import_runs (id, layout, file_name, accepted, skipped, status, error, duration_ms, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			accepted = EXCLUDED.accepted,
			skipped = EXCLUDED.skipped,
			status = EXCLUDED.status,
			error = EXCLUDED.error,
			duration_ms = EXCLUDED.duration_ms`,
		toPgUUID(run.ID), run.Layout, run.FileName, run.Accepted, run.Skipped,
		string(run.Status), run.Error, run.Duration.Milliseconds(), run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]importer.Run, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, layout, file_name, accepted, skipped, status, error, duration_ms, started_at
		FROM import_runs
		ORDER BY started_at DESC
		LIMIT $1`, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []importer.Run
	for rows.Next() {
		var (
			run        importer.Run
			id         pgtype.UUID
			status     string
			durationMs int64
		)
		if err := rows.Scan(&id, &run.Layout, &run.FileName, &run.Accepted, &run.Skipped,
			&status, &run.Error, &durationMs, &run.StartedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.ID = fromPgUUID(id)
		run.Status = importer.RunStatus(status)
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RollbackRun deletes the records of a committed run and marks it rolled back.
func (s *Store) RollbackRun(ctx context.Context, runID uuid.UUID) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	id := toPgUUID(runID)

	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM import_runs WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, importer.ErrRunNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get run: %w", err)
	}
	if err := checkRollbackable(importer.RunStatus(status)); err != nil {
		return 0, err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM movies WHERE import_run_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete run records: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE import_runs SET status = $2 WHERE id = $1`, id, string(importer.RunRolledBack)); err != nil {
		return 0, fmt.Errorf("mark run rolled back: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return tag.RowsAffected(), nil
}

func checkRollbackable(status importer.RunStatus) error {
	switch status {
	case importer.RunCommitted:
		return nil
	case importer.RunRolledBack:
		return importer.ErrAlreadyRolledBack
	default:
		return importer.ErrRunNotCommitted
	}
}

// ListItems returns up to limit records written by a run in insertion order.
func (s *Store) ListItems(ctx context.Context, runID uuid.UUID, limit int) ([]catalog.StoredRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT movie_id, title, release_year, director, poster_link, media_type, genres,
		       synopsis, runtime, age_rating, external_score, episodes, status, studios, producers
		FROM movies
		WHERE import_run_id = $1
		ORDER BY movie_id
		LIMIT $2`, toPgUUID(runID), sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []catalog.StoredRecord
	for rows.Next() {
		var (
			it        catalog.StoredRecord
			poster    pgtype.Text
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

func sqlLimit(limit int) int64 {
	if limit <= 0 {
		return math.MaxInt64
	}
	return int64(limit)
}
