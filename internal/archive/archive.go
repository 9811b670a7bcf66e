// Package archive persists movie metadata to Postgres as the durable system
// of record. The Redis indexes are disposable; a full reindex streams every
// archived movie back through the indexer.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/eventura/movie-autocomplete/internal/movies"
	"github.com/eventura/movie-autocomplete/pkg/config"
	"github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS movies (
    id               text PRIMARY KEY,
    title            text NOT NULL,
    poster_url       text NOT NULL DEFAULT '',
    rating           double precision NOT NULL DEFAULT 0,
    genres           text[] NOT NULL DEFAULT '{}',
    description      text NOT NULL DEFAULT '',
    duration_minutes integer NOT NULL DEFAULT 0,
    release_unix     bigint NOT NULL DEFAULT 0,
    updated_at       timestamptz NOT NULL DEFAULT now()
)`

// Store is the Postgres-backed movie archive.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens the archive database, verifies connectivity, and ensures the
// schema exists.
func New(cfg config.PostgresConfig) (*Store, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("ensuring archive schema: %w", err)
	}
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "archive"),
	}, nil
}

// Upsert inserts or fully replaces the given movies in one transaction.
func (s *Store) Upsert(ctx context.Context, ms []movies.Movie) error {
	if len(ms) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO movies (id, title, poster_url, rating, genres, description, duration_minutes, release_unix, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			poster_url = EXCLUDED.poster_url,
			rating = EXCLUDED.rating,
			genres = EXCLUDED.genres,
			description = EXCLUDED.description,
			duration_minutes = EXCLUDED.duration_minutes,
			release_unix = EXCLUDED.release_unix,
			updated_at = now()`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, m := range ms {
		_, err := stmt.ExecContext(ctx,
			m.ID, m.Title, m.PosterURL, m.Rating, pq.Array(m.Genres),
			m.Description, m.DurationMinutes, m.ReleaseUnix,
		)
		if err != nil {
			return fmt.Errorf("upserting movie %s: %w", m.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upsert: %w", err)
	}
	s.logger.Debug("archived movies", "count", len(ms))
	return nil
}

// Scan streams every archived movie to fn in batches of batchSize, ordered
// by id.
func (s *Store) Scan(ctx context.Context, batchSize int, fn func([]movies.Movie) error) error {
	if batchSize <= 0 {
		batchSize = 500
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, poster_url, rating, genres, description, duration_minutes, release_unix
		FROM movies ORDER BY id`)
	if err != nil {
		return fmt.Errorf("scanning archive: %w", err)
	}
	defer rows.Close()

	batch := make([]movies.Movie, 0, batchSize)
	for rows.Next() {
		var m movies.Movie
		var genres pq.StringArray
		err := rows.Scan(&m.ID, &m.Title, &m.PosterURL, &m.Rating, &genres,
			&m.Description, &m.DurationMinutes, &m.ReleaseUnix)
		if err != nil {
			return fmt.Errorf("scanning archive row: %w", err)
		}
		m.Genres = genres
		batch = append(batch, m)
		if len(batch) == batchSize {
			if err := fn(batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating archive rows: %w", err)
	}
	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
