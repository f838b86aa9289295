package ingest

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository stores sync run bookkeeping.
type Repository interface {
	CreateRun(ctx context.Context, run *Run) (int64, error)
	UpdateRun(ctx context.Context, run *Run) error
	LatestRun(ctx context.Context) (Run, error)
	CountBooks(ctx context.Context) (int, error)
}

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) CreateRun(ctx context.Context, run *Run) (int64, error) {
	const sql = `
		INSERT INTO sync_runs (status, trigger, genres, target_per_genre, started_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	var id int64
	err := r.db.QueryRow(ctx, sql, run.Status, run.Trigger, run.Genres, run.TargetPerGenre, run.StartedAt).Scan(&id)
	return id, err
}

func (r *PostgresRepo) UpdateRun(ctx context.Context, run *Run) error {
	const sql = `
		UPDATE sync_runs SET
			status = $1,
			books_saved = $2,
			failed_genres = $3,
			error = $4,
			finished_at = $5
		WHERE id = $6`

	_, err := r.db.Exec(ctx, sql, run.Status, run.BooksSaved, run.FailedGenres, run.Error, run.FinishedAt, run.ID)
	return err
}

func (r *PostgresRepo) LatestRun(ctx context.Context) (Run, error) {
	const sql = `
		SELECT id, status, trigger, genres, target_per_genre, books_saved,
		       failed_genres, COALESCE(error, ''), started_at, finished_at
		FROM sync_runs
		ORDER BY started_at DESC, id DESC
		LIMIT 1`

	var run Run
	err := r.db.QueryRow(ctx, sql).Scan(
		&run.ID, &run.Status, &run.Trigger, &run.Genres, &run.TargetPerGenre, &run.BooksSaved,
		&run.FailedGenres, &run.Error, &run.StartedAt, &run.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Run{}, ErrNotFound
		}
		return Run{}, err
	}
	return run, nil
}

func (r *PostgresRepo) CountBooks(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM books`).Scan(&n)
	return n, err
}
