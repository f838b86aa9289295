package favorite

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepo) Add(ctx context.Context, userID string, bookID int64) error {
	const insertSQL = `
		INSERT INTO favorites (user_id, book_id, created_at)
		SELECT $1, b.id, NOW()
		FROM books b
		WHERE b.id = $2
		ON CONFLICT (user_id, book_id) DO NOTHING
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	commandTag, err := r.db.Exec(timeoutCtx, insertSQL, userID, bookID)
	if err != nil {
		return err
	}
	if commandTag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(timeoutCtx, `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`, bookID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrBookNotFound
	}
	return ErrAlreadyFavorite
}

func (r *PostgresRepo) Remove(ctx context.Context, userID string, bookID int64) error {
	const deleteSQL = `DELETE FROM favorites WHERE user_id = $1 AND book_id = $2`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	commandTag, err := r.db.Exec(timeoutCtx, deleteSQL, userID, bookID)
	if err != nil {
		return err
	}
	if commandTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Count(ctx context.Context, userID string) (int, error) {
	var n int
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, `SELECT COUNT(*) FROM favorites WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

func (r *PostgresRepo) List(ctx context.Context, userID string, limit, offset int) ([]Item, int, error) {
	total, err := r.Count(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	const dataSQL = `
		SELECT b.id, b.external_key, b.title, b.author, b.description, b.cover_url, b.published_year,
		       b.created_at, b.updated_at,
		       COALESCE(array_agg(g.name ORDER BY g.name) FILTER (WHERE g.name IS NOT NULL), '{}'),
		       f.created_at
		FROM favorites f
		JOIN books b ON b.id = f.book_id
		LEFT JOIN books_genres bg ON bg.book_id = b.id
		LEFT JOIN genres g ON g.id = bg.genre_id
		WHERE f.user_id = $1
		GROUP BY b.id, f.created_at
		ORDER BY f.created_at DESC
		LIMIT $2 OFFSET $3
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, dataSQL, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(
			&it.ID, &it.ExternalKey, &it.Title, &it.Author, &it.Description, &it.CoverURL, &it.PublishedYear,
			&it.CreatedAt, &it.UpdatedAt, &it.Genres, &it.FavoritedAt,
		); err != nil {
			return nil, 0, err
		}
		items = append(items, it)
	}
	return items, total, rows.Err()
}
