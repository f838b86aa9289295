package book

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
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

const bookSelect = `
	SELECT b.id, b.external_key, b.title, b.author, b.description, b.cover_url, b.published_year,
	       b.created_at, b.updated_at,
	       COALESCE(array_agg(g.name ORDER BY g.name) FILTER (WHERE g.name IS NOT NULL), '{}') AS genres
	FROM books b
	LEFT JOIN books_genres bg ON bg.book_id = b.id
	LEFT JOIN genres g ON g.id = bg.genre_id`

func scanBook(row pgx.Row, b *Book) error {
	return row.Scan(
		&b.ID, &b.ExternalKey, &b.Title, &b.Author, &b.Description, &b.CoverURL, &b.PublishedYear,
		&b.CreatedAt, &b.UpdatedAt, &b.Genres,
	)
}

// buildWhere renders the filter clauses of q with positional arguments.
func buildWhere(q Query) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	argn := 1

	if q.Genre != "" {
		clauses = append(clauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM books_genres fbg JOIN genres fg ON fg.id = fbg.genre_id WHERE fbg.book_id = b.id AND fg.name = $%d)", argn))
		args = append(args, q.Genre)
		argn++
	}

	if q.Author != "" {
		clauses = append(clauses, fmt.Sprintf("b.author ILIKE $%d", argn))
		args = append(args, "%"+q.Author+"%")
		argn++
	}

	if q.YearFrom != nil {
		clauses = append(clauses, fmt.Sprintf("b.published_year >= $%d", argn))
		args = append(args, *q.YearFrom)
		argn++
	}

	if q.YearTo != nil {
		clauses = append(clauses, fmt.Sprintf("b.published_year <= $%d", argn))
		args = append(args, *q.YearTo)
		argn++
	}

	if q.Q != "" {
		clauses = append(clauses, fmt.Sprintf("(b.title ILIKE $%d OR b.author ILIKE $%d OR b.description ILIKE $%d)", argn, argn, argn))
		args = append(args, "%"+q.Q+"%")
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}

func (r *PostgresRepo) List(ctx context.Context, q Query) ([]Book, int, error) {
	where, args := buildWhere(q)

	countSQL := "SELECT COUNT(*) FROM books b " + where
	var total int
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := r.db.QueryRow(timeoutCtx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	argn := len(args) + 1
	dataSQL := fmt.Sprintf(`%s
		%s
		GROUP BY b.id
		ORDER BY b.title ASC, b.id ASC
		LIMIT $%d OFFSET $%d`,
		bookSelect, where, argn, argn+1)

	argsWithPage := append([]any{}, args...)
	argsWithPage = append(argsWithPage, q.Limit, q.Offset)
	rows, err := r.db.Query(timeoutCtx, dataSQL, argsWithPage...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Book{}
	for rows.Next() {
		var b Book
		if err := scanBook(rows, &b); err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

func (r *PostgresRepo) GetByID(ctx context.Context, id int64) (Book, error) {
	query := bookSelect + `
	WHERE b.id = $1
	GROUP BY b.id`
	var b Book
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := scanBook(r.db.QueryRow(timeoutCtx, query, id), &b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	return b, nil
}

func (r *PostgresRepo) ListGenres(ctx context.Context) ([]Genre, error) {
	const query = `
	SELECT g.id, g.name, COUNT(bg.book_id)
	FROM genres g
	LEFT JOIN books_genres bg ON bg.genre_id = g.id
	GROUP BY g.id
	ORDER BY g.name
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Genre{}
	for rows.Next() {
		var g Genre
		if err := rows.Scan(&g.ID, &g.Name, &g.BookCount); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
