package ingest

import (
	"context"
)

// PostgresStore writes genres, books and their links. Every statement is an
// idempotent upsert keyed on the natural unique column.
type PostgresStore struct{}

func NewPostgresStore() *PostgresStore {
	return &PostgresStore{}
}

func (s *PostgresStore) UpsertGenre(ctx context.Context, q Querier, name string) (int64, error) {
	const sql = `
		INSERT INTO genres (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`

	var id int64
	err := q.QueryRow(ctx, sql, name).Scan(&id)
	return id, err
}

func (s *PostgresStore) UpsertBook(ctx context.Context, q Querier, b NormalizedBook) (int64, error) {
	const sql = `
		INSERT INTO books (external_key, title, author, description, cover_url, published_year, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (external_key) DO UPDATE SET
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			description = EXCLUDED.description,
			cover_url = EXCLUDED.cover_url,
			published_year = EXCLUDED.published_year,
			updated_at = NOW()
		RETURNING id`

	var id int64
	err := q.QueryRow(ctx, sql, b.Key, b.Title, b.Author, b.Description, b.CoverURL, b.Year).Scan(&id)
	return id, err
}

func (s *PostgresStore) LinkBookGenre(ctx context.Context, q Querier, bookID, genreID int64) error {
	const sql = `
		INSERT INTO books_genres (book_id, genre_id)
		VALUES ($1, $2)
		ON CONFLICT (book_id, genre_id) DO NOTHING`

	_, err := q.Exec(ctx, sql, bookID, genreID)
	return err
}
