package auth

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresBlacklist struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresBlacklist(db *pgxpool.Pool, timeout time.Duration) *PostgresBlacklist {
	return &PostgresBlacklist{db: db, timeout: timeout}
}

func (r *PostgresBlacklist) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresBlacklist) Add(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	const query = `
	INSERT INTO token_blacklist (jti, user_id, expires_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (jti) DO NOTHING
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	_, err := r.db.Exec(timeoutCtx, query, jti, userID, expiresAt)
	return err
}

func (r *PostgresBlacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM token_blacklist WHERE jti = $1)`
	var exists bool
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query, jti).Scan(&exists)
	return exists, err
}

func (r *PostgresBlacklist) CleanupExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM token_blacklist WHERE expires_at < now()`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
