package ingest

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the statement surface the persistence adapter writes through.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Tx is a transaction. Begin on a Tx opens a savepoint.
type Tx interface {
	Querier
	Begin(ctx context.Context) (Tx, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Conn is a connection checked out of a Pool. Release must always be called.
type Conn interface {
	Begin(ctx context.Context) (Tx, error)
	Release()
}

type Pool interface {
	Acquire(ctx context.Context) (Conn, error)
}

// BookStore upserts catalog rows inside a caller-owned transaction. It never commits.
type BookStore interface {
	UpsertGenre(ctx context.Context, q Querier, name string) (int64, error)
	UpsertBook(ctx context.Context, q Querier, b NormalizedBook) (int64, error)
	LinkBookGenre(ctx context.Context, q Querier, bookID, genreID int64) error
}

// NewPgxPool adapts a pgxpool.Pool to Pool.
func NewPgxPool(db *pgxpool.Pool) Pool {
	return pgxPool{db: db}
}

type pgxPool struct {
	db *pgxpool.Pool
}

func (p pgxPool) Acquire(ctx context.Context) (Conn, error) {
	c, err := p.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return pgxConn{c: c}, nil
}

type pgxConn struct {
	c *pgxpool.Conn
}

func (c pgxConn) Begin(ctx context.Context) (Tx, error) {
	tx, err := c.c.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return pgxTx{Tx: tx}, nil
}

func (c pgxConn) Release() {
	c.c.Release()
}

type pgxTx struct {
	pgx.Tx
}

func (t pgxTx) Begin(ctx context.Context) (Tx, error) {
	sp, err := t.Tx.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return pgxTx{Tx: sp}, nil
}
