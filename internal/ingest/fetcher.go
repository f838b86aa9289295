package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"openbook/internal/platform/openlibrary"
)

const (
	DefaultPageSize = 20
	throttleEvery   = 5
)

// CatalogClient fetches one page of works for a subject.
type CatalogClient interface {
	SubjectWorks(ctx context.Context, subject string, limit, offset int) ([]openlibrary.Work, error)
}

// PageOutcome counts the records of one page.
type PageOutcome struct {
	Saved   int
	Skipped int
}

// BatchError reports a page whose writes were rolled back as a whole.
type BatchError struct {
	Genre  string
	Offset int
	Op     string
	Err    error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %s offset=%d: %s: %v", e.Genre, e.Offset, e.Op, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Fetcher retrieves a page of works and persists it in one transaction.
type Fetcher struct {
	client   CatalogClient
	pool     Pool
	store    BookStore
	log      *zap.Logger
	throttle time.Duration
	sleep    SleepFunc
}

func NewFetcher(client CatalogClient, pool Pool, store BookStore, log *zap.Logger, pacing Pacing) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{
		client:   client,
		pool:     pool,
		store:    store,
		log:      log,
		throttle: pacing.Throttle,
		sleep:    pacing.sleepFunc(),
	}
}

// FetchPage imports works [offset, offset+pageSize) of genre. Rejected and
// per-record database failures are counted as skipped. Any other failure rolls
// the page back and is returned as a *BatchError.
func (f *Fetcher) FetchPage(ctx context.Context, genre string, pageSize, offset int) (PageOutcome, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	batchErr := func(op string, err error) error {
		return &BatchError{Genre: genre, Offset: offset, Op: op, Err: err}
	}

	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return PageOutcome{}, batchErr("acquire connection", err)
	}
	defer conn.Release()

	works, err := f.client.SubjectWorks(ctx, genre, pageSize, offset)
	if err != nil {
		return PageOutcome{}, batchErr("fetch works", err)
	}
	if len(works) == 0 {
		return PageOutcome{}, nil
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return PageOutcome{}, batchErr("begin", err)
	}
	defer tx.Rollback(ctx)

	genreID, err := f.store.UpsertGenre(ctx, tx, genre)
	if err != nil {
		return PageOutcome{}, batchErr("upsert genre", err)
	}

	var out PageOutcome
	for i := range works {
		book, err := Normalize(&works[i])
		if err != nil {
			out.Skipped++
			f.log.Debug("record skipped", zap.String("genre", genre), zap.Error(err))
			continue
		}

		recordErr, err := f.saveRecord(ctx, tx, book, genreID)
		if err != nil {
			return PageOutcome{}, batchErr("save record", err)
		}
		if recordErr != nil {
			out.Skipped++
			f.log.Warn("record failed",
				zap.String("genre", genre),
				zap.String("key", book.Key),
				zap.Error(recordErr),
			)
			continue
		}

		out.Saved++
		if out.Saved%throttleEvery == 0 {
			if err := f.sleep(ctx, f.throttle); err != nil {
				return PageOutcome{}, batchErr("throttle", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return PageOutcome{}, batchErr("commit", err)
	}

	f.log.Info("page imported",
		zap.String("genre", genre),
		zap.Int("offset", offset),
		zap.Int("saved", out.Saved),
		zap.Int("skipped", out.Skipped),
	)
	return out, nil
}

// saveRecord writes one book and its genre link inside a savepoint. A statement
// rejected by the server is returned as recordErr after the savepoint is rolled
// back. Anything else is a batch failure.
func (f *Fetcher) saveRecord(ctx context.Context, tx Tx, book NormalizedBook, genreID int64) (recordErr, err error) {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("savepoint: %w", err)
	}

	writeErr := f.writeRecord(ctx, sp, book, genreID)
	if writeErr == nil {
		if err := sp.Commit(ctx); err != nil {
			return nil, fmt.Errorf("release savepoint: %w", err)
		}
		return nil, nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(writeErr, &pgErr) {
		return nil, writeErr
	}
	if err := sp.Rollback(ctx); err != nil {
		return nil, fmt.Errorf("rollback savepoint: %w", err)
	}
	return writeErr, nil
}

func (f *Fetcher) writeRecord(ctx context.Context, q Querier, book NormalizedBook, genreID int64) error {
	bookID, err := f.store.UpsertBook(ctx, q, book)
	if err != nil {
		return fmt.Errorf("upsert book: %w", err)
	}
	if err := f.store.LinkBookGenre(ctx, q, bookID, genreID); err != nil {
		return fmt.Errorf("link genre: %w", err)
	}
	return nil
}
