package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"openbook/internal/platform/openlibrary"
)

type fakeClient struct {
	works []openlibrary.Work
	err   error
	calls int
}

func (c *fakeClient) SubjectWorks(ctx context.Context, subject string, limit, offset int) ([]openlibrary.Work, error) {
	c.calls++
	return c.works, c.err
}

type fakeTx struct {
	parent     *fakeTx
	savepoints []*fakeTx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("fakeTx: Exec not supported")
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (t *fakeTx) Begin(ctx context.Context) (Tx, error) {
	sp := &fakeTx{parent: t}
	t.savepoints = append(t.savepoints, sp)
	return sp, nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

func (t *fakeTx) rolledBackSavepoints() int {
	n := 0
	for _, sp := range t.savepoints {
		if sp.rolledBack {
			n++
		}
	}
	return n
}

type fakeConn struct {
	tx       *fakeTx
	began    int
	released bool
}

func (c *fakeConn) Begin(ctx context.Context) (Tx, error) {
	c.began++
	c.tx = &fakeTx{}
	return c.tx, nil
}

func (c *fakeConn) Release() { c.released = true }

type fakePool struct {
	conn       *fakeConn
	acquireErr error
}

func (p *fakePool) Acquire(ctx context.Context) (Conn, error) {
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	p.conn = &fakeConn{}
	return p.conn, nil
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) UpsertGenre(ctx context.Context, q Querier, name string) (int64, error) {
	args := m.Called(ctx, q, name)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) UpsertBook(ctx context.Context, q Querier, b NormalizedBook) (int64, error) {
	args := m.Called(ctx, q, b)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) LinkBookGenre(ctx context.Context, q Querier, bookID, genreID int64) error {
	args := m.Called(ctx, q, bookID, genreID)
	return args.Error(0)
}

type sleepRecorder struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, d)
	return nil
}

func (s *sleepRecorder) Calls() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.calls...)
}

func works(n int) []openlibrary.Work {
	out := make([]openlibrary.Work, n)
	for i := range out {
		out[i] = openlibrary.Work{
			Key:     fmt.Sprintf("/works/OL%dW", i+1),
			Title:   fmt.Sprintf("Book %d", i+1),
			Authors: []openlibrary.Author{{Name: "Author"}},
		}
	}
	return out
}

func hasKey(key string) any {
	return mock.MatchedBy(func(b NormalizedBook) bool { return b.Key == key })
}

func newTestFetcher(client CatalogClient, pool Pool, store BookStore, sleeper *sleepRecorder) *Fetcher {
	pacing := DefaultPacing()
	pacing.Sleep = sleeper.Sleep
	return NewFetcher(client, pool, store, nil, pacing)
}

func TestFetcher_FetchPage(t *testing.T) {
	ctx := context.Background()

	t.Run("zero records short-circuits without a transaction", func(t *testing.T) {
		client := &fakeClient{}
		pool := &fakePool{}
		store := new(mockStore)
		f := newTestFetcher(client, pool, store, &sleepRecorder{})

		out, err := f.FetchPage(ctx, "fantasy", 20, 0)
		require.NoError(t, err)

		assert.Equal(t, PageOutcome{}, out)
		assert.Equal(t, 0, pool.conn.began)
		assert.True(t, pool.conn.released)
		store.AssertNotCalled(t, "UpsertGenre", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("saves valid records, skips rejected ones and throttles", func(t *testing.T) {
		ws := works(7)
		ws[3].Authors = nil
		client := &fakeClient{works: ws}
		pool := &fakePool{}
		store := new(mockStore)
		sleeper := &sleepRecorder{}
		f := newTestFetcher(client, pool, store, sleeper)

		store.On("UpsertGenre", ctx, mock.Anything, "fantasy").Return(int64(9), nil).Once()
		store.On("UpsertBook", ctx, mock.Anything, mock.Anything).Return(int64(1), nil).Times(6)
		store.On("LinkBookGenre", ctx, mock.Anything, int64(1), int64(9)).Return(nil).Times(6)

		out, err := f.FetchPage(ctx, "fantasy", 20, 40)
		require.NoError(t, err)

		assert.Equal(t, PageOutcome{Saved: 6, Skipped: 1}, out)
		assert.True(t, pool.conn.tx.committed)
		assert.False(t, pool.conn.tx.rolledBack)
		assert.True(t, pool.conn.released)
		assert.Equal(t, []time.Duration{200 * time.Millisecond}, sleeper.Calls())
		store.AssertExpectations(t)
	})

	t.Run("batch failure on the third record rolls back the page", func(t *testing.T) {
		client := &fakeClient{works: works(5)}
		pool := &fakePool{}
		store := new(mockStore)
		f := newTestFetcher(client, pool, store, &sleepRecorder{})

		store.On("UpsertGenre", ctx, mock.Anything, "history").Return(int64(2), nil)
		store.On("UpsertBook", ctx, mock.Anything, hasKey("/works/OL3W")).Return(int64(0), errors.New("conn closed"))
		store.On("UpsertBook", ctx, mock.Anything, mock.Anything).Return(int64(1), nil)
		store.On("LinkBookGenre", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		out, err := f.FetchPage(ctx, "history", 20, 0)

		var batchErr *BatchError
		require.ErrorAs(t, err, &batchErr)
		assert.Equal(t, "history", batchErr.Genre)
		assert.Equal(t, PageOutcome{}, out)
		assert.False(t, pool.conn.tx.committed)
		assert.True(t, pool.conn.tx.rolledBack)
		assert.True(t, pool.conn.released)
		store.AssertNumberOfCalls(t, "UpsertBook", 3)
	})

	t.Run("per-record database error is skipped", func(t *testing.T) {
		client := &fakeClient{works: works(3)}
		pool := &fakePool{}
		store := new(mockStore)
		f := newTestFetcher(client, pool, store, &sleepRecorder{})

		pgErr := &pgconn.PgError{Code: "22001", Message: "value too long for type character varying(255)"}
		store.On("UpsertGenre", ctx, mock.Anything, "poetry").Return(int64(4), nil)
		store.On("UpsertBook", ctx, mock.Anything, hasKey("/works/OL2W")).Return(int64(0), pgErr)
		store.On("UpsertBook", ctx, mock.Anything, mock.Anything).Return(int64(1), nil)
		store.On("LinkBookGenre", ctx, mock.Anything, int64(1), int64(4)).Return(nil)

		out, err := f.FetchPage(ctx, "poetry", 20, 0)
		require.NoError(t, err)

		assert.Equal(t, PageOutcome{Saved: 2, Skipped: 1}, out)
		assert.True(t, pool.conn.tx.committed)
		assert.Equal(t, 1, pool.conn.tx.rolledBackSavepoints())
		store.AssertNumberOfCalls(t, "LinkBookGenre", 2)
	})

	t.Run("malformed record in the response is skipped", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"works":[
				{"key":"/works/OL1W","title":"Dune","authors":[{"name":"Frank Herbert"}],"first_publish_year":1965},
				{"key":"/works/OL2W","title":"Odd","authors":[{"name":"Someone"}],"first_publish_year":"unknown"},
				{"key":"/works/OL3W","title":"Emma","authors":[{"name":"Jane Austen"}]}
			]}`))
		}))
		defer srv.Close()

		client := openlibrary.NewClient(openlibrary.Options{BaseURL: srv.URL})
		pool := &fakePool{}
		store := new(mockStore)
		f := newTestFetcher(client, pool, store, &sleepRecorder{})

		store.On("UpsertGenre", ctx, mock.Anything, "fiction").Return(int64(3), nil)
		store.On("UpsertBook", ctx, mock.Anything, mock.Anything).Return(int64(1), nil)
		store.On("LinkBookGenre", ctx, mock.Anything, int64(1), int64(3)).Return(nil)

		out, err := f.FetchPage(ctx, "fiction", 20, 0)
		require.NoError(t, err)

		assert.Equal(t, PageOutcome{Saved: 2, Skipped: 1}, out)
		assert.True(t, pool.conn.tx.committed)
		store.AssertNotCalled(t, "UpsertBook", ctx, mock.Anything, hasKey("/works/OL2W"))
	})

	t.Run("fetch failure is a batch error", func(t *testing.T) {
		client := &fakeClient{err: errors.New("after 3 retries: dial tcp: i/o timeout")}
		pool := &fakePool{}
		store := new(mockStore)
		f := newTestFetcher(client, pool, store, &sleepRecorder{})

		_, err := f.FetchPage(ctx, "romance", 20, 0)

		var batchErr *BatchError
		require.ErrorAs(t, err, &batchErr)
		assert.Equal(t, 0, pool.conn.began)
		assert.True(t, pool.conn.released)
	})

	t.Run("genre upsert failure rolls back", func(t *testing.T) {
		client := &fakeClient{works: works(2)}
		pool := &fakePool{}
		store := new(mockStore)
		f := newTestFetcher(client, pool, store, &sleepRecorder{})

		store.On("UpsertGenre", ctx, mock.Anything, "mystery").Return(int64(0), errors.New("broken pipe"))

		_, err := f.FetchPage(ctx, "mystery", 20, 0)
		assert.Error(t, err)
		assert.True(t, pool.conn.tx.rolledBack)
		assert.True(t, pool.conn.released)
		store.AssertNotCalled(t, "UpsertBook", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("acquire failure", func(t *testing.T) {
		client := &fakeClient{works: works(1)}
		pool := &fakePool{acquireErr: errors.New("pool closed")}
		f := newTestFetcher(client, pool, new(mockStore), &sleepRecorder{})

		_, err := f.FetchPage(ctx, "adventure", 20, 0)
		assert.Error(t, err)
		assert.Equal(t, 0, client.calls)
	})
}
