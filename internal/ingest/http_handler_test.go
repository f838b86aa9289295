package ingest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "s3cret"

func TestHTTPHandler_Trigger(t *testing.T) {
	t.Run("rejects a missing secret", func(t *testing.T) {
		h := NewHTTPHandler(NewService(new(mockSyncer), new(mockRunRepo), nil, testCfg, nil), testSecret)

		w := httptest.NewRecorder()
		h.Trigger(w, httptest.NewRequest(http.MethodPost, "/api/internal/jobs/sync", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("an unset secret disables the endpoint", func(t *testing.T) {
		h := NewHTTPHandler(NewService(new(mockSyncer), new(mockRunRepo), nil, testCfg, nil), "")

		req := httptest.NewRequest(http.MethodPost, "/api/internal/jobs/sync", nil)
		req.Header.Set("X-Internal-Secret", "")
		w := httptest.NewRecorder()
		h.Trigger(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("starts a background run", func(t *testing.T) {
		syncer := new(mockSyncer)
		repo := new(mockRunRepo)
		svc := NewService(syncer, repo, nil, testCfg, nil)
		h := NewHTTPHandler(svc, testSecret)

		done := make(chan struct{})
		repo.On("CreateRun", mock.Anything, mock.Anything).Return(int64(1), nil)
		syncer.On("SyncAll", mock.Anything, mock.Anything, mock.Anything).Return(Report{})
		repo.On("UpdateRun", mock.Anything, mock.Anything).Return(nil).Run(func(mock.Arguments) { close(done) })

		req := httptest.NewRequest(http.MethodPost, "/api/internal/jobs/sync", nil)
		req.Header.Set("X-Internal-Secret", testSecret)
		w := httptest.NewRecorder()
		h.Trigger(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("background sync did not finish")
		}
	})

	t.Run("conflict while running", func(t *testing.T) {
		svc := NewService(new(mockSyncer), new(mockRunRepo), nil, testCfg, nil)
		svc.running.Store(true)
		h := NewHTTPHandler(svc, testSecret)

		req := httptest.NewRequest(http.MethodPost, "/api/internal/jobs/sync", nil)
		req.Header.Set("X-Internal-Secret", testSecret)
		w := httptest.NewRecorder()
		h.Trigger(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "SYNC_RUNNING")
	})
}

func TestHTTPHandler_Status(t *testing.T) {
	t.Run("returns the latest run", func(t *testing.T) {
		repo := new(mockRunRepo)
		h := NewHTTPHandler(NewService(new(mockSyncer), repo, nil, testCfg, nil), testSecret)
		repo.On("LatestRun", mock.Anything).Return(Run{ID: 4, Status: RunStatusCompleted, BooksSaved: 12}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/internal/jobs/sync", nil)
		req.Header.Set("X-Internal-Secret", testSecret)
		w := httptest.NewRecorder()
		h.Status(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Data Run            `json:"data"`
			Meta map[string]any `json:"meta"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, int64(4), body.Data.ID)
		assert.Equal(t, false, body.Meta["running"])
	})

	t.Run("no runs yet", func(t *testing.T) {
		repo := new(mockRunRepo)
		h := NewHTTPHandler(NewService(new(mockSyncer), repo, nil, testCfg, nil), testSecret)
		repo.On("LatestRun", mock.Anything).Return(Run{}, ErrNotFound)

		req := httptest.NewRequest(http.MethodGet, "/api/internal/jobs/sync", nil)
		req.Header.Set("X-Internal-Secret", testSecret)
		w := httptest.NewRecorder()
		h.Status(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
