package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(ContextWithRequestID(r.Context(), "req-1"))

	JSONSuccess(w, r, map[string]string{"key": "value"}, map[string]any{"total": 10})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, true, body["success"])
	meta := body["meta"].(map[string]any)
	assert.Equal(t, "req-1", meta["request_id"])
	assert.Equal(t, float64(10), meta["total"])
}

func TestJSONSuccess_NoMeta(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	JSONSuccess(w, r, []int{1}, nil)

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	_, hasMeta := body["meta"]
	assert.False(t, hasMeta)
}

func TestJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	details := []ErrorDetail{{Field: "email", Message: "email is required"}}

	JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.False(t, response.Success)
	assert.Equal(t, "VALIDATION_ERROR", response.Error.Code)
	assert.Equal(t, "Invalid input", response.Error.Message)
	assert.Equal(t, details, response.Error.Details)
}

func TestStatusHelpers(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	w := httptest.NewRecorder()
	JSONCreated(w, r, map[string]int{"id": 1})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	JSONAccepted(w, r, nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = httptest.NewRecorder()
	JSONNoContent(w)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())

	w = httptest.NewRecorder()
	NotFound(w, r)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}
