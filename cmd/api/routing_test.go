package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"openbook/internal/assignment"
	"openbook/internal/auth"
	"openbook/internal/book"
	"openbook/internal/favorite"
	"openbook/internal/httpx"
	"openbook/internal/ingest"
	"openbook/internal/testutil"
	"openbook/internal/user"
)

const testSecret = "routing-test-secret"

// testRouter wires handlers without services; every request below is
// answered by middleware or request validation before a service is reached.
func testRouter(ready func(context.Context) error) http.Handler {
	return newRouter(handlers{
		auth:        auth.NewHTTPHandler(nil, nil),
		users:       user.NewHTTPHandler(nil, nil),
		books:       book.NewHTTPHandler(nil, nil),
		favorites:   favorite.NewHTTPHandler(nil, nil),
		assignments: assignment.NewHTTPHandler(nil, nil),
		sync:        ingest.NewHTTPHandler(nil, ""),
	}, routerConfig{
		JWTSecret:    testSecret,
		MaxBodyBytes: 1 << 20,
		Ready:        ready,
	}, zap.NewNop())
}

func TestRouter(t *testing.T) {
	teacher := testutil.GenerateTestToken(testSecret, testutil.TestTeacher)
	student := testutil.GenerateTestToken(testSecret, testutil.TestStudent)

	tests := []struct {
		name     string
		method   string
		path     string
		token    string
		body     any
		wantCode int
		wantErr  string
	}{
		{"health", http.MethodGet, "/healthz", "", nil, http.StatusOK, ""},
		{"ready", http.MethodGet, "/readyz", "", nil, http.StatusOK, ""},
		{"login validates body", http.MethodPost, "/api/auth/login", "", map[string]any{}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"profile needs a token", http.MethodGet, "/api/auth/profile", "", nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"garbage token", http.MethodGet, "/api/auth/profile", "not-a-jwt", nil, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"book id must be numeric", http.MethodGet, "/api/books/abc", "", nil, http.StatusNotFound, "NOT_FOUND"},
		{"favorites need a token", http.MethodGet, "/api/users/favorites", "", nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"teacher cannot open student dashboard", http.MethodGet, "/api/users/dashboard", teacher, nil, http.StatusForbidden, "FORBIDDEN"},
		{"student cannot list students", http.MethodGet, "/api/teacher/students", student, nil, http.StatusForbidden, "FORBIDDEN"},
		{"student cannot assign", http.MethodPost, "/api/teacher/assignments", student, map[string]any{}, http.StatusForbidden, "FORBIDDEN"},
		{"teacher assignment body is validated", http.MethodPost, "/api/teacher/assignments", teacher, map[string]any{}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"sync trigger needs the internal secret", http.MethodPost, "/api/internal/jobs/sync", "", nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"unknown api route", http.MethodGet, "/api/nope", "", nil, http.StatusNotFound, "NOT_FOUND"},
		{"wrong method", http.MethodDelete, "/api/auth/login", "", nil, http.StatusMethodNotAllowed, ""},
	}

	router := testRouter(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testutil.NewRequest(tt.method, tt.path, tt.body)
			if tt.token != "" {
				r.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, r)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, testutil.RecordHTTPResponse(w).ErrorCode())
			}
		})
	}
}

func TestRouter_CommonHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter(nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.NotEmpty(t, w.Header().Get(httpx.RequestIDHeader))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, httpx.ContentSecurityPolicy, w.Header().Get("Content-Security-Policy"))
}

func TestRouter_ReadyzReportsDatabaseFailure(t *testing.T) {
	router := testRouter(func(context.Context) error { return errors.New("connection refused") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "NOT_READY", testutil.RecordHTTPResponse(w).ErrorCode())
}
