// Package testutil holds request builders shared by handler tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"openbook/internal/httpx"
	"openbook/internal/platform/crypto"
)

// TestTeacher is an authenticated teacher identity for handler tests.
var TestTeacher = crypto.Identity{
	UserID:        "11111111-1111-1111-1111-111111111111",
	Email:         "ana@maestro.edu.co",
	FullName:      "Ana Torres",
	Role:          "TEACHER",
	RoleID:        1,
	InstitutionID: 1,
}

// TestStudent is an authenticated student at the same institution as TestTeacher.
var TestStudent = crypto.Identity{
	UserID:        "22222222-2222-2222-2222-222222222222",
	Email:         "luis@estudiante.edu.co",
	FullName:      "Luis Gomez",
	Role:          "STUDENT",
	RoleID:        2,
	InstitutionID: 1,
}

// GenerateTestToken generates a JWT token for testing
func GenerateTestToken(secret string, id crypto.Identity) string {
	token, _, _ := crypto.GenerateToken(secret, id, time.Hour)
	return token
}

// GenerateExpiredToken generates an expired JWT token for testing
func GenerateExpiredToken(secret string, id crypto.Identity) string {
	c := crypto.Claims{
		Sub:  id.UserID,
		Role: id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    crypto.TokenIssuer,
			Audience:  jwt.ClaimStrings{crypto.TokenAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	token, _ := t.SignedString([]byte(secret))
	return token
}

// NewRequest creates a new HTTP request for testing
func NewRequest(method, path string, body any) *http.Request {
	var r *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		r = httptest.NewRequest(method, path, bytes.NewReader(b))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	return r
}

// AsUser attaches an authenticated identity, as the auth middleware would.
func AsUser(r *http.Request, id crypto.Identity) *http.Request {
	return r.WithContext(httpx.ContextWithIdentity(r.Context(), id, "test-token"))
}

// WithURLParams sets chi route parameters on r.
func WithURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// RecordResponse records the HTTP response for testing
type RecordResponse struct {
	Code   int
	Header http.Header
	Body   map[string]any
}

// RecordHTTPResponse decodes the recorded JSON envelope.
func RecordHTTPResponse(w *httptest.ResponseRecorder) RecordResponse {
	result := w.Result()
	defer result.Body.Close()

	bodyBytes, _ := io.ReadAll(result.Body)

	var bodyMap map[string]any
	if len(bodyBytes) > 0 {
		_ = json.Unmarshal(bodyBytes, &bodyMap)
	}

	return RecordResponse{
		Code:   result.StatusCode,
		Header: result.Header,
		Body:   bodyMap,
	}
}

// ErrorCode returns error.code from an error envelope.
func (r RecordResponse) ErrorCode() string {
	e, ok := r.Body["error"].(map[string]any)
	if !ok {
		return ""
	}
	code, _ := e["code"].(string)
	return code
}
