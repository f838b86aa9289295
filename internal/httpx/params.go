package httpx

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// URLParamInt64 parses a positive numeric route parameter.
func URLParamInt64(r *http.Request, key string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, key)), 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// QueryInt parses an optional integer query parameter.
func QueryInt(r *http.Request, key string) (*int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, false
	}
	return &v, true
}
