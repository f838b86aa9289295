// Package web serves the static frontend: named HTML pages plus asset directories.
package web

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"openbook/internal/httpx"
)

// Pages maps clean URLs to files under views/.
var Pages = map[string]string{
	"/":                   "index.html",
	"/login":              "login.html",
	"/register":           "register.html",
	"/teacher-dashboard":  "teacher-dashboard.html",
	"/teacher-catalog":    "teacher-catalog.html",
	"/teacher-favs":       "teacher-favs.html",
	"/teacher-mystudents": "teacher-mystudents.html",
	"/student-dashboard":  "student-dashboard.html",
	"/student-catalog":    "student-catalog.html",
	"/student-favs":       "student-favs.html",
	"/students-mybooks":   "students-mybooks.html",
}

// Mount registers the pages, the asset file server and the SPA-style fallback on r.
// API paths are left to the caller's NotFound handling.
func Mount(r chi.Router, dir string) {
	for route, file := range Pages {
		r.Get(route, page(filepath.Join(dir, "views", file)))
	}

	files := http.StripPrefix("/frontend", http.FileServer(http.Dir(dir)))
	r.Handle("/frontend/*", files)
	for _, sub := range []string{"assets", "styles", "js"} {
		r.Handle("/"+sub+"/*", http.StripPrefix("/"+sub, http.FileServer(http.Dir(filepath.Join(dir, sub)))))
	}

	index := page(filepath.Join(dir, "views", "index.html"))
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		switch {
		case strings.HasPrefix(req.URL.Path, "/api/"):
			httpx.NotFound(w, req)
		case strings.Contains(filepath.Base(req.URL.Path), "."):
			httpx.JSONError(w, req, http.StatusNotFound, "NOT_FOUND", "File not found: "+req.URL.Path, nil)
		case req.Method != http.MethodGet && req.Method != http.MethodHead:
			httpx.NotFound(w, req)
		default:
			index(w, req)
		}
	})
}

func page(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, path)
	}
}
