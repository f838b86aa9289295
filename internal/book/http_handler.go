package book

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"openbook/internal/httpx"
)

type HTTPHandler struct {
	service *Service
	log     *zap.Logger
}

func NewHTTPHandler(service *Service, log *zap.Logger) *HTTPHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPHandler{service: service, log: log}
}

// List handles GET /api/books
// @Summary List books
// @Description Search and filter the catalog
// @Tags books
// @Produce json
// @Param q query string false "Text search over title, author and description"
// @Param genre query string false "Genre name"
// @Param author query string false "Author substring"
// @Param year_from query int false "Earliest publication year"
// @Param year_to query int false "Latest publication year"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Router /books [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	params := Query{
		Q:      strings.TrimSpace(query.Get("q")),
		Genre:  strings.TrimSpace(query.Get("genre")),
		Author: strings.TrimSpace(query.Get("author")),
	}

	var ok bool
	if params.YearFrom, ok = httpx.QueryInt(r, "year_from"); !ok {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "year_from must be a number", nil)
		return
	}
	if params.YearTo, ok = httpx.QueryInt(r, "year_to"); !ok {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "year_to must be a number", nil)
		return
	}

	page, _ := strconv.Atoi(query.Get("page"))
	pageSize, _ := strconv.Atoi(query.Get("page_size"))

	result, err := h.service.List(r.Context(), params, page, pageSize)
	if err != nil {
		h.log.Error("list books", zap.Error(err))
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	httpx.JSONSuccess(w, r, result.Books, map[string]any{
		"page":        result.Page,
		"page_size":   result.PageSize,
		"total":       result.Total,
		"total_pages": result.TotalPages,
	})
}

// GetByID handles GET /api/books/{id}
// @Summary Get a book
// @Tags books
// @Produce json
// @Param id path int true "Book id"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /books/{id} [get]
func (h *HTTPHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.URLParamInt64(r, "id")
	if !ok {
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
		return
	}

	b, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
			return
		}
		h.log.Error("get book", zap.Int64("book_id", id), zap.Error(err))
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// ListGenres handles GET /api/books/genres
// @Summary List genres
// @Tags books
// @Produce json
// @Success 200 {object} httpx.SuccessResponse
// @Router /books/genres [get]
func (h *HTTPHandler) ListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.service.ListGenres(r.Context())
	if err != nil {
		h.log.Error("list genres", zap.Error(err))
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	httpx.JSONSuccess(w, r, genres, nil)
}
