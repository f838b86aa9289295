package favorite

import (
	"errors"
	"net/http"
	"strconv"

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

type addReq struct {
	BookID int64 `json:"book_id" validate:"required,gt=0"`
}

// Add handles POST /api/users/favorites
// @Summary Add a favourite
// @Tags favorites
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body addReq true "Book to add"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /users/favorites [post]
func (h *HTTPHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return
	}

	var req addReq
	if !httpx.DecodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.Add(r.Context(), userID, req.BookID); err != nil {
		switch {
		case errors.Is(err, ErrBookNotFound):
			httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
		case errors.Is(err, ErrAlreadyFavorite):
			httpx.JSONError(w, r, http.StatusConflict, "ALREADY_EXISTS", "Book already in favorites", nil)
		default:
			h.log.Error("add favorite", zap.String("user_id", userID), zap.Error(err))
			httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		}
		return
	}

	httpx.JSONCreated(w, r, map[string]any{"book_id": req.BookID})
}

// Remove handles DELETE /api/users/favorites/{bookID}
// @Summary Remove a favourite
// @Tags favorites
// @Security Bearer
// @Param bookID path int true "Book id"
// @Success 204 "No Content"
// @Failure 404 {object} httpx.ErrorResponse
// @Router /users/favorites/{bookID} [delete]
func (h *HTTPHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return
	}
	bookID, ok := httpx.URLParamInt64(r, "bookID")
	if !ok {
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Favorite not found", nil)
		return
	}

	if err := h.service.Remove(r.Context(), userID, bookID); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Favorite not found", nil)
			return
		}
		h.log.Error("remove favorite", zap.String("user_id", userID), zap.Error(err))
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	httpx.JSONNoContent(w)
}

// List handles GET /api/users/favorites
// @Summary List favourites
// @Tags favorites
// @Produce json
// @Security Bearer
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset"
// @Success 200 {object} httpx.SuccessResponse
// @Router /users/favorites [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	items, total, err := h.service.List(r.Context(), userID, limit, offset)
	if err != nil {
		h.log.Error("list favorites", zap.String("user_id", userID), zap.Error(err))
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	httpx.JSONSuccess(w, r, items, map[string]any{"total": total})
}
