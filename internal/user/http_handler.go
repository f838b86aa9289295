package user

import (
	"net/http"

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

// ListInstitutions handles GET /api/institutions
// @Summary List institutions
// @Description Institutions a new account can be registered under
// @Tags users
// @Produce json
// @Success 200 {object} httpx.SuccessResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /institutions [get]
func (h *HTTPHandler) ListInstitutions(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListInstitutions(r.Context())
	if err != nil {
		h.log.Error("list institutions", zap.Error(err))
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	httpx.JSONSuccess(w, r, items, nil)
}

// ListStudents handles GET /api/teacher/students
// @Summary List students
// @Description Students enrolled at the teacher's institution
// @Tags teacher
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Router /teacher/students [get]
func (h *HTTPHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFrom(r)
	if !ok {
		httpx.JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return
	}

	students, err := h.service.ListStudents(r.Context(), id.InstitutionID)
	if err != nil {
		h.log.Error("list students", zap.Error(err))
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	httpx.JSONSuccess(w, r, students, map[string]any{"total": len(students)})
}
