package assignment

import (
	"errors"
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

func (h *HTTPHandler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.log.Error(msg, zap.String("user_id", httpx.UserIDFrom(r)), zap.Error(err))
	httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
}

// Create handles POST /api/teacher/assignments
// @Summary Assign a book to a student
// @Tags assignments
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body CreateInput true "Assignment"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /teacher/assignments [post]
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFrom(r)
	if !ok {
		httpx.JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return
	}

	var in CreateInput
	if !httpx.DecodeAndValidate(w, r, &in) {
		return
	}

	a, err := h.service.Assign(r.Context(), id.UserID, id.InstitutionID, in)
	if err != nil {
		switch {
		case errors.Is(err, ErrStudentNotAllowed):
			httpx.JSONError(w, r, http.StatusForbidden, "STUDENT_NOT_ALLOWED", err.Error(), nil)
		case errors.Is(err, ErrBookNotFound):
			httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
		case errors.Is(err, ErrAlreadyAssigned):
			httpx.JSONError(w, r, http.StatusConflict, "ALREADY_ASSIGNED", err.Error(), nil)
		default:
			h.internalError(w, r, "create assignment", err)
		}
		return
	}

	httpx.JSONCreated(w, r, a)
}

// ListForTeacher handles GET /api/teacher/assignments
// @Summary Assignments created by the teacher
// @Tags assignments
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Router /teacher/assignments [get]
func (h *HTTPHandler) ListForTeacher(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListForTeacher(r.Context(), httpx.UserIDFrom(r))
	if err != nil {
		h.internalError(w, r, "list teacher assignments", err)
		return
	}
	httpx.JSONSuccess(w, r, items, map[string]any{"total": len(items)})
}

// Delete handles DELETE /api/teacher/assignments/{id}
// @Summary Remove an assignment
// @Tags assignments
// @Security Bearer
// @Param id path int true "Assignment id"
// @Success 204 "No Content"
// @Failure 404 {object} httpx.ErrorResponse
// @Router /teacher/assignments/{id} [delete]
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.URLParamInt64(r, "id")
	if !ok {
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Assignment not found", nil)
		return
	}

	if err := h.service.Delete(r.Context(), id, httpx.UserIDFrom(r)); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Assignment not found", nil)
			return
		}
		h.internalError(w, r, "delete assignment", err)
		return
	}
	httpx.JSONNoContent(w)
}

// ListForStudent handles GET /api/users/assignments
// @Summary The student's assignments
// @Tags assignments
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Router /users/assignments [get]
func (h *HTTPHandler) ListForStudent(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListForStudent(r.Context(), httpx.UserIDFrom(r))
	if err != nil {
		h.internalError(w, r, "list student assignments", err)
		return
	}
	httpx.JSONSuccess(w, r, items, map[string]any{"total": len(items)})
}

// UpdateProgress handles PUT /api/users/assignments/{id}
// @Summary Report reading progress
// @Tags assignments
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "Assignment id"
// @Param request body ProgressInput true "Progress"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /users/assignments/{id} [put]
func (h *HTTPHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.URLParamInt64(r, "id")
	if !ok {
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Assignment not found", nil)
		return
	}

	var in ProgressInput
	if !httpx.DecodeAndValidate(w, r, &in) {
		return
	}
	if in.Progress == nil && in.Status == "" {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "progress or status is required", nil)
		return
	}

	a, err := h.service.UpdateProgress(r.Context(), id, httpx.UserIDFrom(r), in)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Assignment not found", nil)
		case errors.Is(err, ErrInvalidProgress), errors.Is(err, ErrInvalidStatus):
			httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		default:
			h.internalError(w, r, "update assignment progress", err)
		}
		return
	}
	httpx.JSONSuccess(w, r, a, nil)
}

// Dashboard handles GET /api/users/dashboard
// @Summary Student dashboard summary
// @Tags assignments
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Router /users/dashboard [get]
func (h *HTTPHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Dashboard(r.Context(), httpx.UserIDFrom(r))
	if err != nil {
		h.internalError(w, r, "student dashboard", err)
		return
	}
	httpx.JSONSuccess(w, r, d, nil)
}
