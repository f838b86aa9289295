package auth

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"openbook/internal/httpx"
	"openbook/internal/platform/crypto"
	"openbook/internal/user"
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
	httpx.LoggerFrom(r, h.log).Error(msg, zap.Error(err))
	httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
}

// Register handles POST /api/auth/register
// @Summary Register an account
// @Description Create a teacher or student account; the email domain must match the role
// @Tags auth
// @Accept json
// @Produce json
// @Param request body user.RegisterInput true "Registration request"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /auth/register [post]
func (h *HTTPHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req user.RegisterInput
	if !httpx.DecodeAndValidate(w, r, &req) {
		return
	}

	sess, err := h.service.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrRoleEmailMismatch), errors.Is(err, user.ErrInvalidRole):
			httpx.JSONError(w, r, http.StatusBadRequest, "ROLE_EMAIL_MISMATCH", err.Error(), nil)
		case errors.Is(err, user.ErrInvalidInstitution):
			httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_INSTITUTION", "Institution does not exist", nil)
		case errors.Is(err, user.ErrEmailTaken):
			httpx.JSONError(w, r, http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil)
		case errors.Is(err, user.ErrNationalIDTaken):
			httpx.JSONError(w, r, http.StatusConflict, "NATIONAL_ID_EXISTS", "National id already registered", nil)
		case isPasswordError(err):
			httpx.JSONError(w, r, http.StatusBadRequest, "WEAK_PASSWORD", err.Error(), nil)
		default:
			h.internalError(w, r, "register failed", err)
		}
		return
	}

	httpx.JSONCreated(w, r, sess)
}

func isPasswordError(err error) bool {
	return errors.Is(err, crypto.ErrPasswordTooShort) ||
		errors.Is(err, crypto.ErrPasswordNoUpper) ||
		errors.Is(err, crypto.ErrPasswordNoLower) ||
		errors.Is(err, crypto.ErrPasswordNoNumber)
}

type LoginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /api/auth/login
// @Summary Log in
// @Description Authenticate and receive an access token plus the dashboard to open
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginReq true "Login request"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Router /auth/login [post]
func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginReq
	if !httpx.DecodeAndValidate(w, r, &req) {
		return
	}

	sess, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httpx.JSONError(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
			return
		}
		h.internalError(w, r, "login failed", err)
		return
	}

	httpx.JSONSuccess(w, r, sess, nil)
}

// Logout handles POST /api/auth/logout
// @Summary Log out
// @Description Revoke the current access token
// @Tags auth
// @Produce json
// @Security Bearer
// @Success 204 "No Content"
// @Failure 401 {object} httpx.ErrorResponse
// @Router /auth/logout [post]
func (h *HTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := httpx.TokenFrom(r)
	if token == "" {
		httpx.JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			httpx.JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return
		}
		h.internalError(w, r, "logout failed", err)
		return
	}

	httpx.JSONNoContent(w)
}

// VerifyToken handles GET /api/auth/verify-token
// @Summary Verify token
// @Description Return the identity carried by a valid, unrevoked token
// @Tags auth
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Router /auth/verify-token [get]
func (h *HTTPHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	claims, err := h.service.Verify(r.Context(), httpx.TokenFrom(r))
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			httpx.JSONError(w, r, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token", nil)
			return
		}
		h.internalError(w, r, "verify token failed", err)
		return
	}

	id := claims.Identity()
	data := map[string]any{
		"user": SessionUser{
			ID:            id.UserID,
			Email:         id.Email,
			FullName:      id.FullName,
			Role:          id.Role,
			RoleID:        id.RoleID,
			InstitutionID: id.InstitutionID,
		},
	}
	if claims.ExpiresAt != nil {
		data["expires_at"] = claims.ExpiresAt.Time
	}
	httpx.JSONSuccess(w, r, data, nil)
}

// Profile handles GET /api/auth/profile
// @Summary Current profile
// @Description Account details with institution and role
// @Tags auth
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /auth/profile [get]
func (h *HTTPHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return
	}

	p, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			httpx.JSONError(w, r, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
			return
		}
		h.internalError(w, r, "profile failed", err)
		return
	}

	httpx.JSONSuccess(w, r, p, nil)
}

type CheckEmailReq struct {
	Email  string `json:"email" validate:"required,email"`
	RoleID int    `json:"role_id" validate:"omitempty,oneof=1 2"`
}

// CheckEmail handles POST /api/auth/check-email
// @Summary Check email availability
// @Description Report whether an email can be registered, optionally for a role
// @Tags auth
// @Accept json
// @Produce json
// @Param request body CheckEmailReq true "Email to check"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Router /auth/check-email [post]
func (h *HTTPHandler) CheckEmail(w http.ResponseWriter, r *http.Request) {
	var req CheckEmailReq
	if !httpx.DecodeAndValidate(w, r, &req) {
		return
	}

	available, err := h.service.EmailAvailable(r.Context(), req.Email, req.RoleID)
	if err != nil {
		if errors.Is(err, user.ErrRoleEmailMismatch) {
			httpx.JSONError(w, r, http.StatusBadRequest, "ROLE_EMAIL_MISMATCH", err.Error(), nil)
			return
		}
		h.internalError(w, r, "check email failed", err)
		return
	}

	httpx.JSONSuccess(w, r, map[string]any{
		"email":     user.NormalizeEmail(req.Email),
		"available": available,
	}, nil)
}
