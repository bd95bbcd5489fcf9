package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/target/mmk-admin-console/internal/domain/auth"
	apperrors "github.com/target/mmk-admin-console/internal/errors"
	"github.com/target/mmk-admin-console/internal/service"
)

// AuthHandlers drives the console session over HTTP.
type AuthHandlers struct {
	Session *service.SessionStore
	Catalog *service.Catalog
	Logger  *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// resetCatalog drops cached module data so it never outlives the user who loaded it.
func (h *AuthHandlers) resetCatalog() {
	if h.Catalog != nil {
		h.Catalog.Reset()
	}
}

// Login signs in with email and password.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domainauth.LoginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	h.resetCatalog()
	res := h.Session.Login(r.Context(), req)
	if !res.Success {
		h.logger().InfoContext(r.Context(), "login rejected", "code", res.Code)
	}
	writeResult(w, res)
}

// Register creates an account and signs into it.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req domainauth.RegisterRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	h.resetCatalog()
	writeResult(w, h.Session.Register(r.Context(), req))
}

// Logout ends the session. It always succeeds locally.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.Session.Logout(r.Context())
	h.resetCatalog()
	WriteJSON(w, http.StatusOK, service.Result{Success: true})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword requests a reset email.
func (h *AuthHandlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	writeResult(w, h.Session.ForgotPassword(r.Context(), req.Email))
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ResetPassword completes a password reset.
func (h *AuthHandlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	writeResult(w, h.Session.ResetPassword(r.Context(), req.Token, req.Password))
}

// Check reports whether the session is still usable, restoring it from
// persisted state when needed.
func (h *AuthHandlers) Check(w http.ResponseWriter, r *http.Request) {
	ok := h.Session.CheckAuth(r.Context())
	body := map[string]any{"authenticated": ok}
	if u, found := h.Session.User(); ok && found {
		body["user"] = u
	}
	WriteJSON(w, http.StatusOK, body)
}

// writeResult answers a session operation. Failures keep the Result body
// and pick a status from the error kind.
func writeResult(w http.ResponseWriter, res service.Result) {
	if res.Success {
		WriteJSON(w, http.StatusOK, res)
		return
	}
	WriteJSON(w, resultStatus(res.Code), res)
}

func resultStatus(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrCodeAuthExpired, apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeConnectivity:
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}
