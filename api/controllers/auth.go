package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/prosupplyhq/prosupply-backend/api/middleware"
	"github.com/prosupplyhq/prosupply-backend/api/responses"
	"github.com/prosupplyhq/prosupply-backend/api/validators"
	"github.com/prosupplyhq/prosupply-backend/internal/accounts"
	pkgerrors "github.com/prosupplyhq/prosupply-backend/pkg/errors"
	"github.com/prosupplyhq/prosupply-backend/pkg/logger"
)

// AuthRegister onboards a new purchaser or supplier account.
func AuthRegister(svc accounts.RegisterService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "register service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body accounts.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.Register(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, user)
	}
}

// AuthLogin wires the login endpoint into the HTTP layer.
func AuthLogin(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body accounts.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// AuthRefresh rotates an access/refresh token pair.
func AuthRefresh(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body accounts.RefreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Refresh(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// AuthLogout revokes the caller's active session.
func AuthLogout(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rawUser := middleware.UserIDFromContext(r.Context())
		accessID := middleware.AccessIDFromContext(r.Context())
		if rawUser == "" || accessID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		userID, err := uuid.Parse(rawUser)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		if err := svc.Logout(r.Context(), userID, accessID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// PasswordResetRequest issues a reset token for the supplied email. The
// response is identical whether or not the account exists.
func PasswordResetRequest(svc accounts.PasswordResetService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "password reset service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body accounts.PasswordResetRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Request(r.Context(), body.Email); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// PasswordResetConfirm consumes a reset token and sets a new password.
func PasswordResetConfirm(svc accounts.PasswordResetService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "password reset service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body accounts.PasswordResetConfirm
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Confirm(r.Context(), body.Token, body.Password); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "password_updated"})
	}
}
