package controllers

import (
	"net/http"

	"github.com/ecomhq/storefront-backend/api/responses"
	"github.com/ecomhq/storefront-backend/api/validators"
	"github.com/ecomhq/storefront-backend/internal/accounts"
	pkgerrors "github.com/ecomhq/storefront-backend/pkg/errors"
	"github.com/ecomhq/storefront-backend/pkg/logger"
)

type signupRequest struct {
	Username      string `json:"username" validate:"required,min=3,max=64"`
	Password      string `json:"password" validate:"required,min=8,max=128"`
	Email         string `json:"email" validate:"required,email"`
	RestorePhrase string `json:"restore_phrase" validate:"required,min=8,max=256"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type resetPasswordRequest struct {
	Username      string `json:"username" validate:"required"`
	RestorePhrase string `json:"restore_phrase" validate:"required"`
	NewPassword   string `json:"new_password" validate:"required,min=8,max=128"`
}

// AuthSignup registers a shopper account.
func AuthSignup(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body signupRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Signup(r.Context(), accounts.SignupInput{
			Username:      body.Username,
			Password:      body.Password,
			Email:         body.Email,
			RestorePhrase: body.RestorePhrase,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// AuthLogin authenticates a shopper and mints a session.
func AuthLogin(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body loginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), accounts.LoginInput{
			Username: body.Username,
			Password: body.Password,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// HostAuthLogin authenticates a host against the hosts table.
func HostAuthLogin(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body loginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.HostLogin(r.Context(), accounts.LoginInput{
			Username: body.Username,
			Password: body.Password,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// AuthResetPassword resets a forgotten password using the restore phrase.
func AuthResetPassword(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "accounts service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body resetPasswordRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ResetPassword(r.Context(), accounts.ResetPasswordInput{
			Username:      body.Username,
			RestorePhrase: body.RestorePhrase,
			NewPassword:   body.NewPassword,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "password_reset"})
	}
}
