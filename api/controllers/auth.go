package controllers

import (
	"net/http"

	"github.com/commercezen/engine/api/responses"
	"github.com/commercezen/engine/api/validators"
	"github.com/commercezen/engine/internal/identity"
	"github.com/commercezen/engine/pkg/logger"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string            `json:"token"`
	User  identity.Identity `json:"user"`
}

// Signup creates an account and logs it in.
func Signup(svc *identity.Service, provider *identity.Provider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload signupRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		name := validators.SanitizeString(payload.Name, 120)
		token, err := svc.Signup(r.Context(), name, payload.Email, payload.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		current, _ := provider.Current()
		responses.WriteSuccessStatus(w, http.StatusCreated, authResponse{Token: token, User: current})
	}
}

// Login verifies credentials and installs the identity.
func Login(svc *identity.Service, provider *identity.Provider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload loginRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token, err := svc.Login(r.Context(), payload.Email, payload.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		current, _ := provider.Current()
		responses.WriteSuccess(w, authResponse{Token: token, User: current})
	}
}

// Logout clears the active identity.
func Logout(svc *identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		svc.Logout()
		responses.WriteSuccess(w, map[string]string{"status": "logged out"})
	}
}
