package api

import (
	"net/http"

	"github.com/hackgods/vetclinic-scheduling/internal/auth"
)

func registerHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := decodeJSON(r, &req); err != nil {
			writeAppError(w, r, err)
			return
		}

		u, err := svc.Register(r.Context(), auth.RegisterInput{
			Email:    req.Email,
			Password: req.Password,
			Name:     req.Name,
			Role:     req.Role,
		})
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, RegisterResponse{
			Message: "User registered successfully",
			User:    newUserResponse(u),
		})
	}
}

func loginHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := decodeJSON(r, &req); err != nil {
			writeAppError(w, r, err)
			return
		}

		token, u, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, LoginResponse{
			Message: "Login successful",
			Token:   token,
			User:    newUserResponse(u),
		})
	}
}
