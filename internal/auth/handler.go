package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"investment-calculator/internal/respond"
	"investment-calculator/internal/storage"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func RegisterHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := respond.Decode(r, &req); err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid request")
			return
		}
		if req.Email == "" || req.Password == "" {
			respond.Error(w, http.StatusBadRequest, "email and password required")
			return
		}

		user, err := svc.Register(r.Context(), req.Email, req.Password)
		switch {
		case err == nil:
		case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrWeakPassword), errors.Is(err, storage.ErrEmailTaken):
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		default:
			slog.ErrorContext(r.Context(), "failed to register user", "err", err)
			respond.Error(w, http.StatusInternalServerError, "internal error")
			return
		}

		slog.InfoContext(r.Context(), "user registered", "user_id", user.ID)
		respond.JSON(w, http.StatusOK, map[string]any{
			"message": "User registered successfully",
			"user":    user,
		})
	}
}

func LoginHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := respond.Decode(r, &req); err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid request")
			return
		}

		token, err := svc.Authenticate(r.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, ErrInvalidCredentials) {
				respond.Error(w, http.StatusUnauthorized, err.Error())
				return
			}
			slog.ErrorContext(r.Context(), "failed to authenticate user", "err", err)
			respond.Error(w, http.StatusInternalServerError, "internal error")
			return
		}
		respond.JSON(w, http.StatusOK, map[string]string{"token": token})
	}
}
