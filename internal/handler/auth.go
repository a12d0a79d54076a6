package handler

import (
	"errors"
	"net/http"

	"giaoan/internal/auth"
	"giaoan/internal/errlog"
	"giaoan/internal/middleware"
)

// HandleRegister creates an account: POST {email, name, password}.
func HandleRegister(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req struct {
			Email    string `json:"email"`
			Name     string `json:"name"`
			Password string `json:"password"`
		}
		if err := ReadJSONBody(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		resp, err := app.Register(req.Email, req.Name, req.Password)
		switch {
		case err == nil:
			WriteJSON(w, http.StatusCreated, resp)
		case errors.Is(err, auth.ErrEmailTaken):
			WriteError(w, http.StatusConflict, err.Error())
		default:
			WriteError(w, http.StatusBadRequest, err.Error())
		}
	}
}

// HandleLogin authenticates a teacher: POST {email, password}.
func HandleLogin(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := ReadJSONBody(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		resp, err := app.Login(req.Email, req.Password, middleware.GetClientIP(r))
		switch {
		case err == nil:
			WriteJSON(w, http.StatusOK, resp)
		case errors.Is(err, ErrLoginLocked):
			WriteError(w, http.StatusTooManyRequests, err.Error())
		case errors.Is(err, auth.ErrInvalidCredentials):
			WriteError(w, http.StatusUnauthorized, err.Error())
		default:
			errlog.Logf("[Auth] login failed: %v", err)
			WriteError(w, http.StatusInternalServerError, "login failed")
		}
	}
}

// HandleLogout ends the session named by the bearer token.
func HandleLogout(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		token := bearerToken(r)
		if token == "" {
			WriteError(w, http.StatusUnauthorized, "not logged in")
			return
		}
		if err := app.Logout(token); err != nil {
			errlog.Logf("[Auth] logout: %v", err)
			WriteError(w, http.StatusInternalServerError, "logout failed")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
