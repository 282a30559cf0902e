package auth

import (
	"encoding/json"
	"net/http"
	"time"

	appErrors "github.com/sebuszqo/ExpenseTracker/internal/errors"
	"github.com/sebuszqo/ExpenseTracker/internal/user"
)

const refreshCookiePath = "/api/refresh"

type Handler struct {
	authService  Service
	secureCookie bool
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string)
}

func NewHandler(
	authService Service,
	secureCookie bool,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string),
) *Handler {
	if authService == nil || respondJSON == nil || respondError == nil {
		panic("Service and response functions must not be nil")
	}
	return &Handler{
		authService:  authService,
		secureCookie: secureCookie,
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error, fallback string) {
	status := appErrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.respondError(w, status, fallback)
		return
	}
	h.respondError(w, status, err.Error())
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    token,
		Path:     refreshCookiePath,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    "",
		Path:     refreshCookiePath,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) respondSession(w http.ResponseWriter, status int, session *Session) {
	h.setRefreshCookie(w, session.RefreshToken, session.RefreshExpiresAt)
	h.respondJSON(w, status, map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"access_token":  session.AccessToken,
			"refresh_token": session.RefreshToken,
			"user":          session.User,
		},
	})
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req user.CreateUserInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.authService.Register(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err, "Failed to register user")
		return
	}
	h.respondSession(w, http.StatusCreated, session)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Password == "" || req.Username == "" {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.respondServiceError(w, err, "Internal server error")
		return
	}
	h.respondSession(w, http.StatusOK, session)
}

// RefreshAccessToken requests are already checked in refresh token middleware
func (h *Handler) RefreshAccessToken(w http.ResponseWriter, r *http.Request) {
	refreshToken, ok := refreshTokenFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, ErrInvalidToken.Error())
		return
	}

	accessToken, err := h.authService.Refresh(r.Context(), refreshToken)
	if err != nil {
		if appErrors.IsUnauthorizedError(err) {
			h.clearRefreshCookie(w)
		}
		h.respondServiceError(w, err, ErrInternalError.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data": map[string]string{
			"access_token": accessToken,
		},
	})
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	refreshToken, ok := refreshTokenFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, ErrInvalidToken.Error())
		return
	}

	err := h.authService.Logout(r.Context(), refreshToken)
	if err != nil && !appErrors.IsUnauthorizedError(err) {
		h.respondServiceError(w, err, "Error during logout request.")
		return
	}
	h.clearRefreshCookie(w)
	if err != nil {
		h.respondServiceError(w, err, "Error during logout request.")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Logout successful",
	})
}
