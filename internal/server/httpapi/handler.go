// Package httpapi binds the account and auth services to the HTTP surface:
// routing, request decoding, the session cookie, and error-to-status mapping.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/accountd/accountd/internal/common"
	"github.com/accountd/accountd/internal/logging"
	"github.com/accountd/accountd/internal/server/config"
	"github.com/accountd/accountd/internal/server/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// sessionCookieName is the cookie carrying the opaque session token.
const sessionCookieName = "api.session.id"

// AccountManager is the slice of AccountService the handlers use.
type AccountManager interface {
	SignUp(ctx context.Context, username, password, data string) (string, error)
	GetProfile(ctx context.Context, caller, target string) (*services.Profile, error)
	UpdateProfile(ctx context.Context, caller, target, data string) error
	DeleteAccount(ctx context.Context, caller, target string) error
}

// Authenticator is the slice of AuthService the handlers use.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
	Logout(ctx context.Context, token string) error
}

// SessionResolver maps a presented token to a caller identity.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (string, error)
	Validity() time.Duration
}

type Handler struct {
	accounts      AccountManager
	auth          Authenticator
	sessions      SessionResolver
	secureCookies bool
	logger        logging.Logger
}

type signupRequest struct {
	Username string          `json:"username"`
	Password string          `json:"password"`
	Data     json.RawMessage `json:"data"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewHandler(accounts AccountManager, auth Authenticator, sessions SessionResolver, cfg *config.Config, l logging.Logger) *Handler {
	return &Handler{
		accounts:      accounts,
		auth:          auth,
		sessions:      sessions,
		secureCookies: cfg.SecureCookies,
		logger:        l.With("module", "httpapi"),
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleRoot)
	mux.HandleFunc("POST /user", h.handleSignUp)
	mux.HandleFunc("GET /user/{username}", h.handleGetProfile)
	mux.HandleFunc("PUT /user/{username}", h.handleUpdateProfile)
	mux.HandleFunc("DELETE /user/{username}", h.handleDeleteAccount)
	mux.HandleFunc("POST /auth", h.handleLogin)
	mux.HandleFunc("DELETE /auth", h.handleLogout)
	mux.Handle("GET /metrics", promhttp.Handler())
	return withMetrics(mux)
}

// handleRoot greets anonymous callers and shows authenticated callers their
// own profile.
func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	if caller == "" {
		writeJSON(w, http.StatusOK, []string{"Hello World"})
		return
	}

	profile, err := h.accounts.GetProfile(r.Context(), caller, caller)
	if err != nil {
		// The account may be gone while the session lingers.
		if errors.Is(err, common.ErrorNotFound) {
			writeJSON(w, http.StatusOK, []string{"Hello World"})
			return
		}
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	msg, err := h.accounts.SignUp(r.Context(), strings.TrimSpace(req.Username), req.Password, string(req.Data))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	profile, err := h.accounts.GetProfile(r.Context(), caller, r.PathValue("username"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unreadable request body")
		return
	}

	if err := h.accounts.UpdateProfile(r.Context(), caller, r.PathValue("username"), string(body)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *Handler) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	if err := h.accounts.DeleteAccount(r.Context(), caller, r.PathValue("username")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, nil)
}

// handleLogin verifies credentials and sets the session cookie. Unknown
// usernames and wrong passwords are deliberately indistinguishable here so
// the endpoint cannot be used to enumerate accounts.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	token, err := h.auth.Login(r.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorMissingField):
			writeError(w, http.StatusBadRequest, "missing_field", "username and password are required")
		case errors.Is(err, common.ErrorNotFound), errors.Is(err, common.ErrorInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "login_incorrect", "Login incorrect.")
		default:
			h.logger.Error(r.Context(), "login failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		}
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessions.Validity().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, messageResponse{Message: "Login success!"})
}

// handleLogout revokes whatever token the request presents. A request with
// no cookie still succeeds.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), sessionToken(r)); err != nil {
		h.logger.Error(r.Context(), "logout failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logout success!"})
}

// caller resolves the request's session cookie to an identity. The empty
// string means anonymous. On a store failure it writes a 500 and reports
// false; handlers must return immediately in that case.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	username, err := h.sessions.Resolve(r.Context(), sessionToken(r))
	if err != nil {
		h.logger.Error(r.Context(), "session lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return "", false
	}
	return username, true
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrorMissingField):
		writeError(w, http.StatusBadRequest, "missing_field", "username and password are required")
	case errors.Is(err, common.ErrorAlreadyExists):
		writeError(w, http.StatusConflict, "duplicate_account", "username is already taken")
	case errors.Is(err, common.ErrorUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
	case errors.Is(err, common.ErrorForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "you may only access your own account")
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "not_found", "no such account")
	default:
		h.logger.Error(r.Context(), "request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: responseError{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
