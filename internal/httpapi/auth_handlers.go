package httpapi

import (
	"errors"
	"net/http"
	"time"

	"papertrade.org/internal/audit"
	"papertrade.org/internal/auth"
)

const tokenTTL = 15 * time.Minute

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	AccountID string    `json:"account_id"`
}

// handleRegister creates a user and returns a ready-to-use session token.
// The ledger account is provisioned lazily on the first trade.
func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	u, err := a.users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			writeError(w, r, http.StatusConflict, "email already registered")
			return
		}
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	token, err := auth.GenerateToken(u.ID, u.AccountID, tokenTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "could not issue token")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"user_id": u.ID,
		"email":   u.Email,
	})
	writeJSON(w, http.StatusCreated, sessionResponse{
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(tokenTTL),
		AccountID: u.AccountID,
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	u, err := a.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateToken(u.ID, u.AccountID, tokenTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "could not issue token")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id": u.ID,
	})
	writeJSON(w, http.StatusOK, sessionResponse{
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(tokenTTL),
		AccountID: u.AccountID,
	})
}
