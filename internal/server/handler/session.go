package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/flowponder/ponderd/internal/domain"
)

// SessionService defines what the session handler needs from the auth layer.
type SessionService interface {
	SignIn(ctx context.Context) (domain.Session, error)
	SignOut(ctx context.Context)
	RefreshBalance(ctx context.Context) (domain.Amount, error)
	Session() domain.Session
}

// SessionHandler serves authentication endpoints.
type SessionHandler struct {
	auth   SessionService
	logger *slog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(auth SessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{auth: auth, logger: logger}
}

// GetSession returns the current session snapshot. An unauthenticated
// session is a normal 200, not an error.
// GET /api/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.auth.Session())
}

// SignIn runs the wallet approval flow and returns the resulting session.
// POST /api/session/signin
func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	session, err := h.auth.SignIn(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "sign-in failed",
			slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// SignOut clears the session. It always succeeds.
// POST /api/session/signout
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.auth.SignOut(r.Context())
	writeJSON(w, http.StatusOK, h.auth.Session())
}

// RefreshBalance re-queries the signed-in account's balance.
// POST /api/session/refresh
func (h *SessionHandler) RefreshBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.auth.RefreshBalance(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}
