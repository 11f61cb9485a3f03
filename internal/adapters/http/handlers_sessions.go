package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sweetcrumb/backoffice-auth/internal/domain"
)

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeUnauthenticated(r.Context(), w, "list_sessions")
		return
	}

	limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
	offset := parseIntDefault(r.URL.Query().Get("offset"), 0)

	sessions, err := h.service.ListSessions(r.Context(), claims.AccountID, limit, offset)
	if err != nil {
		writeMappedError(r.Context(), w, "list_sessions", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (h *Handler) revokeSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeUnauthenticated(r.Context(), w, "revoke_session")
		return
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "session_id"))
	if err != nil {
		writeValidationError(r.Context(), w, "revoke_session",
			fmt.Errorf("%w: session_id must be a UUID", domain.ErrInvalidInput))
		return
	}

	if err := h.service.RevokeSession(r.Context(), claims.AccountID, sessionID); err != nil {
		writeMappedError(r.Context(), w, "revoke_session", err)
		return
	}
	writeMessage(w, http.StatusOK, "Session revoked")
}

func (h *Handler) deactivateAccount(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeUnauthenticated(r.Context(), w, "deactivate_account")
		return
	}

	if err := h.service.DeactivateAccount(r.Context(), claims.AccountID); err != nil {
		writeMappedError(r.Context(), w, "deactivate_account", err)
		return
	}
	writeMessage(w, http.StatusOK, "Account deactivated")
}
