package http

import (
	"errors"
	"net/http"

	"github.com/sweetcrumb/backoffice-auth/internal/application"
	"github.com/sweetcrumb/backoffice-auth/internal/domain"
)

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req application.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "register", err)
		return
	}

	res, err := h.service.Register(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "register", err)
		return
	}

	h.metrics.observeRegistration()
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req application.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "login", err)
		return
	}
	if req.IPAddress == "" {
		req.IPAddress = readIP(r)
	}
	if req.UserAgent == "" {
		req.UserAgent = r.UserAgent()
	}

	res, err := h.service.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrAccountLocked) {
			h.metrics.observeLockout()
			h.metrics.observeLogin("locked")
		} else {
			h.metrics.observeLogin("failure")
		}
		writeMappedError(r.Context(), w, "login", err)
		return
	}

	h.metrics.observeLogin("success")
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "refresh", err)
		return
	}

	tokens, err := h.service.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		h.metrics.observeRefresh("failure")
		writeMappedError(r.Context(), w, "refresh", err)
		return
	}

	h.metrics.observeRefresh("success")
	writeSuccess(w, http.StatusOK, tokens)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "logout", err)
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		writeMappedError(r.Context(), w, "logout", err)
		return
	}
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

func (h *Handler) logoutAll(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeUnauthenticated(r.Context(), w, "logout_all")
		return
	}

	revoked, err := h.service.LogoutAll(r.Context(), claims.AccountID)
	if err != nil {
		writeMappedError(r.Context(), w, "logout_all", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"revoked_sessions": revoked})
}
