package http

import (
	"net/http"

	"github.com/sweetcrumb/backoffice-auth/internal/application"
)

type emailRequest struct {
	Email string `json:"email"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

// forgotPassword always answers 200 for well-formed requests; whether the
// email maps to an account is not disclosed.
func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "forgot_password", err)
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		writeMappedError(r.Context(), w, "forgot_password", err)
		return
	}
	writeMessage(w, http.StatusOK, "If the email is registered, a reset link has been sent")
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req application.ResetPasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "reset_password", err)
		return
	}

	if err := h.service.ResetPassword(r.Context(), req); err != nil {
		writeMappedError(r.Context(), w, "reset_password", err)
		return
	}
	writeMessage(w, http.StatusOK, "Password has been reset")
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeUnauthenticated(r.Context(), w, "change_password")
		return
	}

	var req application.ChangePasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "change_password", err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), claims.AccountID, req); err != nil {
		writeMappedError(r.Context(), w, "change_password", err)
		return
	}
	writeMessage(w, http.StatusOK, "Password changed; all sessions revoked")
}

func (h *Handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "verify_email", err)
		return
	}

	if err := h.service.VerifyEmail(r.Context(), req.Token); err != nil {
		writeMappedError(r.Context(), w, "verify_email", err)
		return
	}
	writeMessage(w, http.StatusOK, "Email verified")
}

func (h *Handler) resendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "resend_verification", err)
		return
	}

	if err := h.service.ResendVerification(r.Context(), req.Email); err != nil {
		writeMappedError(r.Context(), w, "resend_verification", err)
		return
	}
	writeMessage(w, http.StatusOK, "If the email is registered, a verification link has been sent")
}
