package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sweetcrumb/backoffice-auth/internal/application"
	"github.com/sweetcrumb/backoffice-auth/internal/domain"
)

func providerFromPath(r *http.Request) (domain.Provider, error) {
	switch name := chi.URLParam(r, "provider"); name {
	case string(domain.ProviderGoogle):
		return domain.ProviderGoogle, nil
	case string(domain.ProviderFacebook):
		return domain.ProviderFacebook, nil
	default:
		return "", fmt.Errorf("%w: unsupported provider %q", domain.ErrInvalidInput, name)
	}
}

func (h *Handler) oauthAuthorize(w http.ResponseWriter, r *http.Request) {
	provider, err := providerFromPath(r)
	if err != nil {
		writeMappedError(r.Context(), w, "oauth_authorize", err)
		return
	}
	redirectURI := r.URL.Query().Get("redirect_uri")

	res, err := h.service.OAuthBegin(r.Context(), provider, redirectURI)
	if err != nil {
		writeMappedError(r.Context(), w, "oauth_authorize", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

// oauthCallback accepts both the provider's GET redirect and a POST from a
// frontend that relayed the code.
func (h *Handler) oauthCallback(w http.ResponseWriter, r *http.Request) {
	provider, err := providerFromPath(r)
	if err != nil {
		writeMappedError(r.Context(), w, "oauth_callback", err)
		return
	}

	// RFC 6749 error redirect: the provider declined and sent no code.
	if denial := r.URL.Query().Get("error"); denial != "" {
		if desc := r.URL.Query().Get("error_description"); desc != "" {
			denial += ": " + desc
		}
		h.metrics.observeOAuthLogin(string(provider), "denied")
		writeMappedError(r.Context(), w, "oauth_callback", fmt.Errorf("%w: provider reported %s", domain.ErrAuthorization, denial))
		return
	}

	req := application.OAuthCallbackRequest{
		Provider:  provider,
		Code:      r.URL.Query().Get("code"),
		State:     r.URL.Query().Get("state"),
		IPAddress: readIP(r),
		UserAgent: r.UserAgent(),
	}
	if r.Method == http.MethodPost {
		var body struct {
			Code       string `json:"code"`
			State      string `json:"state"`
			DeviceName string `json:"device_name,omitempty"`
			DeviceOS   string `json:"device_os,omitempty"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeValidationError(r.Context(), w, "oauth_callback", err)
			return
		}
		req.Code = body.Code
		req.State = body.State
		req.DeviceName = body.DeviceName
		req.DeviceOS = body.DeviceOS
	}

	res, err := h.service.OAuthCallback(r.Context(), req)
	if err != nil {
		h.metrics.observeOAuthLogin(string(provider), "failure")
		writeMappedError(r.Context(), w, "oauth_callback", err)
		return
	}

	h.metrics.observeOAuthLogin(string(provider), "success")
	writeSuccess(w, http.StatusOK, res)
}
