package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sweetcrumb/backoffice-auth/internal/domain"
)

func TestBearerTokenFromHeader(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		header    string
		wantToken string
		wantErr   error
	}{
		{name: "valid", header: "Bearer abc123", wantToken: "abc123"},
		{name: "missing", header: "", wantErr: errMissingAuthHeader},
		{name: "wrong scheme", header: "Basic abc123", wantErr: errMalformedAuthHeader},
		{name: "lowercase scheme", header: "bearer abc123", wantErr: errMalformedAuthHeader},
		{name: "empty token", header: "Bearer   ", wantErr: errEmptyBearerToken},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			token, err := bearerTokenFromHeader(tc.header)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if token != tc.wantToken {
				t.Fatalf("expected token %q, got %q", tc.wantToken, token)
			}
		})
	}
}

func TestMapDomainError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{domain.ErrInvalidInput, http.StatusBadRequest, "VALIDATION_ERROR"},
		{fmt.Errorf("%w: try later", domain.ErrAccountLocked), http.StatusTooManyRequests, "ACCOUNT_LOCKED"},
		{domain.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
		{domain.ErrTokenExpired, http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{domain.ErrWrongPurpose, http.StatusUnauthorized, "WRONG_TOKEN_PURPOSE"},
		{domain.ErrTokenInvalid, http.StatusUnauthorized, "TOKEN_INVALID"},
		{domain.ErrAuthentication, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{domain.ErrAuthorization, http.StatusForbidden, "FORBIDDEN"},
		{domain.ErrConflict, http.StatusConflict, "CONFLICT"},
		{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{domain.ErrExternalService, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{errors.New("driver glitch"), http.StatusInternalServerError, "INTERNAL_ERROR"},
		{fmt.Errorf("%w: connect refused", domain.ErrDatabase), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		status, code, _ := mapDomainError(tc.err)
		if status != tc.wantStatus || code != tc.wantCode {
			t.Fatalf("%v: expected %d/%s, got %d/%s", tc.err, tc.wantStatus, tc.wantCode, status, code)
		}
	}
}

type stubLimiter struct {
	allow bool
	err   error
	calls int
}

func (s *stubLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	s.calls++
	return s.allow, s.err
}

func TestRateLimitMiddlewareDeniesOverBudget(t *testing.T) {
	t.Parallel()

	limiter := &stubLimiter{allow: false}
	handler := rateLimitMiddleware(limiter, "login", 5, time.Minute)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodPost, "/auth/v1/login", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", res.Code)
	}
	if limiter.calls != 1 {
		t.Fatalf("expected one limiter call, got %d", limiter.calls)
	}
}

func TestRateLimitMiddlewareFailsOpen(t *testing.T) {
	t.Parallel()

	// A broken limiter backend must not take logins down with it.
	limiter := &stubLimiter{allow: false, err: errors.New("redis down")}
	handler := rateLimitMiddleware(limiter, "login", 5, time.Minute)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodPost, "/auth/v1/login", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected fail-open 200, got %d", res.Code)
	}
}

func TestRecoverMiddlewareTurnsPanicInto500(t *testing.T) {
	t.Parallel()

	handler := recoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/auth/v1/me", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", res.Code)
	}
}
