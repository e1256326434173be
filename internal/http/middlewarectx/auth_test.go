package middlewarectx_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shortsos/shortsos/internal/http/middlewarectx"
	"github.com/shortsos/shortsos/internal/lib/jwt"
	"github.com/shortsos/shortsos/internal/lib/secret"
)

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestJWTMiddleware(t *testing.T) {
	maker := jwt.NewMaker("test-secret", "identity", time.Hour)
	valid, err := maker.GenerateToken("u-1", "creator@example.com")
	require.NoError(t, err)
	foreign, err := jwt.NewMaker("other-secret", "identity", time.Hour).GenerateToken("u-1", "")
	require.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		wantStatusCode int
		wantCalled     bool
	}{
		{"нет заголовка", "", http.StatusUnauthorized, false},
		{"не Bearer", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, false},
		{"мусор вместо токена", "Bearer not-a-token", http.StatusUnauthorized, false},
		{"чужой секрет", "Bearer " + foreign, http.StatusUnauthorized, false},
		{"валидный токен", "Bearer " + valid, http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				userID, email := middlewarectx.UserFromContext(r.Context())
				assert.Equal(t, "u-1", userID)
				assert.Equal(t, "creator@example.com", email)
				w.WriteHeader(http.StatusOK)
			})
			handler := middlewarectx.JWTMiddleware(maker, newNoopLogger())(next)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatusCode, rr.Code)
			assert.Equal(t, tt.wantCalled, called)
		})
	}
}

func TestAdminTokenMiddleware(t *testing.T) {
	hash, err := secret.HashToken("operator-token")
	require.NoError(t, err)

	tests := []struct {
		name       string
		hash       string
		token      string
		wantStatus int
	}{
		{"верный токен", hash, "operator-token", http.StatusNoContent},
		{"неверный токен", hash, "guess", http.StatusForbidden},
		{"нет токена", hash, "", http.StatusUnauthorized},
		{"маршрут не настроен", "", "operator-token", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
			handler := middlewarectx.AdminTokenMiddleware(tt.hash, newNoopLogger())(next)

			req := httptest.NewRequest(http.MethodPost, "/admin/setup", nil)
			if tt.token != "" {
				req.Header.Set(middlewarectx.AdminTokenHeader, tt.token)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}
