package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"конфигурация", fmt.Errorf("op: %w", ErrConfiguration), http.StatusInternalServerError},
		{"нет авторизации", ErrAuthenticationRequired, http.StatusUnauthorized},
		{"нет права", fmt.Errorf("credits: %w", ErrInsufficientEntitlement), http.StatusForbidden},
		{"подпись", ErrInvalidSignature, http.StatusBadRequest},
		{"не найдено", ErrNotFound, http.StatusNotFound},
		{"валидация", Input("unknown feature"), http.StatusBadRequest},
		{"провайдер", ErrUpstream, http.StatusBadGateway},
		{"прочее", errors.New("pq: connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestMessageHidesInternalDetails(t *testing.T) {
	assert.Equal(t, "internal error", Message(errors.New("pq: password authentication failed")))
	assert.Equal(t, "unknown feature", Message(fmt.Errorf("credits.UseCredits: %w", Input("unknown feature"))))
	assert.Equal(t, "service is not configured", Message(ErrConfiguration))
}
