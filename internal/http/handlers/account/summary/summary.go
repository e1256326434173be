// Package summary отдаёт состояние подписки пользователя.
package summary

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/shortsos/shortsos/internal/http/middlewarectx"
	"github.com/shortsos/shortsos/internal/http/response"
	"github.com/shortsos/shortsos/internal/models"
)

// Service читает аккаунт.
type Service interface {
	Account(ctx context.Context, userID string) (*models.AccountSummary, error)
}

// Handler обрабатывает GET /account.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Состояние аккаунта
// @Tags Account
// @Produce  json
// @Success 200 {object} models.AccountSummary
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /account [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.account.summary"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, _ := middlewarectx.UserFromContext(r.Context())
	s, err := h.service.Account(r.Context(), userID)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	render.JSON(w, r, s)
}
