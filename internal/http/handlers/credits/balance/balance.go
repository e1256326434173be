// Package balance отдаёт баланс кредитов пользователя.
package balance

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

// Service читает баланс.
type Service interface {
	Balance(ctx context.Context, userID string) (*models.Balance, error)
}

// Handler обрабатывает GET /credits/balance.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Баланс кредитов
// @Tags Credits
// @Produce  json
// @Success 200 {object} models.Balance
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /credits/balance [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.credits.balance"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, _ := middlewarectx.UserFromContext(r.Context())
	b, err := h.service.Balance(r.Context(), userID)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	render.JSON(w, r, b)
}
