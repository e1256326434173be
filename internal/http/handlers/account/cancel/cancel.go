// Package cancel отменяет подписку пользователя с сохранением доступа до конца периода.
package cancel

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/shortsos/shortsos/internal/http/middlewarectx"
	"github.com/shortsos/shortsos/internal/http/response"
	"github.com/shortsos/shortsos/internal/lib/sl"
	"github.com/shortsos/shortsos/internal/models"
)

// Service отменяет подписку.
type Service interface {
	CancelSubscription(ctx context.Context, userID string) (*models.AccountSummary, error)
}

// Handler обрабатывает POST /account/cancel.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отменить подписку
// @Description Статус становится cancelled, plan_expiry не меняется: доступ сохраняется до окончания периода.
// @Tags Account
// @Produce  json
// @Success 200 {object} models.AccountSummary
// @Failure 400 {object} response.ErrorResponse "Нет активной подписки"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 502 {object} response.ErrorResponse "Провайдер недоступен"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /account/cancel [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.account.cancel"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, _ := middlewarectx.UserFromContext(r.Context())
	s, err := h.service.CancelSubscription(r.Context(), userID)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	log.Info("subscription cancelled", sl.UserID(userID))
	render.JSON(w, r, s)
}
