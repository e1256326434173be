// Package paymentlist отдаёт платежи пользователя.
package paymentlist

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

// Service читает платежи.
type Service interface {
	ListPayments(ctx context.Context, userID string) ([]*models.Payment, error)
}

// Result тело ответа.
type Result struct {
	Payments []*models.Payment `json:"payments"`
	Count    int               `json:"count"`
}

// Handler обрабатывает GET /billing/payments.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список платежей
// @Tags Billing
// @Produce  json
// @Success 200 {object} Result
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /billing/payments [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.paymentlist"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, _ := middlewarectx.UserFromContext(r.Context())
	list, err := h.service.ListPayments(r.Context(), userID)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	if list == nil {
		list = []*models.Payment{}
	}
	log.Debug("list payments", slog.Int("count", len(list)))
	render.JSON(w, r, Result{Payments: list, Count: len(list)})
}
