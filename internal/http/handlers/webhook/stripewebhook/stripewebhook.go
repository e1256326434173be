// Package stripewebhook принимает вебхуки Stripe.
package stripewebhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/shortsos/shortsos/internal/http/response"
	"github.com/shortsos/shortsos/internal/lib/sl"
)

// MaxBodyBytes предел размера тела вебхука.
const MaxBodyBytes = 65536

// SignatureHeader заголовок подписи Stripe.
const SignatureHeader = "Stripe-Signature"

// Service проверяет и применяет событие.
type Service interface {
	HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error
}

// Handler обрабатывает POST /webhooks/stripe.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Вебхук Stripe
// @Description Подпись Stripe-Signature проверяется по сырому телу до разбора события. Ошибка 500 заставляет Stripe повторить доставку.
// @Tags Webhooks
// @Accept  json
// @Produce  json
// @Param Stripe-Signature header string true "Подпись Stripe"
// @Success 200 {object} response.Received
// @Failure 400 {object} response.ErrorResponse "Неверная подпись"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /webhooks/stripe [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook.stripe"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		log.Info("failed to read webhook body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.service.HandleStripeWebhook(r.Context(), payload, r.Header.Get(SignatureHeader)); err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	render.JSON(w, r, response.Received{Received: true})
}
