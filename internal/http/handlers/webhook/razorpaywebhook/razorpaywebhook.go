// Package razorpaywebhook принимает вебхуки Razorpay.
package razorpaywebhook

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

// Заголовки вебхука Razorpay.
const (
	SignatureHeader = "X-Razorpay-Signature"
	EventIDHeader   = "X-Razorpay-Event-Id"
)

// Service проверяет и применяет событие.
type Service interface {
	HandleRazorpayWebhook(ctx context.Context, payload []byte, signature, eventID string) error
}

// Handler обрабатывает POST /webhooks/razorpay.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Вебхук Razorpay
// @Description Подпись X-Razorpay-Signature (HMAC-SHA256 от сырого тела) проверяется до разбора события.
// @Tags Webhooks
// @Accept  json
// @Produce  json
// @Param X-Razorpay-Signature header string true "Подпись Razorpay"
// @Param X-Razorpay-Event-Id header string false "Идентификатор события"
// @Success 200 {object} response.Received
// @Failure 400 {object} response.ErrorResponse "Неверная подпись"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /webhooks/razorpay [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook.razorpay"
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

	err = h.service.HandleRazorpayWebhook(r.Context(), payload,
		r.Header.Get(SignatureHeader), r.Header.Get(EventIDHeader))
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	render.JSON(w, r, response.Received{Received: true})
}
