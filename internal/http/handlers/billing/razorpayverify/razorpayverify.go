// Package razorpayverify подтверждает оплату заказа Razorpay по подписи клиента.
package razorpayverify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/shortsos/shortsos/internal/http/middlewarectx"
	"github.com/shortsos/shortsos/internal/http/response"
	"github.com/shortsos/shortsos/internal/lib/sl"
	"github.com/shortsos/shortsos/internal/models"
)

// Service подтверждает платёж.
type Service interface {
	VerifyPayment(ctx context.Context, userID, email string, req models.VerifyPaymentRequest) (*models.VerifyResult, error)
}

// Handler обрабатывает POST /billing/razorpay/verify.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Подтвердить оплату Razorpay
// @Description Проверяет HMAC-подпись order_id|payment_id, статус платежа и активирует план на 30 дней. Повторный вызов возвращает already_processed.
// @Tags Billing
// @Accept  json
// @Produce  json
// @Param request body models.VerifyPaymentRequest true "Ответ Razorpay Checkout"
// @Success 200 {object} models.VerifyResult
// @Failure 400 {object} response.ErrorResponse "Неверная подпись или платёж не списан"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Failure 502 {object} response.ErrorResponse "Провайдер недоступен"
// @Router /billing/razorpay/verify [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.razorpayverify"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Info("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	userID, email := middlewarectx.UserFromContext(r.Context())
	res, err := h.service.VerifyPayment(r.Context(), userID, email, req)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("payment verified", sl.UserID(userID), slog.String("payment_id", req.PaymentID),
		slog.Bool("already_processed", res.AlreadyProcessed))
	render.JSON(w, r, res)
}
