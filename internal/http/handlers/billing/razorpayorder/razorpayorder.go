// Package razorpayorder создаёт заказ Razorpay на выбранный план.
package razorpayorder

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

// Service создаёт заказ.
type Service interface {
	CreateOrder(ctx context.Context, userID, plan string) (*models.Order, error)
}

// Handler обрабатывает POST /billing/razorpay/order.
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
// @Summary Создать заказ Razorpay
// @Description Сумма в минимальных единицах валюты. Первый платёж пользователя идёт со скидкой.
// @Tags Billing
// @Accept  json
// @Produce  json
// @Param request body models.OrderRequest true "План"
// @Success 200 {object} models.Order
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Провайдер не настроен"
// @Failure 502 {object} response.ErrorResponse "Провайдер недоступен"
// @Router /billing/razorpay/order [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.razorpayorder"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.OrderRequest
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

	userID, _ := middlewarectx.UserFromContext(r.Context())
	order, err := h.service.CreateOrder(r.Context(), userID, req.Plan)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("order created", sl.UserID(userID), slog.String("order_id", order.OrderID),
		slog.Int64("amount", order.Amount), slog.Bool("discounted", order.Discounted))
	render.JSON(w, r, order)
}
