// Package stripecheckout создаёт сессию оплаты Stripe Checkout.
package stripecheckout

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

// Service создаёт сессию.
type Service interface {
	CreateCheckout(ctx context.Context, userID, email, plan string) (*models.Checkout, error)
}

// Handler обрабатывает POST /billing/stripe/checkout.
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
// @Summary Оформить подписку через Stripe
// @Description Создаёт Checkout-сессию в режиме подписки. Клиента нужно перенаправить на url.
// @Tags Billing
// @Accept  json
// @Produce  json
// @Param request body models.CheckoutRequest true "План"
// @Success 200 {object} models.Checkout
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Провайдер не настроен"
// @Failure 502 {object} response.ErrorResponse "Провайдер недоступен"
// @Router /billing/stripe/checkout [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.stripecheckout"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.CheckoutRequest
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
	checkout, err := h.service.CreateCheckout(r.Context(), userID, email, req.Plan)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("checkout session created", sl.UserID(userID), slog.String("session_id", checkout.SessionID))
	render.JSON(w, r, checkout)
}
